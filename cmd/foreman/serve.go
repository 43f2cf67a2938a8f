package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/dashboard"
	"github.com/zulandar/foreman/internal/lifecycle"
	"github.com/zulandar/foreman/internal/logging"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and keep project statuses converged",
		Long: `Starts the HTTP API, the subscription loop that rolls subproject changes
up into project status, and the scheduled reconcile sweep.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, flags *rootFlags, port int) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return withApp(flags, func(a *app) error {
		orch, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Wait()

		// Converge anything written while no server was running.
		if changed, err := a.ctrl.ReconcileAll(ctx); err != nil {
			logging.Warn("serve: startup reconcile incomplete", "changed", changed, "error", err)
		} else if changed > 0 {
			logging.Info("serve: startup reconcile", "changed", changed)
		}
		loopDone := a.ctrl.Start(ctx)
		defer func() { <-loopDone }()

		if spec := a.cfg.Lifecycle.ReconcileCron; spec != "off" {
			rec, err := lifecycle.NewReconciler(a.ctrl, spec)
			if err != nil {
				return err
			}
			go rec.Run(ctx)
		}

		if port <= 0 {
			port = a.cfg.Dashboard.Port
		}
		err = dashboard.Start(ctx, dashboard.StartOpts{
			Store:        a.store,
			Controller:   a.ctrl,
			Orchestrator: orch,
			Port:         port,
			Out:          cmd.OutOrStdout(),
		})
		cancel()
		return err
	})
}
