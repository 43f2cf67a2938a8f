package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/pipeline"
)

func newBuildCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build <subprojectID>",
		Short: "Generate the PRD and tasks for a planned subproject",
		Long: `Aggregates the subproject's notes, asks the generator for a PRD and a
task breakdown, and moves the subproject into build. Progress is printed
as it happens. Ctrl-C cancels the run and leaves the subproject planned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(flags, func(a *app) error {
				orch, err := a.orchestrator(ctx)
				if err != nil {
					return err
				}
				defer orch.Wait()
				return runBuild(ctx, cmd, orch, args[0])
			})
		},
	}
}

func runBuild(ctx context.Context, cmd *cobra.Command, orch *pipeline.Orchestrator, subprojectID string) error {
	out := cmd.OutOrStdout()
	events := make(chan pipeline.Event)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			printEvent(cmd, ev)
		}
	}()

	res, err := orch.LetsBuildIt(ctx, subprojectID, events)
	<-printed
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nSubproject %s is in build with %d tasks:\n", res.Subproject.ID, len(res.Tasks))
	for _, t := range res.Tasks {
		fmt.Fprintf(out, "  %-24s  %s\n", t.MarkdownID, t.Title)
	}
	fmt.Fprintf(out, "Project status: %s\n", res.ProjectStatus)
	return nil
}

func printEvent(cmd *cobra.Command, ev pipeline.Event) {
	if ev.Step == pipeline.StepFailed {
		fmt.Fprintf(cmd.ErrOrStderr(), "[failed] %s (%s)\n", ev.Message, ev.Kind)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] %s\n", ev.Index, ev.Total, ev.Message)
}
