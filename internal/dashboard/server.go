// Package dashboard serves the Foreman JSON API and its event streams.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/foreman/internal/lifecycle"
	"github.com/zulandar/foreman/internal/pipeline"
	"github.com/zulandar/foreman/internal/store"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Store        *store.Store
	Controller   *lifecycle.Controller
	Orchestrator *pipeline.Orchestrator
	Port         int
	Out          io.Writer
}

func (o StartOpts) check() error {
	switch {
	case o.Store == nil:
		return fmt.Errorf("dashboard: store is required")
	case o.Controller == nil:
		return fmt.Errorf("dashboard: controller is required")
	case o.Orchestrator == nil:
		return fmt.Errorf("dashboard: orchestrator is required")
	}
	return nil
}

// NewRouter returns the API handler.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLog())
	registerRoutes(router, &api{
		store: opts.Store,
		ctrl:  opts.Controller,
		orch:  opts.Orchestrator,
	})
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
