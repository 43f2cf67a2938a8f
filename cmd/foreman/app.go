package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/config"
	"github.com/zulandar/foreman/internal/db"
	"github.com/zulandar/foreman/internal/generator"
	"github.com/zulandar/foreman/internal/lifecycle"
	"github.com/zulandar/foreman/internal/logging"
	"github.com/zulandar/foreman/internal/notify"
	"github.com/zulandar/foreman/internal/pipeline"
	"github.com/zulandar/foreman/internal/store"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// app is the wired core for one command invocation.
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	store *store.Store
	ctrl  *lifecycle.Controller
}

// connectFromConfig loads the config and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return cfg, gormDB, nil
}

func openApp(configPath string) (*app, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, err
	}
	st := store.New(gormDB)
	return &app{cfg: cfg, db: gormDB, store: st, ctrl: lifecycle.New(st)}, nil
}

// orchestrator wires the generator and notifiers into a pipeline.
func (a *app) orchestrator(ctx context.Context) (*pipeline.Orchestrator, error) {
	gen, err := generator.FromConfig(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	notifier, err := notify.FromConfig(a.cfg.Notify)
	if err != nil {
		return nil, err
	}
	return pipeline.New(a.store, gen, a.ctrl, pipeline.Options{
		Deadline: a.cfg.PipelineDeadline(),
		Location: a.cfg.Location(),
		Notifier: notifier,
	}), nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		logging.CloseError("database", sqlDB.Close())
	}
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func withApp(flags *rootFlags, fn func(a *app) error) error {
	a, err := openApp(flags.configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// confirm asks for a typed "yes". It refuses outright when stdin is a file
// that is not a terminal, so scripts must pass --yes.
func confirm(cmd *cobra.Command, warning string) (bool, error) {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; pass --yes to confirm")
	}

	fmt.Fprintln(out, warning)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes", nil
	}
	return false, nil
}

// readContent returns args joined, or stdin when the only arg is "-".
func readContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
