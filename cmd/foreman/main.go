package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/logging"
	"golang.org/x/term"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	jsonLogs   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:          "foreman",
		Short:        "Foreman turns planning notes into a PRD and a tracked task list",
		Long:         "Foreman collects notes per subproject, generates a PRD and task breakdown from them, and tracks the tasks to completion.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.SetLevelName(flags.logLevel); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			if flags.jsonLogs || !term.IsTerminal(int(os.Stderr.Fd())) {
				logging.UseJSON()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.jsonLogs, "json-logs", false, "write logs as JSON even on a terminal")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd(flags))
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newProjectCmd(flags))
	cmd.AddCommand(newSubprojectCmd(flags))
	cmd.AddCommand(newNoteCmd(flags))
	cmd.AddCommand(newBuildCmd(flags))
	cmd.AddCommand(newTaskCmd(flags))
	cmd.AddCommand(newCommentCmd(flags))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "foreman %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
