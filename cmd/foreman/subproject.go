package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/models"
)

func newSubprojectCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subproject",
		Aliases: []string{"sub"},
		Short:   "Manage subprojects",
	}

	cmd.AddCommand(newSubprojectCreateCmd(flags))
	cmd.AddCommand(newSubprojectListCmd(flags))
	cmd.AddCommand(newSubprojectShowCmd(flags))
	cmd.AddCommand(newSubprojectRenameCmd(flags))
	cmd.AddCommand(newSubprojectDeleteCmd(flags))
	cmd.AddCommand(newSubprojectCompleteCmd(flags))
	return cmd
}

func newSubprojectCreateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <projectID> <name>",
		Short: "Create a planned subproject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				sp, err := a.ctrl.CreateSubproject(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created subproject %s (%s) in project %s\n", sp.ID, sp.Name, sp.ProjectID)
				return nil
			})
		},
	}
}

func newSubprojectListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <projectID>",
		Short: "List a project's subprojects, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				if _, err := a.store.GetProject(cmd.Context(), args[0]); err != nil {
					return err
				}
				sps, err := a.store.ListSubprojects(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(sps) == 0 {
					fmt.Fprintln(out, "No subprojects.")
					return nil
				}
				fmt.Fprintf(out, "%-36s  %-8s  %s\n", "ID", "MODE", "NAME")
				for _, sp := range sps {
					fmt.Fprintf(out, "%-36s  %-8s  %s\n", sp.ID, sp.Mode, sp.Name)
				}
				return nil
			})
		},
	}
}

func newSubprojectShowCmd(flags *rootFlags) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "show <subprojectID>",
		Short: "Show a subproject and its generated PRD or tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				sp, err := a.store.GetSubproject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch section {
				case "prd":
					fmt.Fprintln(out, deref(sp.PRDMarkdown))
				case "tasks":
					fmt.Fprintln(out, deref(sp.TasksMarkdown))
				case "":
					fmt.Fprintf(out, "ID:       %s\n", sp.ID)
					fmt.Fprintf(out, "Name:     %s\n", sp.Name)
					fmt.Fprintf(out, "Project:  %s\n", sp.ProjectID)
					fmt.Fprintf(out, "Mode:     %s\n", sp.Mode)
					fmt.Fprintf(out, "Updated:  %s\n", sp.UpdatedAt.Format("2006-01-02 15:04:05"))
					fmt.Fprintf(out, "PRD:      %s\n", presence(sp.PRDMarkdown))
					fmt.Fprintf(out, "Tasks:    %s\n", presence(sp.TasksMarkdown))
				default:
					return fmt.Errorf("--section must be prd or tasks")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&section, "section", "", "print only the prd or tasks markdown")
	return cmd
}

func newSubprojectRenameCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <subprojectID> <name>",
		Short: "Rename a subproject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				sp, err := a.store.UpdateSubprojectName(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed subproject %s to %s\n", sp.ID, sp.Name)
				return nil
			})
		},
	}
}

func newSubprojectDeleteCmd(flags *rootFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <subprojectID>",
		Short: "Delete a subproject with its notes and task history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				sp, err := a.store.GetSubproject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !yes {
					ok, err := confirm(cmd, fmt.Sprintf("WARNING: This will delete subproject %q with its notes and tasks.", sp.Name))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
						return nil
					}
				}
				if err := a.ctrl.DeleteSubproject(cmd.Context(), sp.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted subproject %s\n", sp.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func newSubprojectCompleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <subprojectID>",
		Short: "Mark a subproject complete once every task is done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				sp, err := a.ctrl.Transition(cmd.Context(), args[0], models.ModeComplete)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Subproject %s is complete\n", sp.ID)
				return nil
			})
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func presence(s *string) string {
	if s == nil || *s == "" {
		return "(none)"
	}
	return fmt.Sprintf("%d bytes", len(*s))
}
