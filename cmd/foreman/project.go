package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/models"
)

func newProjectCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(newProjectCreateCmd(flags))
	cmd.AddCommand(newProjectListCmd(flags))
	cmd.AddCommand(newProjectRenameCmd(flags))
	cmd.AddCommand(newProjectDeleteCmd(flags))
	return cmd
}

func newProjectCreateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				p, err := a.store.CreateProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.ID, p.Name)
				return nil
			})
		},
	}
}

func newProjectListCmd(flags *rootFlags) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				var (
					projects []models.Project
					err      error
				)
				if status != "" {
					projects, err = a.store.ListProjectsByStatus(cmd.Context(), models.ProjectStatus(status))
				} else {
					projects, err = a.store.ListProjects(cmd.Context())
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(projects) == 0 {
					fmt.Fprintln(out, "No projects.")
					return nil
				}
				fmt.Fprintf(out, "%-36s  %-12s  %s\n", "ID", "STATUS", "NAME")
				for _, p := range projects {
					fmt.Fprintf(out, "%-36s  %-12s  %s\n", p.ID, p.Status, p.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (planning, in_progress, complete)")
	return cmd
}

func newProjectRenameCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <projectID> <name>",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				p, err := a.store.UpdateProject(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed project %s to %s\n", p.ID, p.Name)
				return nil
			})
		},
	}
}

func newProjectDeleteCmd(flags *rootFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <projectID>",
		Short: "Delete a project with all its subprojects, notes and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				p, err := a.store.GetProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !yes {
					ok, err := confirm(cmd, fmt.Sprintf("WARNING: This will delete project %q and everything in it.", p.Name))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
						return nil
					}
				}
				if err := a.store.DeleteProject(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", p.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}
