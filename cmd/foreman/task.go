package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/models"
)

func newTaskCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Track the generated tasks of a subproject",
	}

	cmd.AddCommand(newTaskListCmd(flags))
	cmd.AddCommand(newTaskSetCmd(flags))
	return cmd
}

func newTaskListCmd(flags *rootFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list <subprojectID>",
		Short: "List tasks with their status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				board, err := a.ctrl.Tasks(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(board.Tasks) == 0 {
					fmt.Fprintf(out, "No tasks (subproject is %s).\n", board.Subproject.Mode)
					return nil
				}
				fmt.Fprintf(out, "%-24s  %-11s  %s\n", "ID", "STATUS", "TITLE")
				for _, t := range board.Tasks {
					fmt.Fprintf(out, "%-24s  %-11s  %s\n", t.MarkdownID, t.Status, t.Title)
					if !verbose {
						continue
					}
					for _, s := range t.Subtasks {
						fmt.Fprintf(out, "    - %s\n", s)
					}
					for _, c := range t.Comments {
						fmt.Fprintf(out, "    > %s  %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
					}
				}
				c := board.Counts
				fmt.Fprintf(out, "\n%d%% complete (%d todo, %d in progress, %d done)\n",
					board.CompletionPercent, c.Todo, c.InProgress, c.Done)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include subtasks and comments")
	return cmd
}

func newTaskSetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <subprojectID> <taskID> <todo|in_progress|done>",
		Short: "Set a task's status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				ts, err := a.ctrl.SetTaskStatus(cmd.Context(), args[0], args[1], models.TaskState(args[2]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s is %s\n", ts.TaskID, ts.Status)
				return nil
			})
		},
	}
}

func newCommentCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <subprojectID> <taskID> <text...|->",
		Short: "Add a comment to a task",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd, args[2:])
			if err != nil {
				return err
			}
			return withApp(flags, func(a *app) error {
				c, err := a.ctrl.AddComment(cmd.Context(), args[0], args[1], content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added comment %s to %s\n", c.ID, c.TaskID)
				return nil
			})
		},
	})
	return cmd
}
