package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/aggregate"
	"github.com/zulandar/foreman/internal/models"
	"github.com/zulandar/foreman/internal/store"
)

func newNoteCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Add and list planning notes",
	}

	cmd.AddCommand(newNoteAddCmd(flags))
	cmd.AddCommand(newNoteListCmd(flags))
	return cmd
}

func newNoteAddCmd(flags *rootFlags) *cobra.Command {
	var image bool

	cmd := &cobra.Command{
		Use:   "add <subprojectID> <text...|->",
		Short: "Add a note to a planned subproject",
		Long:  "Adds a text note, or an image note with --image whose content is the image URL. Pass - to read the note from stdin.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd, args[1:])
			if err != nil {
				return err
			}
			typ := models.NoteText
			if image {
				typ = models.NoteImage
			}
			return withApp(flags, func(a *app) error {
				n, err := a.store.CreateNote(cmd.Context(), args[0], typ, content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s note %s\n", n.Type, n.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&image, "image", false, "the note is an image URL")
	return cmd
}

func newNoteListCmd(flags *rootFlags) *cobra.Command {
	var (
		desc       bool
		aggregated bool
	)

	cmd := &cobra.Command{
		Use:   "list <subprojectID>",
		Short: "List a subproject's notes, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				ctx := cmd.Context()
				if _, err := a.store.GetSubproject(ctx, args[0]); err != nil {
					return err
				}
				order := store.Ascending
				if desc && !aggregated {
					order = store.Descending
				}
				notes, err := a.store.ListNotes(ctx, args[0], order)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if aggregated {
					fmt.Fprint(out, aggregate.Notes(notes, a.cfg.Location()))
					return nil
				}
				if len(notes) == 0 {
					fmt.Fprintln(out, "No notes.")
					return nil
				}
				for _, n := range notes {
					fmt.Fprintf(out, "%s  %-5s  %s\n", n.CreatedAt.In(a.cfg.Location()).Format("2006-01-02 15:04:05"),
						n.Type, firstLine(n.Content))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&desc, "desc", false, "newest first")
	cmd.Flags().BoolVar(&aggregated, "aggregated", false, "print the document the generator receives")
	return cmd
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
