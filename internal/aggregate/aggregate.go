// Package aggregate renders a subproject's planning notes as the single
// markdown document handed to the generator.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zulandar/foreman/internal/models"
)

const (
	// Heading opens every aggregated document.
	Heading = "# Subproject Notes"
	// NoNotes is the body of a document built from zero notes.
	NoNotes = "_No notes._"

	separator = "\n\n---\n\n"

	// TimeFormat is ISO-8601 with millisecond precision. UTC renders as Z.
	TimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

// Notes renders notes in (created_at, id) order. Timestamps are shown in
// loc; a nil loc means UTC. The same notes always produce the same bytes.
func Notes(notes []models.Note, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	if len(notes) == 0 {
		return Heading + "\n\n" + NoNotes + "\n"
	}

	ordered := make([]models.Note, len(notes))
	copy(ordered, notes)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	sections := make([]string, len(ordered))
	for i, n := range ordered {
		sections[i] = fmt.Sprintf("## Note %d - %s (%s)\n\n%s",
			i+1, Label(n.Type), n.CreatedAt.In(loc).Format(TimeFormat), n.Content)
	}

	var b strings.Builder
	b.WriteString(Heading)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(sections, separator))
	b.WriteString("\n")
	return b.String()
}

// Label is the section label for a note type.
func Label(t models.NoteType) string {
	if t == models.NoteImage {
		return "Image"
	}
	return "Text"
}

// IsEmpty reports whether doc is the document produced for zero notes.
func IsEmpty(doc string) bool {
	return doc == Notes(nil, nil)
}
