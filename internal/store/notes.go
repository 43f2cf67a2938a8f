package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/models"
)

// CreateNote appends a note to the planning timeline of subprojectID. Notes
// are accepted only while the Subproject is planned; otherwise the error is
// InvalidState.
func (s *Store) CreateNote(ctx context.Context, subprojectID string, typ models.NoteType, content string) (*models.Note, error) {
	const op = "store: create note"
	if !typ.Valid() {
		return nil, invalid(op, "invalid note type %q", typ)
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid(op, "note content is required")
	}
	if typ == models.NoteImage {
		content = strings.TrimSpace(content)
		if err := checkImageURL(content); err != nil {
			return nil, invalid(op, "image note: %v", err)
		}
	}

	n := models.Note{
		ID:           newID(),
		SubprojectID: subprojectID,
		Type:         typ,
		Content:      content,
		CreatedAt:    s.now(),
	}
	// The planned check is part of the INSERT so a note cannot land after
	// SetArtifacts has committed.
	res := s.tx(ctx).Exec(
		"INSERT INTO notes (id, subproject_id, type, content, created_at) "+
			"SELECT ?, ?, ?, ?, ? FROM subprojects WHERE id = ? AND mode = ?",
		n.ID, n.SubprojectID, n.Type, n.Content, n.CreatedAt, subprojectID, models.ModePlanned)
	if res.Error != nil {
		return nil, classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := s.requireMode(ctx, op, subprojectID, models.ModePlanned); err != nil {
			return nil, err
		}
		return nil, fault.New(fault.Conflict, op, "note for subproject %s was not written", subprojectID)
	}
	return &n, nil
}

func checkImageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}

// ListNotes returns the notes of subprojectID ordered by created_at, ties
// broken by id. The result comes from a single SELECT, so it is one
// consistent snapshot.
func (s *Store) ListNotes(ctx context.Context, subprojectID string, order Order) ([]models.Note, error) {
	orderBy := "created_at ASC, id ASC"
	if order == Descending {
		orderBy = "created_at DESC, id DESC"
	}
	var notes []models.Note
	if err := s.tx(ctx).Where("subproject_id = ?", subprojectID).Order(orderBy).Find(&notes).Error; err != nil {
		return nil, classify("store: list notes", err)
	}
	return notes, nil
}
