package models

import "time"

// NoteType distinguishes freeform text notes from uploaded images.
type NoteType string

const (
	NoteText  NoteType = "text"
	NoteImage NoteType = "image"
)

// Valid reports whether t is a known note type.
func (t NoteType) Valid() bool {
	return t == NoteText || t == NoteImage
}

// Note is an append-only planning fragment. For image notes Content holds a
// resolvable URL.
type Note struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubprojectID string    `gorm:"size:36;not null;index:idx_notes_subproject_created,priority:1" json:"subproject_id"`
	Type         NoteType  `gorm:"size:8;not null;default:text;check:type IN ('text','image')" json:"type"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `gorm:"index:idx_notes_subproject_created,priority:2" json:"created_at"`
}
