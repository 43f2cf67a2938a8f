// Package store is the typed gateway to the persistence engine. Every other
// component reads and writes Projects, Subprojects, Notes, TaskStatuses and
// TaskComments through it, and every failure it returns carries a
// fault.Kind.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/foreman/internal/fault"
	"gorm.io/gorm"
)

// Order selects the sort direction for time-ordered listings.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Store wraps a *gorm.DB and the subscription dispatch table.
type Store struct {
	db  *gorm.DB
	hub *hub
	now func() time.Time
}

// New returns a Store over an already migrated database.
func New(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		hub: newHub(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the underlying handle for migrations and diagnostics.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) tx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func newID() string {
	return uuid.NewString()
}

// notFound builds a NotFound error for an entity id.
func notFound(op, entity, id string) error {
	return fault.New(fault.NotFound, op, "%s not found: %s", entity, id)
}

// invalid builds a Permanent error for rejected input.
func invalid(op, format string, args ...interface{}) error {
	return fault.New(fault.Permanent, op, format, args...)
}

// lookup maps a First() error for entity id into the taxonomy.
func lookup(op, entity, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(op, entity, id)
	}
	return classify(op, fmt.Errorf("%s %s: %w", entity, id, err))
}
