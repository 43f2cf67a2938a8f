package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/zulandar/foreman/internal/fault"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want fault.Kind
	}{
		{"record not found", gorm.ErrRecordNotFound, fault.NotFound},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), fault.Cancelled},
		{"deadline", context.DeadlineExceeded, fault.Timeout},
		{"bad conn", driver.ErrBadConn, fault.Transient},
		{"mysql invalid conn", mysql.ErrInvalidConn, fault.Transient},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, fault.Transient},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, fault.Transient},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, fault.Permanent},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, fault.Transient},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, fault.Permanent},
		{"check violated", gorm.ErrCheckConstraintViolated, fault.Permanent},
		{"plain", errors.New("boom"), fault.Permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fault.KindOf(classify("store: test", tt.err))
			if got != tt.want {
				t.Errorf("classify(%v) kind = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_KeepsTaggedErrors(t *testing.T) {
	orig := fault.New(fault.Conflict, "store: x", "raced")
	if got := classify("store: y", orig); got != error(orig) {
		t.Errorf("classify rewrapped a tagged error: %v", got)
	}
	if classify("store: y", nil) != nil {
		t.Error("classify(nil) != nil")
	}
}

func TestIsForeignKey(t *testing.T) {
	if !isForeignKey(gorm.ErrForeignKeyViolated) {
		t.Error("gorm.ErrForeignKeyViolated not recognised")
	}
	if !isForeignKey(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}) {
		t.Error("sqlite foreign key constraint not recognised")
	}
	if isForeignKey(errors.New("other")) {
		t.Error("plain error recognised as foreign key violation")
	}
}
