// Package fault defines the error kinds that cross the core boundary.
//
// Every failure surfaced by the store, the generator client, the pipeline
// and the lifecycle controller carries exactly one Kind. Callers branch on
// the kind with KindOf or errors.Is against the sentinel values:
//
//	if errors.Is(err, fault.ErrAlreadyRunning) { ... }
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	NotFound             Kind = "not_found"
	InvalidState         Kind = "invalid_state"
	InvalidTransition    Kind = "invalid_transition"
	EmptyInput           Kind = "empty_input"
	EmptyOutput          Kind = "empty_output"
	GeneratorUnavailable Kind = "generator_unavailable"
	Timeout              Kind = "timeout"
	Cancelled            Kind = "cancelled"
	AlreadyRunning       Kind = "already_running"
	Transient            Kind = "transient"
	Permanent            Kind = "permanent"

	// Conflict is raised by guarded store writes whose precondition no
	// longer holds. It never leaves the core; callers translate it.
	Conflict Kind = "conflict"
)

// Retryable reports whether an operation that failed with k may succeed if
// repeated unchanged.
func (k Kind) Retryable() bool {
	return k == Transient || k == Timeout
}

// Error is a failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string // e.g. "store: set artifacts"
	Msg  string
	Err  error
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound             = &Error{Kind: NotFound}
	ErrInvalidState         = &Error{Kind: InvalidState}
	ErrInvalidTransition    = &Error{Kind: InvalidTransition}
	ErrEmptyInput           = &Error{Kind: EmptyInput}
	ErrEmptyOutput          = &Error{Kind: EmptyOutput}
	ErrGeneratorUnavailable = &Error{Kind: GeneratorUnavailable}
	ErrTimeout              = &Error{Kind: Timeout}
	ErrCancelled            = &Error{Kind: Cancelled}
	ErrAlreadyRunning       = &Error{Kind: AlreadyRunning}
	ErrTransient            = &Error{Kind: Transient}
	ErrPermanent            = &Error{Kind: Permanent}
	ErrConflict             = &Error{Kind: Conflict}
)

// New returns an Error with a formatted message.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var s string
	if e.Op != "" {
		s = e.Op + ": "
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		s += e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		s += e.Msg
	case e.Err != nil:
		s += e.Err.Error()
	default:
		s += string(e.Kind)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels of the same kind. A sentinel is an Error with only
// its Kind set.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost Error in err's chain. Untagged
// context errors map to Cancelled and Timeout; anything else untagged is
// Permanent. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	return Permanent
}

// FromContext converts a finished context into the matching error kind, or
// returns nil while ctx is still live.
func FromContext(ctx context.Context, op string) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: Timeout, Op: op, Err: err}
	default:
		return &Error{Kind: Cancelled, Op: op, Err: err}
	}
}
