package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"tagged", New(NotFound, "store: get", "subproject %s", "s1"), NotFound},
		{"wrapped tagged", fmt.Errorf("outer: %w", Wrap(Transient, "store", errors.New("conn reset"))), Transient},
		{"context canceled", context.Canceled, Cancelled},
		{"context deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), Timeout},
		{"plain", errors.New("boom"), Permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs_Sentinels(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", New(AlreadyRunning, "pipeline: build", "subproject s1"))

	if !errors.Is(err, ErrAlreadyRunning) {
		t.Error("errors.Is(err, ErrAlreadyRunning) = false, want true")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = true, want false")
	}
}

func TestIs_UnwrapsCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Wrap(Transient, "store: list notes", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
	if !errors.Is(err, ErrTransient) {
		t.Error("kind sentinel not matched")
	}
}

func TestWrap_Nil(t *testing.T) {
	if err := Wrap(Permanent, "op", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: EmptyInput}, "empty_input"},
		{&Error{Kind: EmptyInput, Op: "pipeline"}, "pipeline: empty_input"},
		{&Error{Kind: EmptyInput, Op: "pipeline", Msg: "no notes"}, "pipeline: no notes"},
		{&Error{Kind: Transient, Op: "store", Msg: "list", Err: errors.New("eof")}, "store: list: eof"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	if err := FromContext(context.Background(), "op"); err != nil {
		t.Errorf("live context: got %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if k := KindOf(FromContext(ctx, "op")); k != Cancelled {
		t.Errorf("cancelled context kind = %q, want %q", k, Cancelled)
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if k := KindOf(FromContext(ctx, "op")); k != Timeout {
		t.Errorf("expired context kind = %q, want %q", k, Timeout)
	}
}

func TestKind_Retryable(t *testing.T) {
	if !Transient.Retryable() || !Timeout.Retryable() {
		t.Error("transient and timeout should be retryable")
	}
	if Permanent.Retryable() || EmptyOutput.Retryable() {
		t.Error("permanent and empty output should not be retryable")
	}
}
