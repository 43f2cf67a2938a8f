// Package notify reports finished plan-to-build runs to chat channels.
// Delivery is best-effort: callers log a failed notification and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zulandar/foreman/internal/config"
	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/logging"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Failed    Outcome = "failed"
)

// Event describes one finished run.
type Event struct {
	ProjectID      string
	ProjectName    string
	SubprojectID   string
	SubprojectName string
	Outcome        Outcome
	Kind           fault.Kind // set when Outcome is Failed
	Message        string
	Tasks          int // parsed task count on success
	Duration       time.Duration
}

// Notifier delivers an Event.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier. Each failure is logged; the
// joined errors are returned.
type Multi []Notifier

// Notify delivers ev to every member.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			logging.Warn("notify: delivery failed", "sink", fmt.Sprintf("%T", n),
				"subproject", ev.SubprojectID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Colors used by the chat sinks.
const (
	colorSuccess = "#36a64f"
	colorFailure = "#d00000"
)

// Format renders the title, body and color for ev.
func Format(ev Event) (title, body, color string) {
	name := ev.SubprojectName
	if name == "" {
		name = ev.SubprojectID
	}
	if ev.ProjectName != "" {
		name = ev.ProjectName + " / " + name
	}

	var b strings.Builder
	if ev.Outcome == Succeeded {
		title = "Build plan ready: " + name
		fmt.Fprintf(&b, "PRD and %d tasks generated", ev.Tasks)
		color = colorSuccess
	} else {
		title = "Build plan failed: " + name
		fmt.Fprintf(&b, "%s", ev.Kind)
		if ev.Message != "" {
			fmt.Fprintf(&b, ": %s", ev.Message)
		}
		color = colorFailure
	}
	if ev.Duration > 0 {
		fmt.Fprintf(&b, " (%s)", ev.Duration.Round(time.Millisecond))
	}
	return title, b.String(), color
}

// FromConfig builds the notifier for the configured sinks. With none
// configured it returns Nop.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var sinks Multi
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, NewSlack(cfg.SlackWebhookURL))
	}
	if cfg.DiscordBotTokenEnv != "" {
		token := os.Getenv(cfg.DiscordBotTokenEnv)
		if token == "" {
			return nil, fmt.Errorf("notify: %s is empty", cfg.DiscordBotTokenEnv)
		}
		d, err := NewDiscord(token, cfg.DiscordChannelID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, d)
	}
	switch len(sinks) {
	case 0:
		return Nop{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
