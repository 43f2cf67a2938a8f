// Package generator calls the external service that turns aggregated notes
// into a PRD and a PRD into task markdown.
//
// The Client owns the retry policy. A Backend performs one attempt and tags
// its failures with Transient or Permanent; the Client applies the per-call
// timeout, retries transient failures with exponential backoff and reports
// GeneratorUnavailable once attempts run out.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/zulandar/foreman/internal/config"
	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/logging"
)

// Op names the two generator operations.
type Op string

const (
	OpPRD   Op = "prd"
	OpTasks Op = "tasks"
)

// Request is one generation call.
type Request struct {
	Op    Op     `json:"op"`
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

// Backend performs a single generation attempt. Implementations return the
// generated markdown, or an error wrapped with Transient or Permanent.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Transient marks err as retryable: timeouts, rate limits, network errors.
func Transient(err error) error {
	return fault.Wrap(fault.Transient, "generator", err)
}

// Permanent marks err as not retryable: malformed input, policy rejection.
func Permanent(err error) error {
	return fault.Wrap(fault.Permanent, "generator", err)
}

// Config is the Client retry policy.
type Config struct {
	Timeout       time.Duration // per attempt
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffJitter float64 // fraction, applied as ±jitter
	Model         string
}

// DefaultConfig returns 60s per call, 3 attempts, 500ms base, factor 2 and
// ±20% jitter.
func DefaultConfig() Config {
	return Config{
		Timeout:       time.Duration(config.DefaultGeneratorTimeoutMs) * time.Millisecond,
		MaxAttempts:   config.DefaultMaxAttempts,
		BackoffBase:   time.Duration(config.DefaultBackoffBaseMs) * time.Millisecond,
		BackoffFactor: config.DefaultBackoffFactor,
		BackoffJitter: config.DefaultBackoffJitter,
	}
}

// ConfigFrom builds the retry policy from a loaded configuration.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		Timeout:       cfg.GeneratorTimeout(),
		MaxAttempts:   cfg.Generator.MaxAttempts,
		BackoffBase:   cfg.BackoffBase(),
		BackoffFactor: cfg.Generator.BackoffFactor,
		Model:         cfg.Generator.Model,
	}
	if cfg.Generator.BackoffJitter != nil {
		c.BackoffJitter = *cfg.Generator.BackoffJitter
	}
	return c
}

// Client wraps a Backend with timeouts and retries.
type Client struct {
	backend Backend
	cfg     Config

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64 // uniform in [0, 1)
}

// New returns a Client over backend. A zero Timeout, MaxAttempts or
// BackoffFactor takes its default. A zero BackoffBase or BackoffJitter is
// kept and disables that part of the backoff; start from DefaultConfig for
// the full default policy.
func New(backend Backend, cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = 0
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.BackoffJitter < 0 || cfg.BackoffJitter >= 1 {
		cfg.BackoffJitter = def.BackoffJitter
	}
	return &Client{
		backend: backend,
		cfg:     cfg,
		sleep:   sleepContext,
		jitter:  rand.Float64,
	}
}

// SynthesizePRD turns an aggregated notes document into PRD markdown.
func (c *Client) SynthesizePRD(ctx context.Context, aggregated string) (string, error) {
	return c.generate(ctx, OpPRD, aggregated)
}

// SynthesizeTasks turns PRD markdown into task markdown.
func (c *Client) SynthesizeTasks(ctx context.Context, prd string) (string, error) {
	return c.generate(ctx, OpTasks, prd)
}

func (c *Client) generate(ctx context.Context, op Op, input string) (string, error) {
	name := "generator: " + string(op)
	if strings.TrimSpace(input) == "" {
		return "", fault.New(fault.Permanent, name, "input is empty")
	}
	req := Request{Op: op, Model: c.cfg.Model, Input: input}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.Backoff(attempt - 1)
			logging.Warn("generator: transient failure, retrying",
				"op", op, "attempt", attempt, "delay", delay, "error", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return "", fault.FromContext(ctx, name)
			}
		}
		if err := fault.FromContext(ctx, name); err != nil {
			return "", err
		}

		out, err := c.attempt(ctx, req)
		if err == nil {
			if strings.TrimSpace(out) == "" {
				return "", fault.New(fault.EmptyOutput, name, "generator returned empty %s markdown", op)
			}
			return out, nil
		}
		if cerr := fault.FromContext(ctx, name); cerr != nil {
			return "", cerr
		}
		if !retryable(err) {
			return "", fault.Wrap(fault.Permanent, name, err)
		}
		lastErr = err
	}
	return "", &fault.Error{
		Kind: fault.GeneratorUnavailable,
		Op:   name,
		Msg:  fmt.Sprintf("%d attempts failed", c.cfg.MaxAttempts),
		Err:  lastErr,
	}
}

// attempt runs one backend call under the per-call timeout. Expiry of that
// timeout, while the caller's context is live, is transient.
func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, err := c.backend.Generate(actx, req)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return "", fault.Wrap(fault.Transient, "generator",
			fmt.Errorf("call timed out after %v: %w", c.cfg.Timeout, err))
	}
	return out, err
}

func retryable(err error) bool {
	switch fault.KindOf(err) {
	case fault.Transient, fault.Timeout:
		return true
	case fault.Permanent:
		var netErr net.Error
		var fe *fault.Error
		// Untagged network errors from a backend are retryable.
		return !errors.As(err, &fe) && errors.As(err, &netErr)
	}
	return false
}

// Backoff returns the delay before retry n (1-based):
// base * factor^(n-1), scaled by a random factor in [1-jitter, 1+jitter).
func (c *Client) Backoff(n int) time.Duration {
	d := float64(c.cfg.BackoffBase) * math.Pow(c.cfg.BackoffFactor, float64(n-1))
	if j := c.cfg.BackoffJitter; j > 0 {
		d *= 1 + j*(2*c.jitter()-1)
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
