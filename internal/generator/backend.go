package generator

import (
	"context"
	"fmt"

	"github.com/zulandar/foreman/internal/config"
)

// NewBackend builds the backend selected by cfg. ctx scopes the OAuth token
// source when client credentials are configured.
func NewBackend(ctx context.Context, cfg config.GeneratorConfig) (Backend, error) {
	switch cfg.Backend {
	case "http":
		if cfg.OAuth.Enabled() {
			return NewHTTPBackend(cfg.Endpoint, OAuthClient(ctx, cfg.OAuth)), nil
		}
		return NewHTTPBackend(cfg.Endpoint, nil), nil
	case "command":
		return NewCommandBackend(cfg.Command), nil
	default:
		return nil, fmt.Errorf("generator: unknown backend %q", cfg.Backend)
	}
}

// FromConfig returns a Client wired to the configured backend and retry
// policy.
func FromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	backend, err := NewBackend(ctx, cfg.Generator)
	if err != nil {
		return nil, err
	}
	return New(backend, ConfigFrom(cfg)), nil
}
