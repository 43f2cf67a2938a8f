// Package config provides YAML-based configuration loading for Foreman.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // aggregation.timezone must resolve in minimal images

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults for the generator client and pipeline.
const (
	DefaultGeneratorTimeoutMs = 60000
	DefaultMaxAttempts        = 3
	DefaultBackoffBaseMs      = 500
	DefaultBackoffFactor      = 2.0
	DefaultBackoffJitter      = 0.2
	DefaultTimezone           = "UTC"
	DefaultReconcileCron      = "*/5 * * * *"
	DefaultDashboardPort      = 8080
)

// Config is the top-level Foreman configuration, loaded from foreman.yaml.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Lifecycle   LifecycleConfig   `yaml:"lifecycle"`
	Notify      NotifyConfig      `yaml:"notify"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// DatabaseConfig selects and locates the persistence engine.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or mysql
	Path   string `yaml:"path"`   // sqlite file, ":memory:" allowed
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
	// PasswordEnv names the environment variable holding the MySQL password.
	PasswordEnv string `yaml:"password_env"`
}

// GeneratorConfig configures the external PRD/task generator and the retry
// policy applied to it.
type GeneratorConfig struct {
	Backend       string      `yaml:"backend"` // http or command
	Endpoint      string      `yaml:"endpoint"`
	Command       string      `yaml:"command"`
	Model         string      `yaml:"model"`
	TimeoutMs     int         `yaml:"timeout_ms"`
	MaxAttempts   int         `yaml:"max_attempts"`
	BackoffBaseMs *int        `yaml:"backoff_base_ms"`
	BackoffFactor float64     `yaml:"backoff_factor"`
	BackoffJitter *float64    `yaml:"backoff_jitter"`
	OAuth         OAuthConfig `yaml:"oauth"`
}

// OAuthConfig holds optional client-credentials settings for the HTTP backend.
type OAuthConfig struct {
	TokenURL        string   `yaml:"token_url"`
	ClientID        string   `yaml:"client_id"`
	ClientSecretEnv string   `yaml:"client_secret_env"`
	Scopes          []string `yaml:"scopes"`
}

// Enabled reports whether enough is set to request tokens.
func (o OAuthConfig) Enabled() bool {
	return o.TokenURL != "" && o.ClientID != ""
}

// PipelineConfig bounds a whole plan-to-build run.
type PipelineConfig struct {
	DeadlineMs int `yaml:"deadline_ms"` // 0 disables the deadline
}

// AggregationConfig controls how notes are rendered for the generator.
type AggregationConfig struct {
	Timezone string `yaml:"timezone"`
}

// LifecycleConfig controls project status convergence.
type LifecycleConfig struct {
	ReconcileCron string `yaml:"reconcile_cron"` // "off" disables the sweep
}

// NotifyConfig lists optional pipeline outcome sinks.
type NotifyConfig struct {
	SlackWebhookURL    string `yaml:"slack_webhook_url"`
	DiscordBotTokenEnv string `yaml:"discord_bot_token_env"`
	DiscordChannelID   string `yaml:"discord_channel_id"`
}

// DashboardConfig holds HTTP server settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, backed by a
// local SQLite file. It is not validated: the generator endpoint is unset.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "foreman.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.Name == "" {
			c.Database.Name = "foreman"
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}

	g := &c.Generator
	if g.Backend == "" {
		g.Backend = "http"
	}
	if g.Backend == "command" && g.Command == "" {
		g.Command = "claude"
	}
	if g.TimeoutMs == 0 {
		g.TimeoutMs = DefaultGeneratorTimeoutMs
	}
	if g.MaxAttempts == 0 {
		g.MaxAttempts = DefaultMaxAttempts
	}
	if g.BackoffBaseMs == nil {
		b := DefaultBackoffBaseMs
		g.BackoffBaseMs = &b
	}
	if g.BackoffFactor == 0 {
		g.BackoffFactor = DefaultBackoffFactor
	}
	if g.BackoffJitter == nil {
		j := DefaultBackoffJitter
		g.BackoffJitter = &j
	}

	if c.Aggregation.Timezone == "" {
		c.Aggregation.Timezone = DefaultTimezone
	}
	if c.Lifecycle.ReconcileCron == "" {
		c.Lifecycle.ReconcileCron = DefaultReconcileCron
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = DefaultDashboardPort
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string

	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Port < 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port %d out of range", c.Database.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}

	g := c.Generator
	switch g.Backend {
	case "http":
		if g.Endpoint == "" {
			errs = append(errs, "generator.endpoint is required for the http backend")
		} else if u, err := url.Parse(g.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("generator.endpoint %q is not an absolute URL", g.Endpoint))
		}
	case "command":
	default:
		errs = append(errs, fmt.Sprintf("generator.backend %q must be http or command", g.Backend))
	}
	if g.TimeoutMs < 0 {
		errs = append(errs, "generator.timeout_ms must be positive")
	}
	if g.MaxAttempts < 1 {
		errs = append(errs, "generator.max_attempts must be at least 1")
	}
	if *g.BackoffBaseMs < 0 {
		errs = append(errs, "generator.backoff_base_ms must not be negative")
	}
	if g.BackoffFactor < 1 {
		errs = append(errs, "generator.backoff_factor must be at least 1")
	}
	if j := *g.BackoffJitter; j < 0 || j >= 1 {
		errs = append(errs, fmt.Sprintf("generator.backoff_jitter %v must be in [0, 1)", j))
	}
	if g.OAuth.TokenURL != "" && g.OAuth.ClientID == "" {
		errs = append(errs, "generator.oauth.client_id is required with token_url")
	}

	if c.Pipeline.DeadlineMs < 0 {
		errs = append(errs, "pipeline.deadline_ms must not be negative")
	}
	if _, err := time.LoadLocation(c.Aggregation.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("aggregation.timezone %q: %v", c.Aggregation.Timezone, err))
	}
	if c.Lifecycle.ReconcileCron != "off" {
		if _, err := cron.ParseStandard(c.Lifecycle.ReconcileCron); err != nil {
			errs = append(errs, fmt.Sprintf("lifecycle.reconcile_cron %q: %v", c.Lifecycle.ReconcileCron, err))
		}
	}
	if (c.Notify.DiscordBotTokenEnv == "") != (c.Notify.DiscordChannelID == "") {
		errs = append(errs, "notify.discord_bot_token_env and notify.discord_channel_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GeneratorTimeout is the per-call generator timeout.
func (c *Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutMs) * time.Millisecond
}

// BackoffBase is the delay before the first generator retry.
func (c *Config) BackoffBase() time.Duration {
	if c.Generator.BackoffBaseMs == nil {
		return time.Duration(DefaultBackoffBaseMs) * time.Millisecond
	}
	return time.Duration(*c.Generator.BackoffBaseMs) * time.Millisecond
}

// PipelineDeadline is the whole-pipeline deadline; zero means none.
func (c *Config) PipelineDeadline() time.Duration {
	return time.Duration(c.Pipeline.DeadlineMs) * time.Millisecond
}

// Location resolves the aggregation timezone. Validation guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Aggregation.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
