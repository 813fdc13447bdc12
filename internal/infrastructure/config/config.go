package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/modshell/internal/shared/paths"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Contract is the part contract under which the shell exposes its config
const Contract = "shell.config"

func init() {
	types.RegisterContract[*Config](Contract)
}

// Config holds all application configuration.
type Config struct {
	Composition CompositionConfig
	Shell       ShellConfig
	Server      ServerConfig
	Logging     LogConfig
	RateLimit   RateLimitConfig
}

// CompositionConfig holds module discovery and cache configuration.
// Empty paths are resolved against the per-user layout.
type CompositionConfig struct {
	ExtensionsDir   string `envconfig:"EXTENSIONS_DIR"`
	ManifestPattern string `envconfig:"MANIFEST_PATTERN" default:"module.{yaml,yml,toml,json}"`
	CachePath       string `envconfig:"COMPOSITION_CACHE"`
	CacheDisabled   bool   `envconfig:"COMPOSITION_CACHE_DISABLED" default:"false"`
}

// ShellConfig holds settings consumed by built-in parts.
type ShellConfig struct {
	DataDir string `envconfig:"DATA_DIR"`
	GameDir string `envconfig:"GAME_DIR"`
	// A handler whose CanHandle fails this many times in a row is skipped
	// for HandlerCoolDown
	HandlerFailures uint32        `envconfig:"HANDLER_FAILURES" default:"3"`
	HandlerCoolDown time.Duration `envconfig:"HANDLER_COOLDOWN" default:"30s"`
}

// ServerConfig holds the diagnostics HTTP server configuration.
type ServerConfig struct {
	Enabled bool   `envconfig:"DIAG_ENABLED" default:"false"`
	Port    string `envconfig:"DIAG_PORT" default:"8765"`
	Host    string `envconfig:"DIAG_HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
	// File receives a JSON copy of the log; the run command defaults it
	// into the data directory
	File string `envconfig:"LOG_FILE"`
}

// RateLimitConfig holds rate limiting for forwarded activations.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Composition: CompositionConfig{
			ManifestPattern: "module.{yaml,yml,toml,json}",
		},
		Shell: ShellConfig{
			HandlerFailures: 3,
			HandlerCoolDown: 30 * time.Second,
		},
		Server: ServerConfig{
			Port: "8765",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			Enabled:           true,
		},
	}
}

// ResolvePaths fills empty directory settings from the layout.
func (c *Config) ResolvePaths(layout paths.Layout) {
	if c.Composition.ExtensionsDir == "" {
		c.Composition.ExtensionsDir = layout.ExtensionsDir()
	}
	if c.Composition.CachePath == "" {
		c.Composition.CachePath = layout.CacheFile()
	}
	if c.Shell.DataDir == "" {
		c.Shell.DataDir = layout.DataDir()
	}
}
