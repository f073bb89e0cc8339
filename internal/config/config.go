// Package config loads pipectl configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/srediag/plugin-pipe/pkg/pipe"
	"github.com/srediag/plugin-pipe/pkg/registry"
)

// Config holds all daemon configuration.
type Config struct {
	Pipes   PipeConfig
	Logging LogConfig
	HTTP    HTTPConfig
}

// PipeConfig sizes the pipe registry.
type PipeConfig struct {
	Count         int    `envconfig:"PIPE_COUNT" default:"4"`
	NamePrefix    string `envconfig:"PIPE_NAME_PREFIX" default:"pipe"`
	Capacity      int    `envconfig:"PIPE_CAPACITY" default:"4000"`
	MaxCapacity   int    `envconfig:"PIPE_MAX_CAPACITY" default:"67108864"`
	NotifyWorkers int    `envconfig:"PIPE_NOTIFY_WORKERS" default:"16"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// HTTPConfig holds the metrics and health endpoint configuration.
type HTTPConfig struct {
	Addr string `envconfig:"HTTP_ADDR" default:":9102"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Pipes: PipeConfig{
			Count:         registry.DefaultCount,
			NamePrefix:    registry.DefaultNamePrefix,
			Capacity:      pipe.DefaultCapacity,
			MaxCapacity:   pipe.DefaultMaxCapacity,
			NotifyWorkers: registry.DefaultNotifyWorkers,
		},
		Logging: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Addr: ":9102",
		},
	}
}

// Registry converts the pipe settings into a registry configuration.
func (c *Config) Registry() *registry.Config {
	rc := registry.DefaultConfig()
	rc.Count = c.Pipes.Count
	rc.NamePrefix = c.Pipes.NamePrefix
	rc.NotifyWorkers = c.Pipes.NotifyWorkers
	rc.Pipe.Capacity = c.Pipes.Capacity
	rc.Pipe.MaxCapacity = c.Pipes.MaxCapacity
	return rc
}

// Validate checks the configuration for values the registry would reject.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("invalid config: HTTP_ADDR must not be empty")
	}
	if err := registry.VerifyConfig(c.Registry()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
