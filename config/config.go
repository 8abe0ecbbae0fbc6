// Package config reads sidecar settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the sidecar settings. An empty RolesPath uses the built-in
// role table; an empty StorePath or TraceAddr disables that component.
type Config struct {
	SocketPath         string `env:"WARREN_SOCKET" envDefault:"/tmp/warren.sock"`
	RolesPath          string `env:"WARREN_ROLES"`
	StorePath          string `env:"WARREN_STORE" envDefault:"warren.db"`
	TraceAddr          string `env:"WARREN_TRACE_ADDR"`
	CheckpointInterval int    `env:"WARREN_CHECKPOINT_INTERVAL" envDefault:"100"`
	LogLevel           string `env:"WARREN_LOG_LEVEL" envDefault:"info"`
	Seed               uint64 `env:"WARREN_SEED"`
}

// Load reads .env (if any) and then the WARREN_* variables. Variables
// already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		slog.Debug("no .env file found, using process environment")
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.CheckpointInterval <= 0 {
		return nil, fmt.Errorf("WARREN_CHECKPOINT_INTERVAL must be positive, got %d", cfg.CheckpointInterval)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("WARREN_LOG_LEVEL: %w", err)
	}
	return l, nil
}
