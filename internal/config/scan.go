package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sethvargo/go-envconfig"
)

type ScanConfig struct {
	MaxProbe       int    `env:"OPUSSCAN_MAX_PROBE, default=1000"`
	BufferSize     int    `env:"OPUSSCAN_BUFFER_SIZE, default=1048576"`
	KeepTail       int    `env:"OPUSSCAN_KEEP_TAIL, default=4096"`
	VerifyBoundary bool   `env:"OPUSSCAN_VERIFY_BOUNDARY, default=false"`
	LogLevel       string `env:"OPUSSCAN_LOG_LEVEL, default=info"`
}

func NewScanConfigFromEnv() (*ScanConfig, error) {
	var cfg ScanConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that envconfig cannot. It is called again by
// the CLI after flags override the environment.
func (c *ScanConfig) Validate() error {
	if c.MaxProbe <= 0 {
		return fmt.Errorf("OPUSSCAN_MAX_PROBE must be positive, got %d", c.MaxProbe)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("OPUSSCAN_BUFFER_SIZE must be positive, got %d", c.BufferSize)
	}
	if c.KeepTail < 0 || c.KeepTail >= c.BufferSize {
		return fmt.Errorf("OPUSSCAN_KEEP_TAIL must be in [0, %d), got %d", c.BufferSize, c.KeepTail)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel as a slog level name such as "debug" or "warn".
func (c *ScanConfig) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid OPUSSCAN_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
