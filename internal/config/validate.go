package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
)

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Port); err != nil {
		return fmt.Errorf("port %q: %w", c.Port, err)
	}

	if c.PongWait <= c.PingInterval {
		return fmt.Errorf("pong_wait (%s) must exceed ping_interval (%s)", c.PongWait, c.PingInterval)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry.endpoint is required when telemetry is enabled")
		}
		if _, err := url.ParseRequestURI(c.Telemetry.Endpoint); err != nil {
			return fmt.Errorf("telemetry.endpoint: %w", err)
		}
	}

	return nil
}

// SlogLevel parses Level into a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
