// Package config loads server settings from an optional YAML file and the
// environment, applies defaults, and validates the result.
package config

import "time"

// Config is the root server configuration.
type Config struct {
	Port            string          `yaml:"port" env:"SERVER_PORT"`
	AllowedOrigins  []string        `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxMessageSize  int64           `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	SendBufferSize  int             `yaml:"send_buffer_size" env:"SEND_BUFFER_SIZE"`
	PingInterval    time.Duration   `yaml:"ping_interval" env:"PING_INTERVAL"`
	PongWait        time.Duration   `yaml:"pong_wait" env:"PONG_WAIT"`
	WriteWait       time.Duration   `yaml:"write_wait" env:"WRITE_WAIT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Log             LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Telemetry       TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

// RateLimitConfig defines per-session inbound frame throttling.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst" env:"BURST"`
	RefillInterval time.Duration `yaml:"refill_interval" env:"REFILL_INTERVAL"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig controls OTLP trace export. Export is off unless Enabled
// is set and Endpoint is non-empty.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}
