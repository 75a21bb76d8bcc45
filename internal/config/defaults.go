package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort            = ":8080"
	DefaultOrigin          = "http://localhost:8080"
	DefaultMaxMessageSize  = 4096
	DefaultSendBufferSize  = 256
	DefaultPingInterval    = 54 * time.Second
	DefaultPongWait        = 60 * time.Second
	DefaultWriteWait       = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRateBurst       = 5
	DefaultRateRefill      = time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultServiceName     = "gonotify"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{DefaultOrigin}
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = DefaultSendBufferSize
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = DefaultRateBurst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = DefaultRateRefill
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}
