package gateway

import "time"

// Config holds the watch-mode HTTP server settings.
type Config struct {
	Listen string

	// Token protects /status with a bearer token. Empty leaves /status
	// unmounted.
	Token string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// defaults fills zero values.
func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:9464"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}
