// Package dbping probes a database endpoint over any scheme the toolkit
// understands and reports round-trip latency. It doubles as a smoke test
// for the cancellation protocol: a ping that overruns its deadline poisons
// the session, and dbping discards and redials instead of reusing it.
package dbping

import (
	"fmt"
	"io"
	"time"
)

// Config holds all configuration options for a ping run.
type Config struct {
	// Endpoint to probe (e.g. "ws://localhost:8000", "redis://localhost:6379")
	URL string

	// Number of pings to send
	Count int
	// Pause between consecutive pings
	Interval time.Duration
	// Deadline applied to each individual ping; zero means no deadline
	Timeout time.Duration

	// Enable verbose logging
	Verbose bool

	// Destination for log output; defaults to os.Stderr
	LogWriter io.Writer
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		URL:      "ws://localhost:8000",
		Count:    4,
		Interval: time.Second,
		Timeout:  5 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
