// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/momentics/hioload-http/reactor"
)

// Config holds reactor configuration parameters.
type Config struct {
	MaxEvents   int           // events fetched per wait batch
	Backlog     int           // listen(2) backlog
	IdleTimeout time.Duration // evict connections silent this long (0 = never)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxEvents:   reactor.DefaultMaxEvents,
		Backlog:     16,
		IdleTimeout: 0,
	}
}

func (c *Config) normalize() {
	if c.MaxEvents <= 0 {
		c.MaxEvents = reactor.DefaultMaxEvents
	}
	if c.Backlog <= 0 {
		c.Backlog = 16
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
}
