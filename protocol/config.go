// File: protocol/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"log/slog"
	"time"

	"github.com/momentics/hioload-http/network"
	"github.com/momentics/hioload-http/pool"
)

// Config holds HTTP connection parameters.
type Config struct {
	ReadBufferSize int           // bytes read per readiness event
	MaxLineLength  int           // longest request/header line accepted
	MaxBodySize    int           // largest Content-Length accepted
	WriteTimeout   time.Duration // bound on a blocked response write (0 = unbounded)
	ServerName     string        // Server header value
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize: pool.DefaultBufferSize,
		MaxLineLength:  8 << 10,
		MaxBodySize:    10 << 20,
		WriteTimeout:   network.DefaultWriteTimeout,
		ServerName:     DefaultServerName,
	}
}

func (c *Config) normalize() {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = pool.DefaultBufferSize
	}
	if c.ServerName == "" {
		c.ServerName = DefaultServerName
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
