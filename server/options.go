// File: server/options.go
// Package server defines functional options for the reactor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/network"
)

type settings struct {
	logger      *slog.Logger
	poller      api.Poller
	sockets     network.SocketOps
	now         func() time.Time
	idleTimeout *time.Duration
	cpu         *int
}

// Option customizes server initialization.
type Option func(*settings)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithPoller injects a readiness multiplexer instead of the platform one.
func WithPoller(p api.Poller) Option {
	return func(s *settings) {
		s.poller = p
	}
}

// WithSocketOps injects socket operations instead of the OS ones.
func WithSocketOps(ops network.SocketOps) Option {
	return func(s *settings) {
		s.sockets = ops
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithIdleTimeout overrides Config.IdleTimeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.idleTimeout = &d
	}
}

// WithCPU pins the goroutine running Run to one CPU. Pinning is best effort:
// a failure is logged and the reactor runs unpinned.
func WithCPU(cpu int) Option {
	return func(s *settings) {
		s.cpu = &cpu
	}
}
