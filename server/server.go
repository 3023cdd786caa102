// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package server implements the single-threaded reactor: it owns the
// readiness multiplexer, the listening descriptors and the live connection
// table, and dispatches readiness events to connections.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-http/affinity"
	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/network"
	"github.com/momentics/hioload-http/reactor"
)

// ErrAlreadyRunning is returned by a second concurrent Run.
var ErrAlreadyRunning = api.ErrAlreadyRunning

// ConnFactory builds the protocol connection for an accepted descriptor.
type ConnFactory[C network.Conn] func(fd network.Descriptor, local, remote network.Endpoint) C

// Hooks are optional lifecycle callbacks. They run on the reactor goroutine.
type Hooks[C network.Conn] struct {
	OnOpen      func(C)
	OnDataReady func(C) // defaults to C.HandleRead
	OnClose     func(C)
}

type entry[C network.Conn] struct {
	conn       C
	lastActive time.Time
	batch      uint64 // wait cycle that accepted the connection
}

// Server is a reactor generic over the connection type it serves.
//
// All table mutation and every callback happen on the goroutine running
// HandleEvents/Run; only Shutdown may be called from elsewhere.
type Server[C network.Conn] struct {
	cfg       Config
	logger    *slog.Logger
	poller    api.Poller
	sockets   network.SocketOps
	factory   ConnFactory[C]
	hooks     Hooks[C]
	now       func() time.Time
	cpu       int
	listeners map[network.Descriptor]network.Endpoint
	conns     map[network.Descriptor]*entry[C]
	events    []api.Event
	batch     uint64
	metrics   *control.MetricsRegistry
	probes    *control.DebugProbes
	running   atomic.Bool
	stopping  atomic.Bool
}

// New creates the multiplexer and binds the primary endpoint. Failure of
// either is fatal and leaves nothing allocated.
func New[C network.Conn](factory ConnFactory[C], primary network.Endpoint, cfg *Config, opts ...Option) (*Server[C], error) {
	if factory == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "nil connection factory")
	}
	c := DefaultConfig()
	if cfg != nil {
		*c = *cfg
	}
	st := settings{}
	for _, opt := range opts {
		opt(&st)
	}
	if st.idleTimeout != nil {
		c.IdleTimeout = *st.idleTimeout
	}
	c.normalize()
	if st.logger == nil {
		st.logger = slog.Default()
	}
	if st.sockets == nil {
		st.sockets = network.SystemSockets()
	}
	if st.now == nil {
		st.now = time.Now
	}
	if st.poller == nil {
		p, err := reactor.NewPoller(c.MaxEvents)
		if err != nil {
			return nil, fmt.Errorf("create poller: %w", err)
		}
		st.poller = p
	}

	s := &Server[C]{
		cfg:       *c,
		logger:    st.logger,
		poller:    st.poller,
		sockets:   st.sockets,
		factory:   factory,
		now:       st.now,
		cpu:       -1,
		listeners: make(map[network.Descriptor]network.Endpoint),
		conns:     make(map[network.Descriptor]*entry[C]),
		events:    make([]api.Event, c.MaxEvents),
		metrics:   control.NewMetricsRegistry(),
		probes:    control.NewDebugProbes(),
	}
	if st.cpu != nil {
		s.cpu = *st.cpu
	}
	startedAt := s.now()
	s.probes.RegisterProbe("started_at", func() any { return startedAt })
	s.probes.RegisterProbe("max_events", func() any { return s.cfg.MaxEvents })
	s.probes.RegisterProbe("idle_timeout", func() any { return s.cfg.IdleTimeout.String() })

	if err := s.AddEndpoint(primary); err != nil {
		_ = s.poller.Close()
		return nil, err
	}
	return s, nil
}

// SetHooks installs lifecycle callbacks. Call before Run.
func (s *Server[C]) SetHooks(h Hooks[C]) {
	s.hooks = h
}

// AddEndpoint binds and registers an additional listening endpoint.
// Call before Run or from a hook.
func (s *Server[C]) AddEndpoint(ep network.Endpoint) error {
	fd, err := s.sockets.Listen(ep, s.cfg.Backlog)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", ep, err)
	}
	if err := s.poller.RegisterRead(fd); err != nil {
		_ = s.sockets.Close(fd)
		return fmt.Errorf("register listener %s: %w", ep, err)
	}
	bound := ep
	if actual, err := s.sockets.LocalEndpoint(fd); err == nil {
		bound = network.Endpoint{Address: actual.Address.WithHostname(ep.Address.Hostname()), Port: actual.Port}
	}
	s.listeners[fd] = bound
	s.metrics.Set("listeners", int64(len(s.listeners)))
	s.logger.Info("listening for connections", slog.String("endpoint", bound.String()), slog.Int("fd", fd))
	return nil
}

// Endpoints returns the bound listening endpoints, sorted by their string form.
func (s *Server[C]) Endpoints() []network.Endpoint {
	out := make([]network.Endpoint, 0, len(s.listeners))
	for _, ep := range s.listeners {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of live connections.
func (s *Server[C]) Len() int { return len(s.conns) }

// Connection looks up a live connection by descriptor.
func (s *Server[C]) Connection(fd network.Descriptor) (C, bool) {
	e, ok := s.conns[fd]
	if !ok {
		var zero C
		return zero, false
	}
	return e.conn, true
}

// Stats merges counters and debug probes.
func (s *Server[C]) Stats() map[string]any {
	return control.Merge(s.metrics, s.probes)
}

// Run repeats HandleEvents until Shutdown is called or ctx is cancelled,
// then closes every connection, every listener and the poller.
func (s *Server[C]) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	defer s.teardown()

	stop := context.AfterFunc(ctx, s.Shutdown)
	defer stop()

	if s.cpu >= 0 {
		restore, err := affinity.Pin(s.cpu)
		defer restore()
		if err != nil {
			s.logger.Warn("cpu pinning failed", slog.Int("cpu", s.cpu), slog.Any("error", err))
		} else {
			s.logger.Info("reactor pinned", slog.Int("cpu", s.cpu))
			s.probes.RegisterProbe("cpu", func() any { return s.cpu })
		}
	}

	for !s.stopping.Load() {
		if err := s.HandleEvents(); err != nil {
			if errors.Is(err, api.ErrPollerClosed) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Shutdown asks Run to return. Safe to call from any goroutine.
func (s *Server[C]) Shutdown() {
	if s.stopping.CompareAndSwap(false, true) {
		_ = s.poller.Wake()
	}
}

// HandleEvents runs one wait/dispatch cycle. Events are processed in the
// order the multiplexer returned them.
func (s *Server[C]) HandleEvents() error {
	n, err := s.poller.Wait(s.events, s.waitTimeout())
	if err != nil {
		return err
	}
	s.batch++
	for i := 0; i < n; i++ {
		s.handleEvent(s.events[i])
	}
	if s.cfg.IdleTimeout > 0 {
		s.evictIdle()
	}
	return nil
}

func (s *Server[C]) waitTimeout() int {
	if s.cfg.IdleTimeout <= 0 {
		return -1
	}
	ms := int(s.cfg.IdleTimeout.Milliseconds() / 2)
	if ms < 10 {
		ms = 10
	}
	if ms > 1000 {
		ms = 1000
	}
	return ms
}

func (s *Server[C]) handleEvent(ev api.Event) {
	if local, ok := s.listeners[ev.Fd]; ok {
		s.acceptConnection(ev.Fd, local)
		return
	}
	e, ok := s.conns[ev.Fd]
	if !ok {
		// Stale event for a descriptor closed earlier in this batch.
		return
	}
	if e.batch == s.batch {
		// Accepted after Wait returned: the descriptor number may have been
		// reused from a connection closed earlier in this batch.
		return
	}
	if ev.Events&(api.EventRead|api.EventHangup|api.EventError) == 0 {
		return
	}
	e.lastActive = s.now()
	if !s.dataReady(e.conn) {
		s.closeConnection(e.conn, "panic")
		return
	}
	if e.conn.ShouldClose() {
		s.closeConnection(e.conn, "closed")
	}
}

// dataReady runs the read callback and reports false if it panicked.
func (s *Server[C]) dataReady(c C) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("connection callback panicked",
				slog.Int("fd", c.Descriptor()),
				slog.String("remote", c.RemoteEndpoint().String()),
				slog.Any("panic", r))
			ok = false
		}
	}()
	if s.hooks.OnDataReady != nil {
		s.hooks.OnDataReady(c)
	} else {
		c.HandleRead()
	}
	return true
}

func (s *Server[C]) acceptConnection(fd network.Descriptor, local network.Endpoint) {
	nfd, remote, err := s.sockets.Accept(fd, local)
	if err != nil {
		if errors.Is(err, api.ErrWouldBlock) {
			return
		}
		s.metrics.Add("accept.errors", 1)
		s.logger.Warn("unable to accept connection",
			slog.String("endpoint", local.String()), slog.Any("error", err))
		return
	}

	conn := s.factory(nfd, local, remote)
	if err := s.poller.RegisterRead(nfd); err != nil {
		s.metrics.Add("accept.errors", 1)
		s.logger.Warn("unable to register connection",
			slog.String("remote", remote.String()), slog.Any("error", err))
		_ = conn.Close()
		return
	}
	s.conns[nfd] = &entry[C]{conn: conn, lastActive: s.now(), batch: s.batch}
	s.metrics.Add("connections.opened", 1)
	s.metrics.Set("connections.active", int64(len(s.conns)))
	s.logger.Debug("connection opened",
		slog.Int("fd", nfd),
		slog.String("remote", remote.String()),
		slog.String("local", local.String()))
	if s.hooks.OnOpen != nil {
		s.hooks.OnOpen(conn)
	}
}

// closeConnection unregisters, closes and forgets a connection in one step,
// so no later event in the batch can reach it.
func (s *Server[C]) closeConnection(c C, reason string) {
	fd := c.Descriptor()
	if _, ok := s.conns[fd]; !ok {
		return
	}
	if err := s.poller.Unregister(fd); err != nil {
		s.logger.Debug("unregister failed", slog.Int("fd", fd), slog.Any("error", err))
	}
	if err := c.Close(); err != nil {
		s.logger.Debug("close failed", slog.Int("fd", fd), slog.Any("error", err))
	}
	delete(s.conns, fd)
	s.metrics.Add("connections.closed", 1)
	s.metrics.Set("connections.active", int64(len(s.conns)))
	s.logger.Debug("connection closed",
		slog.Int("fd", fd),
		slog.String("remote", c.RemoteEndpoint().String()),
		slog.String("reason", reason))
	if s.hooks.OnClose != nil {
		s.hooks.OnClose(c)
	}
}

func (s *Server[C]) evictIdle() {
	deadline := s.now().Add(-s.cfg.IdleTimeout)
	var idle []C
	for _, e := range s.conns {
		if e.lastActive.Before(deadline) {
			idle = append(idle, e.conn)
		}
	}
	for _, c := range idle {
		s.metrics.Add("connections.evicted", 1)
		s.closeConnection(c, "idle")
	}
}

func (s *Server[C]) teardown() {
	for _, e := range s.conns {
		s.closeConnection(e.conn, "shutdown")
	}
	for fd, ep := range s.listeners {
		_ = s.poller.Unregister(fd)
		if err := s.sockets.Close(fd); err != nil {
			s.logger.Debug("close listener failed", slog.String("endpoint", ep.String()), slog.Any("error", err))
		}
		delete(s.listeners, fd)
	}
	s.metrics.Set("listeners", 0)
	_ = s.poller.Close()
	s.logger.Info("server stopped")
}
