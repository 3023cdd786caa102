// File: internal/fake/sockets.go
// Author: momentics <momentics@gmail.com>
//
// Scripted network.SocketOps for reactor tests.

package fake

import (
	"sync"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/network"
)

// AcceptResult is one scripted outcome of Accept.
type AcceptResult struct {
	Fd     network.Descriptor
	Remote network.Endpoint
	Err    error
}

// Sockets hands out synthetic listening descriptors and replays queued
// accept results. Connection descriptors are supplied by the test, usually
// one end of a socketpair.
type Sockets struct {
	mu        sync.Mutex
	nextFd    network.Descriptor
	bound     map[network.Descriptor]network.Endpoint
	accepts   map[network.Descriptor][]AcceptResult
	closed    []network.Descriptor
	ListenErr map[string]error
}

// NewSockets returns scripted socket operations. Listening descriptors start at 100000
// so they never collide with real descriptors used by the same test.
func NewSockets() *Sockets {
	return &Sockets{
		nextFd:    100000,
		bound:     make(map[network.Descriptor]network.Endpoint),
		accepts:   make(map[network.Descriptor][]AcceptResult),
		ListenErr: make(map[string]error),
	}
}

// QueueAccept schedules the next Accept result for a listening descriptor.
func (s *Sockets) QueueAccept(listenFd network.Descriptor, r AcceptResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepts[listenFd] = append(s.accepts[listenFd], r)
}

// Closed returns the descriptors released through Close.
func (s *Sockets) Closed() []network.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]network.Descriptor(nil), s.closed...)
}

func (s *Sockets) Listen(ep network.Endpoint, _ int) (network.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ListenErr[ep.String()]; err != nil {
		return -1, err
	}
	fd := s.nextFd
	s.nextFd++
	s.bound[fd] = ep
	return fd, nil
}

func (s *Sockets) Accept(fd network.Descriptor, _ network.Endpoint) (network.Descriptor, network.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.accepts[fd]
	if len(queue) == 0 {
		return -1, network.Endpoint{}, api.ErrWouldBlock
	}
	r := queue[0]
	s.accepts[fd] = queue[1:]
	if r.Err != nil {
		return -1, network.Endpoint{}, r.Err
	}
	return r.Fd, r.Remote, nil
}

func (s *Sockets) LocalEndpoint(fd network.Descriptor) (network.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep, ok := s.bound[fd]
	if !ok {
		return network.Endpoint{}, api.ErrInvalidArgument
	}
	return ep, nil
}

func (s *Sockets) Close(fd network.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, fd)
	delete(s.bound, fd)
	return nil
}
