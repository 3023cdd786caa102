//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based poller. Level-triggered, read interest only; an
// eventfd registered alongside user descriptors implements Wake.

package reactor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
	"golang.org/x/sys/unix"
)

// epollPoller is an epoll-based readiness multiplexer.
type epollPoller struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
	closed atomic.Bool
}

// NewPoller constructs the epoll poller.
func NewPoller(maxEvents int) (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.Wrap(api.ErrCodePoller, "epoll create", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, api.Wrap(api.ErrCodePoller, "eventfd", err)
	}
	p := &epollPoller{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, batchSize(maxEvents)),
	}
	if err := p.RegisterRead(wakefd); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

// RegisterRead adds a file descriptor to the epoll watch list.
func (p *epollPoller) RegisterRead(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return api.Wrap(api.ErrCodePoller, "epoll ctl add", err).WithContext("fd", fd)
	}
	return nil
}

// Unregister removes a file descriptor from the epoll watch list.
func (p *epollPoller) Unregister(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return api.Wrap(api.ErrCodePoller, "epoll ctl del", err).WithContext("fd", fd)
	}
	return nil
}

// Wait blocks for events. timeoutMs < 0 means block infinitely.
func (p *epollPoller) Wait(events []api.Event, timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, api.ErrPollerClosed
	}
	raw := p.raw
	if len(events) < len(raw) {
		raw = raw[:len(events)]
	}
	if timeoutMs < 0 {
		timeoutMs = -1
	}
	n, err := unix.EpollWait(p.epfd, raw, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil // interrupted by signal
		}
		if p.closed.Load() || errors.Is(err, unix.EBADF) {
			return 0, api.ErrPollerClosed
		}
		return 0, api.Wrap(api.ErrCodePoller, "epoll wait", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		ev := raw[i]
		fd := int(ev.Fd)
		if fd == p.wakefd {
			p.drainWake()
			continue
		}
		var t api.EventType
		if ev.Events&unix.EPOLLIN != 0 {
			t |= api.EventRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			t |= api.EventWrite
		}
		if ev.Events&unix.EPOLLERR != 0 {
			t |= api.EventError
		}
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			t |= api.EventHangup
		}
		events[out] = api.Event{Fd: fd, Events: t}
		out++
	}
	return out, nil
}

// Wake interrupts a blocked Wait.
func (p *epollPoller) Wake() error {
	if p.closed.Load() {
		return api.ErrPollerClosed
	}
	one := []byte{1, 0, 0, 0, 0, 0, 0, 0}
	if _, err := unix.Write(p.wakefd, one); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakefd, buf[:])
}

// Close releases the epoll and eventfd descriptors.
func (p *epollPoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}
