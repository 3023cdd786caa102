//go:build darwin || freebsd || netbsd || openbsd || dragonfly

// File: reactor/reactor_bsd.go
// Author: momentics <momentics@gmail.com>
//
// kqueue(2)-based poller for Darwin and the BSDs. EVFILT_READ interest only;
// a self-pipe implements Wake.

package reactor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
	"golang.org/x/sys/unix"
)

// kqueuePoller is a kqueue-based readiness multiplexer.
type kqueuePoller struct {
	kq     int
	wakeR  int
	wakeW  int
	raw    []unix.Kevent_t
	closed atomic.Bool
}

// NewPoller constructs the kqueue poller.
func NewPoller(maxEvents int) (api.Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, api.Wrap(api.ErrCodePoller, "kqueue create", err)
	}
	unix.CloseOnExec(kq)

	var pipe [2]int
	if err := unix.Pipe(pipe[:]); err != nil {
		_ = unix.Close(kq)
		return nil, api.Wrap(api.ErrCodePoller, "pipe", err)
	}
	for _, fd := range pipe {
		unix.CloseOnExec(fd)
		_ = unix.SetNonblock(fd, true)
	}
	p := &kqueuePoller{
		kq:    kq,
		wakeR: pipe[0],
		wakeW: pipe[1],
		raw:   make([]unix.Kevent_t, batchSize(maxEvents)),
	}
	if err := p.RegisterRead(p.wakeR); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func (p *kqueuePoller) change(fd, flags int) error {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, fd, unix.EVFILT_READ, flags)
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// RegisterRead adds an EVFILT_READ filter for fd.
func (p *kqueuePoller) RegisterRead(fd int) error {
	if err := p.change(fd, unix.EV_ADD); err != nil {
		return api.Wrap(api.ErrCodePoller, "kevent add", err).WithContext("fd", fd)
	}
	return nil
}

// Unregister deletes the EVFILT_READ filter for fd.
func (p *kqueuePoller) Unregister(fd int) error {
	if err := p.change(fd, unix.EV_DELETE); err != nil {
		return api.Wrap(api.ErrCodePoller, "kevent delete", err).WithContext("fd", fd)
	}
	return nil
}

// Wait blocks for events. timeoutMs < 0 means block infinitely.
func (p *kqueuePoller) Wait(events []api.Event, timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, api.ErrPollerClosed
	}
	raw := p.raw
	if len(events) < len(raw) {
		raw = raw[:len(events)]
	}
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1_000_000)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, raw, ts)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		if p.closed.Load() || errors.Is(err, unix.EBADF) {
			return 0, api.ErrPollerClosed
		}
		return 0, api.Wrap(api.ErrCodePoller, "kevent wait", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		ev := raw[i]
		fd := int(ev.Ident)
		if fd == p.wakeR {
			p.drainWake()
			continue
		}
		var t api.EventType
		switch ev.Filter {
		case unix.EVFILT_READ:
			t |= api.EventRead
		case unix.EVFILT_WRITE:
			t |= api.EventWrite
		}
		if ev.Flags&unix.EV_EOF != 0 {
			t |= api.EventHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			t |= api.EventError
		}
		events[out] = api.Event{Fd: fd, Events: t}
		out++
	}
	return out, nil
}

// Wake interrupts a blocked Wait.
func (p *kqueuePoller) Wake() error {
	if p.closed.Load() {
		return api.ErrPollerClosed
	}
	if _, err := unix.Write(p.wakeW, []byte{1}); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("wake pipe write: %w", err)
	}
	return nil
}

func (p *kqueuePoller) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the kqueue and the wake pipe.
func (p *kqueuePoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = unix.Close(p.wakeR)
	_ = unix.Close(p.wakeW)
	return unix.Close(p.kq)
}
