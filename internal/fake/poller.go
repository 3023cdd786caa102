// File: internal/fake/poller.go
// Author: momentics <momentics@gmail.com>
//
// Scripted api.Poller for reactor tests.

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-http/api"
)

// Poller implements api.Poller. Batches queued with Push are returned by
// successive Wait calls; with nothing queued Wait blocks until Push, Wake,
// Close or the timeout.
type Poller struct {
	mu          sync.Mutex
	registered  map[int]bool
	batches     [][]api.Event
	signal      chan struct{}
	closed      bool
	RegisterErr map[int]error
	WaitErr     error
	Timeouts    []int
	WakeCount   int
}

// NewPoller returns an empty scripted poller.
func NewPoller() *Poller {
	return &Poller{
		registered:  make(map[int]bool),
		signal:      make(chan struct{}, 1),
		RegisterErr: make(map[int]error),
	}
}

// Push queues one wait batch.
func (p *Poller) Push(batch ...api.Event) {
	p.mu.Lock()
	p.batches = append(p.batches, batch)
	p.mu.Unlock()
	p.notify()
}

// Readable is shorthand for a read event on fd.
func Readable(fd int) api.Event {
	return api.Event{Fd: fd, Events: api.EventRead}
}

// Registered reports whether fd is currently in the interest set.
func (p *Poller) Registered(fd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registered[fd]
}

// RegisteredCount returns the size of the interest set.
func (p *Poller) RegisteredCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.registered)
}

func (p *Poller) RegisterRead(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.RegisterErr[fd]; err != nil {
		return err
	}
	p.registered[fd] = true
	return nil
}

func (p *Poller) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.registered, fd)
	return nil
}

func (p *Poller) Wait(events []api.Event, timeoutMs int) (int, error) {
	p.mu.Lock()
	p.Timeouts = append(p.Timeouts, timeoutMs)
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, api.ErrPollerClosed
		}
		if p.WaitErr != nil {
			err := p.WaitErr
			p.mu.Unlock()
			return 0, err
		}
		if len(p.batches) > 0 {
			batch := p.batches[0]
			p.batches = p.batches[1:]
			p.mu.Unlock()
			return copy(events, batch), nil
		}
		p.mu.Unlock()

		var timeout <-chan time.Time
		if timeoutMs >= 0 {
			timeout = time.After(time.Duration(timeoutMs) * time.Millisecond)
		}
		select {
		case <-p.signal:
			p.mu.Lock()
			woken := len(p.batches) == 0
			p.mu.Unlock()
			if woken {
				return 0, nil
			}
		case <-timeout:
			return 0, nil
		}
	}
}

func (p *Poller) Wake() error {
	p.mu.Lock()
	p.WakeCount++
	p.mu.Unlock()
	p.notify()
	return nil
}

func (p *Poller) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.notify()
	return nil
}

// Closed reports whether Close was called.
func (p *Poller) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Poller) notify() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}
