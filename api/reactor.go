// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract readiness multiplexer used by the server reactor.
// Concrete backends (epoll, kqueue) live in package reactor and are selected
// at build time.

package api

// EventType is a bit set of readiness conditions reported for a descriptor.
type EventType uint8

const (
	EventRead EventType = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// Has reports whether all bits of t are set.
func (e EventType) Has(t EventType) bool {
	return e&t == t
}

func (e EventType) String() string {
	if e == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if e&EventRead != 0 {
		add("read")
	}
	if e&EventWrite != 0 {
		add("write")
	}
	if e&EventError != 0 {
		add("error")
	}
	if e&EventHangup != 0 {
		add("hangup")
	}
	return s
}

// Event encapsulates one OS-level readiness notification.
type Event struct {
	Fd     int
	Events EventType
}

// Poller defines a readiness multiplexer.
//
// Only read interest is registered by the core. Write readiness is reported
// through EventWrite by backends that support it, but nothing registers for it yet.
type Poller interface {
	// RegisterRead adds fd to the interest set for readability.
	RegisterRead(fd int) error

	// Unregister removes fd from the interest set.
	Unregister(fd int) error

	// Wait blocks until at least one descriptor is ready, the timeout
	// (milliseconds, -1 = infinite) elapses, or Wake is called.
	// It fills events and returns the number written.
	Wait(events []Event, timeoutMs int) (int, error)

	// Wake interrupts a blocked Wait from another goroutine.
	Wake() error

	// Close releases the multiplexer.
	Close() error
}
