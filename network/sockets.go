// File: network/sockets.go
// Author: momentics <momentics@gmail.com>
//
// Platform socket operations used by the reactor.

package network

// Descriptor is an OS socket handle. It is owned by exactly one of a
// server's listener table or a single connection.
type Descriptor = int

// SocketOps creates, accepts and closes sockets. SystemSockets is the OS
// implementation; tests substitute scripted versions.
type SocketOps interface {
	// Listen creates a non-blocking socket bound to ep and listening.
	Listen(ep Endpoint, backlog int) (Descriptor, error)

	// Accept accepts one pending connection on a listening descriptor.
	// It returns api.ErrWouldBlock when nothing is pending.
	Accept(fd Descriptor, local Endpoint) (Descriptor, Endpoint, error)

	// LocalEndpoint reports the address a descriptor is bound to.
	LocalEndpoint(fd Descriptor) (Endpoint, error)

	// Close releases a descriptor.
	Close(fd Descriptor) error
}

// SystemSockets returns the SocketOps backed by the operating system.
// Accepted descriptors are non-blocking and close-on-exec.
func SystemSockets() SocketOps {
	return systemSockets{}
}

type systemSockets struct{}
