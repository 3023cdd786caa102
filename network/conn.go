// File: network/conn.go
// Author: momentics <momentics@gmail.com>
//
// Connection base shared by all protocols served by the reactor.

package network

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultWriteTimeout bounds how long Send waits for a full socket buffer to drain.
const DefaultWriteTimeout = 5 * time.Second

// Conn is the contract the reactor is generic over.
type Conn interface {
	Descriptor() Descriptor
	LocalEndpoint() Endpoint
	RemoteEndpoint() Endpoint

	// HandleRead is invoked by the reactor when the descriptor is readable.
	HandleRead()

	// ShouldClose is checked by the reactor after every HandleRead.
	ShouldClose() bool

	// Close releases the descriptor. It must be idempotent.
	Close() error
}

// BaseConn wraps one accepted socket descriptor with its endpoints.
// It is not safe for concurrent use; the reactor touches it from a single goroutine.
type BaseConn struct {
	id           string
	fd           Descriptor
	local        Endpoint
	remote       Endpoint
	shouldClose  bool
	closed       bool
	writeTimeout time.Duration
}

// NewBaseConn takes ownership of fd.
func NewBaseConn(fd Descriptor, local, remote Endpoint) *BaseConn {
	return &BaseConn{
		id:           uuid.NewString(),
		fd:           fd,
		local:        local,
		remote:       remote,
		writeTimeout: DefaultWriteTimeout,
	}
}

// SetWriteTimeout changes the send timeout; zero or negative waits forever.
func (c *BaseConn) SetWriteTimeout(d time.Duration) { c.writeTimeout = d }

// ID returns a unique identifier used to correlate log lines.
func (c *BaseConn) ID() string { return c.id }

func (c *BaseConn) Descriptor() Descriptor   { return c.fd }
func (c *BaseConn) LocalEndpoint() Endpoint  { return c.local }
func (c *BaseConn) RemoteEndpoint() Endpoint { return c.remote }
func (c *BaseConn) ShouldClose() bool        { return c.shouldClose }

// MarkClose asks the reactor to close the connection after the current callback.
func (c *BaseConn) MarkClose() { c.shouldClose = true }

// Closed reports whether Close has been called.
func (c *BaseConn) Closed() bool { return c.closed }

// Read performs one non-blocking read into p. It returns (0, nil) when no
// data is available and (0, io.EOF) when the peer has closed; in the latter
// case, and on any other error, the connection is marked for closing.
func (c *BaseConn) Read(p []byte) (int, error) {
	n, err := c.read(p)
	if err != nil {
		c.shouldClose = true
	}
	return n, err
}

// Send writes all of p to the socket.
func (c *BaseConn) Send(p []byte) (int, error) {
	n, err := c.write(p)
	if err != nil {
		c.shouldClose = true
	}
	return n, err
}

// SendString writes s to the socket.
func (c *BaseConn) SendString(s string) (int, error) {
	return c.Send([]byte(s))
}

// Close closes the descriptor once.
func (c *BaseConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.shouldClose = true
	return c.close()
}

func (c *BaseConn) String() string {
	return fmt.Sprintf("connection from %s to %s", c.remote, c.local)
}
