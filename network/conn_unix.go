//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: network/conn_unix.go
// Author: momentics <momentics@gmail.com>

package network

import (
	"errors"
	"io"
	"os"

	"github.com/momentics/hioload-http/api"
	"golang.org/x/sys/unix"
)

func (c *BaseConn) read(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == nil && n > 0:
			return n, nil
		case err == nil:
			return 0, io.EOF
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK):
			return 0, nil
		default:
			return 0, api.Wrap(api.ErrCodeSocket, "recv", err).WithContext("fd", c.fd)
		}
	}
}

// write sends all of p. The descriptor is non-blocking, so a full send
// buffer is waited out with poll(2), bounded by the write timeout.
func (c *BaseConn) write(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	total := 0
	for total < len(p) {
		n, err := unix.Write(c.fd, p[total:])
		if n > 0 {
			total += n
		}
		switch {
		case err == nil:
			if n == 0 {
				return total, io.ErrShortWrite
			}
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK):
			if werr := c.waitWritable(); werr != nil {
				return total, werr
			}
		default:
			return total, api.Wrap(api.ErrCodeSocket, "send", err).WithContext("fd", c.fd)
		}
	}
	return total, nil
}

func (c *BaseConn) waitWritable() error {
	timeout := -1
	if c.writeTimeout > 0 {
		timeout = int(c.writeTimeout.Milliseconds())
	}
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLOUT}}
	for {
		n, err := unix.Poll(fds, timeout)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return api.Wrap(api.ErrCodeSocket, "poll", err).WithContext("fd", c.fd)
		}
		if n == 0 {
			return api.Wrap(api.ErrCodeSocket, "send", os.ErrDeadlineExceeded).WithContext("fd", c.fd)
		}
		return nil
	}
}

func (c *BaseConn) close() error {
	return unix.Close(c.fd)
}
