//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: network/socket_unix.go
// Author: momentics <momentics@gmail.com>
//
// Socket creation, acceptance and sockaddr translation on Unix-like systems.

package network

import (
	"errors"

	"github.com/momentics/hioload-http/api"
	"golang.org/x/sys/unix"
)

func (s systemSockets) Listen(ep Endpoint, backlog int) (Descriptor, error) {
	sa, domain, err := toSockaddr(ep)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, socketError("socket", ep, err)
	}
	unix.CloseOnExec(fd)

	fail := func(op string, err error) (Descriptor, error) {
		_ = unix.Close(fd)
		return -1, socketError(op, ep, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt SO_REUSEADDR", err)
	}
	if domain == unix.AF_INET6 {
		// Keep IPv4 and IPv6 listeners independent so both can share a port.
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
			return fail("setsockopt IPV6_V6ONLY", err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("set nonblock", err)
	}
	return fd, nil
}

func (s systemSockets) Accept(fd Descriptor, local Endpoint) (Descriptor, Endpoint, error) {
	nfd, sa, err := acceptConn(fd)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) ||
			errors.Is(err, unix.EINTR) || errors.Is(err, unix.ECONNABORTED) {
			return -1, Endpoint{}, api.ErrWouldBlock
		}
		return -1, Endpoint{}, socketError("accept", local, err)
	}
	remote, err := fromSockaddr(sa)
	if err != nil {
		_ = unix.Close(nfd)
		return -1, Endpoint{}, err
	}
	return nfd, remote, nil
}

func (s systemSockets) LocalEndpoint(fd Descriptor) (Endpoint, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Endpoint{}, api.Wrap(api.ErrCodeSocket, "getsockname", err).WithContext("fd", fd)
	}
	return fromSockaddr(sa)
}

func (s systemSockets) Close(fd Descriptor) error {
	return unix.Close(fd)
}

func toSockaddr(ep Endpoint) (unix.Sockaddr, int, error) {
	switch ep.Address.Family() {
	case IPv4:
		sa := &unix.SockaddrInet4{Port: int(ep.Port)}
		copy(sa.Addr[:], ep.Address.Bytes())
		return sa, unix.AF_INET, nil
	case IPv6:
		sa := &unix.SockaddrInet6{Port: int(ep.Port)}
		copy(sa.Addr[:], ep.Address.Bytes())
		return sa, unix.AF_INET6, nil
	default:
		return nil, 0, api.NewError(api.ErrCodeNotSupported, "unsupported address family").
			WithContext("endpoint", ep.String())
	}
}

// fromSockaddr copies the peer address out of the OS structure. x/sys/unix
// has already converted the port to host byte order.
func fromSockaddr(sa unix.Sockaddr) (Endpoint, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return Endpoint{Address: NewIPv4(v.Addr), Port: uint16(v.Port)}, nil
	case *unix.SockaddrInet6:
		return Endpoint{Address: NewIPv6(v.Addr), Port: uint16(v.Port)}, nil
	default:
		return Endpoint{}, api.NewError(api.ErrCodeNotSupported, "unsupported sockaddr type").
			WithContext("type", sockaddrName(sa))
	}
}

func sockaddrName(sa unix.Sockaddr) string {
	switch sa.(type) {
	case *unix.SockaddrUnix:
		return "unix"
	case nil:
		return "nil"
	default:
		return "other"
	}
}

func socketError(op string, ep Endpoint, err error) error {
	return api.Wrap(api.ErrCodeSocket, op, err).WithContext("endpoint", ep.String())
}
