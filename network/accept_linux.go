//go:build linux

// File: network/accept_linux.go
// Author: momentics <momentics@gmail.com>

package network

import "golang.org/x/sys/unix"

func acceptConn(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(fd, unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK)
}
