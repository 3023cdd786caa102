//go:build darwin || freebsd || netbsd || openbsd || dragonfly

// File: network/accept_bsd.go
// Author: momentics <momentics@gmail.com>

package network

import "golang.org/x/sys/unix"

// acceptConn mirrors accept4(SOCK_CLOEXEC|SOCK_NONBLOCK), which the BSD
// family lacks.
func acceptConn(fd int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, nil, err
	}
	return nfd, sa, nil
}
