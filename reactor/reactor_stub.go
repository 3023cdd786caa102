//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "github.com/momentics/hioload-http/api"

// NewPoller returns api.ErrNotSupported on platforms without epoll or kqueue.
func NewPoller(int) (api.Poller, error) {
	return nil, api.ErrNotSupported
}
