//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

// File: network/socket_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package network

import "github.com/momentics/hioload-http/api"

func (systemSockets) Listen(Endpoint, int) (Descriptor, error) {
	return -1, api.ErrNotSupported
}

func (systemSockets) Accept(Descriptor, Endpoint) (Descriptor, Endpoint, error) {
	return -1, Endpoint{}, api.ErrNotSupported
}

func (systemSockets) LocalEndpoint(Descriptor) (Endpoint, error) {
	return Endpoint{}, api.ErrNotSupported
}

func (systemSockets) Close(Descriptor) error {
	return api.ErrNotSupported
}
