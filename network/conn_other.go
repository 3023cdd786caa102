//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

// File: network/conn_other.go
// Author: momentics <momentics@gmail.com>

package network

import "github.com/momentics/hioload-http/api"

func (c *BaseConn) read([]byte) (int, error)  { return 0, api.ErrNotSupported }
func (c *BaseConn) write([]byte) (int, error) { return 0, api.ErrNotSupported }
func (c *BaseConn) close() error              { return api.ErrNotSupported }
