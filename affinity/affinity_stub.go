//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without thread affinity.

package affinity

import "github.com/momentics/hioload-http/api"

func setMaskPlatform([]int) error { return api.ErrNotSupported }

func currentPlatform() []int { return nil }
