// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// located in separate files guarded by build tags.

package affinity

import (
	"runtime"

	"github.com/momentics/hioload-http/api"
)

// MaxCPU bounds the CPU ids accepted by SetAffinity.
const MaxCPU = 1024

// SetAffinity pins the calling OS thread to one logical CPU. The caller must
// hold the thread with runtime.LockOSThread for the pin to be meaningful.
// Returns api.ErrNotSupported on platforms without thread affinity.
func SetAffinity(cpuID int) error {
	if cpuID < 0 || cpuID >= MaxCPU {
		return api.NewError(api.ErrCodeInvalidArgument, "cpu out of range").WithContext("cpu", cpuID)
	}
	return setMaskPlatform([]int{cpuID})
}

// Current returns the CPUs the calling thread may run on, or nil when the
// platform cannot report it.
func Current() []int {
	return currentPlatform()
}

// Pin locks the calling goroutine to its OS thread and pins that thread to
// cpuID. The returned function restores the previous mask and unlocks the
// thread; it is non-nil even when err is not.
func Pin(cpuID int) (func(), error) {
	runtime.LockOSThread()
	prev := currentPlatform()
	if err := SetAffinity(cpuID); err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}
	return func() {
		if len(prev) == 0 || setMaskPlatform(prev) != nil {
			// Unknown mask: let the narrowed thread die with its goroutine.
			return
		}
		runtime.UnlockOSThread()
	}, nil
}
