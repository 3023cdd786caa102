//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation using sched_setaffinity(2) on the calling thread.

package affinity

import (
	"github.com/momentics/hioload-http/api"
	"golang.org/x/sys/unix"
)

func setMaskPlatform(cpus []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return api.Wrap(api.ErrCodeInternal, "sched_setaffinity", err).WithContext("cpus", cpus)
	}
	return nil
}

func currentPlatform() []int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil
	}
	var cpus []int
	for i := 0; i < MaxCPU; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus
}
