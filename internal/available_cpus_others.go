// Count available CPUs on non-Linux targets, where there is no CPU
// affinity mask to read back: ask the OS's sysconf(3) for the online
// processor count, falling back to runtime.NumCPU() (the logical CPUs
// usable by the process, as sampled at startup) if that query fails.

//go:build !linux

package iotcore

import (
	"runtime"

	"github.com/tklauser/go-sysconf"
)

func GetAvailableCPUCount() int {
	n, err := sysconf.Sysconf(sysconf.SC_NPROCESSORS_ONLN)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return int(n)
}
