//go:build linux

package iotcore

import (
	"runtime"

	"golang.org/x/sys/unix"
)

var affinityLog = NewCompLogger("affinity")

// ApplyThreadAffinity pins the calling OS thread to the given CPU ids and
// applies the given `nice` priority to it. It must be called from the
// goroutine that is to be pinned, after runtime.LockOSThread(). A nil/empty
// cpus or a zero priority leaves the corresponding setting untouched.
func ApplyThreadAffinity(cpus []int, priority int) {
	tid := unix.Gettid()

	if len(cpus) > 0 {
		cpuSet := unix.CPUSet{}
		cpuSet.Zero()
		for _, cpu := range cpus {
			cpuSet.Set(cpu)
		}
		if err := unix.SchedSetaffinity(tid, &cpuSet); err != nil {
			affinityLog.Warnf("SchedSetaffinity(%v): %v", cpus, err)
		}
	}

	if priority != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, tid, priority); err != nil {
			affinityLog.Warnf("Setpriority(%d): %v", priority, err)
		}
	}
}

// LockAndApply locks the calling goroutine to its current OS thread for its
// remaining lifetime and applies affinity/priority. Intended to be the first
// call inside a freshly spawned dispatch goroutine.
func LockAndApply(cpus []int, priority int) {
	runtime.LockOSThread()
	ApplyThreadAffinity(cpus, priority)
}
