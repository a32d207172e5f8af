//go:build !linux

package iotcore

// ApplyThreadAffinity is a no-op outside Linux: affinity/priority pinning is
// a best-effort facility, not a correctness requirement of the scheduler.
func ApplyThreadAffinity(cpus []int, priority int) {}

func LockAndApply(cpus []int, priority int) {}
