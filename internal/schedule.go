// Schedule: a standing intent to invoke a work function at one or more
// future deadlines (spec §3).

package iotcore

import (
	"sync/atomic"
	"time"
)

// Schedule represents one entry in a Scheduler's registry. All fields
// except `id` and `dropped` are protected by the owning Scheduler's mutex;
// `id` is immutable after creation and `dropped` is atomic, per spec §5.
type Schedule struct {
	id uint64

	function func(any)
	arg      any
	freeFn   func(any)
	runCb    func(any)
	abortCb  func(any)

	// period is the repetition interval in nanoseconds; must be > 0 unless
	// repeat == 1 (single-shot).
	period time.Duration
	// start is the next absolute deadline, in the monotonic clock domain
	// (nanoseconds).
	start int64
	// repeat is the remaining execution count; 0 means infinite.
	repeat uint32

	pool     Pool
	priority int

	dropped atomic.Uint64

	// scheduled mirrors due-time-map membership; true iff this schedule is
	// currently reachable from the registry's due-time index.
	scheduled bool

	// heapIndex is maintained by container/heap and lets the registry
	// remove an arbitrary schedule from the due-time heap in O(log n)
	// instead of a linear scan (see registry.go).
	heapIndex int
}

// ID returns the schedule's process-lifetime-unique identifier.
func (s *Schedule) ID() uint64 { return s.id }

// Dropped returns the number of dispatches the pool refused for this
// schedule. Safe to call without holding the scheduler's lock.
func (s *Schedule) Dropped() uint64 { return s.dropped.Load() }

// IsScheduled reports whether the schedule currently sits in the due-time
// index (true) or the idle index (false). Must be called with the owning
// scheduler's lock held for a consistent snapshot in the presence of
// concurrent mutators.
func (s *Schedule) IsScheduled() bool { return s.scheduled }
