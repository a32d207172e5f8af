// Scheduler: the single-dispatcher timing engine (spec §3, §4.3, §4.4).
//
// Structurally this keeps the teacher's shape from the original
// scheduler.go (a state machine with Created/Running/Stopped states, a
// dedicated dispatcher goroutine, a mutex guarding shared state, wg-free
// clean shutdown) but replaces the teacher's channel-fed worker pool and
// "next multiple of interval" task model with the due-time/idle registry,
// pool-admission dispatch, and repeat-count semantics spec.md §3/§4
// describe. Where the teacher's dispatcherLoop combines a timer with a
// select over multiple channels to wake on either a new task or a
// deadline, the same idiom is reused here for both the state wait and the
// timed wait the spec's pseudocode calls "cond_timedwait": a
// close-and-replace signal channel stands in for a broadcast condition
// variable, since sync.Cond has no timeout variant in the standard
// library.

package iotcore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DEFAULT_WAKE bounds the dispatcher's wait when no schedule is pending, so
// it wakes periodically even if a signal were somehow missed (spec §4.3).
const DEFAULT_WAKE = 24 * time.Hour

type SchedulerState int

const (
	SchedulerStateInitial SchedulerState = iota
	SchedulerStateRunning
	SchedulerStateStopped
	SchedulerStateDeleted
)

var schedulerStateMap = map[SchedulerState]string{
	SchedulerStateInitial: "Initial",
	SchedulerStateRunning: "Running",
	SchedulerStateStopped: "Stopped",
	SchedulerStateDeleted: "Deleted",
}

func (state SchedulerState) String() string { return schedulerStateMap[state] }

var schedulerLog = NewCompLogger("scheduler")

var nextScheduleId atomic.Uint64

// Scheduler owns the due-time/idle registry, a single dispatcher goroutine,
// and the lifecycle state machine described in spec.md §3.
type Scheduler struct {
	mu    sync.Mutex
	reg   *registry
	state SchedulerState

	// notify is closed (and replaced) under mu whenever the dispatcher
	// should re-evaluate: a state transition, or a mutation that placed a
	// schedule at the front of the due-time index while Running (spec §5,
	// the signalling contract).
	notify chan struct{}

	// done is closed once the dispatcher goroutine has observed
	// SchedulerStateDeleted and returned, letting Free wait for it instead
	// of the grace-sleep the spec's open design notes flag as fragile.
	done chan struct{}

	log *logrus.Entry
}

// NewScheduler allocates a scheduler and launches its dispatcher goroutine
// in the Initial state (spec §4.4 `alloc`). priority/cpus pin the
// dispatcher thread itself; cpus may be nil for no pinning.
func NewScheduler(priority int, cpus []int, log *logrus.Entry) *Scheduler {
	if log == nil {
		log = schedulerLog
	}
	scheduler := &Scheduler{
		reg:    newRegistry(),
		state:  SchedulerStateInitial,
		notify: make(chan struct{}),
		done:   make(chan struct{}),
		log:    log,
	}
	go scheduler.dispatcherLoop(priority, cpus)
	return scheduler
}

// broadcast wakes every goroutine parked on the current notify channel.
// Caller must hold mu.
func (scheduler *Scheduler) broadcast() {
	close(scheduler.notify)
	scheduler.notify = make(chan struct{})
}

// Start transitions Initial -> Running (spec §4.4 `start`). It is a
// one-shot transition: calling it again after a Stop only logs a warning
// and leaves the scheduler Stopped, since the lifecycle is linear and a
// Stopped scheduler cannot be resumed, only freed.
func (scheduler *Scheduler) Start() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if scheduler.state != SchedulerStateInitial {
		scheduler.log.Warnf(
			"scheduler can only be started from %q state, not from %q",
			SchedulerStateInitial, scheduler.state,
		)
		return
	}
	scheduler.state = SchedulerStateRunning
	scheduler.broadcast()
}

// Stop transitions to Stopped, parking the dispatcher on the state wait
// (spec §4.4 `stop`).
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if scheduler.state == SchedulerStateDeleted {
		scheduler.log.Warn("scheduler already deleted")
		return
	}
	scheduler.state = SchedulerStateStopped
	scheduler.broadcast()
}

// Free transitions to Deleted, waits for the dispatcher goroutine to exit,
// then drains both registry indexes, invoking each schedule's free_fn on
// its arg exactly once (spec §4.4 `free`, invariant 6).
func (scheduler *Scheduler) Free() {
	scheduler.mu.Lock()
	alreadyDeleted := scheduler.state == SchedulerStateDeleted
	scheduler.state = SchedulerStateDeleted
	scheduler.broadcast()
	scheduler.mu.Unlock()

	if alreadyDeleted {
		return
	}
	<-scheduler.done

	scheduler.mu.Lock()
	all := scheduler.reg.drain()
	scheduler.mu.Unlock()

	for _, sch := range all {
		if sch.freeFn != nil {
			sch.freeFn(sch.arg)
		}
	}
}

// Create constructs a schedule and places it in the idle index (spec §4.4
// `create`). startOffset is relative to the monotonic clock at call time.
func (scheduler *Scheduler) Create(
	fn func(any),
	freeFn func(any),
	arg any,
	period time.Duration,
	startOffset time.Duration,
	repeat uint32,
	pool Pool,
	priority int,
) *Schedule {
	if fn == nil {
		panic("iotcore: Scheduler.Create: fn must not be nil")
	}
	sch := &Schedule{
		id:        nextScheduleId.Add(1),
		function:  fn,
		arg:       arg,
		freeFn:    freeFn,
		period:    period,
		start:     MonotonicNextNs() + int64(startOffset),
		repeat:    repeat,
		pool:      pool,
		priority:  priority,
		heapIndex: -1,
	}

	scheduler.mu.Lock()
	scheduler.reg.idleAdd(sch)
	scheduler.mu.Unlock()

	return sch
}

// Add moves an idle schedule into the due-time index (spec §4.4 `add`).
// Returns true iff the schedule transitioned from idle to scheduled.
func (scheduler *Scheduler) Add(sch *Schedule) bool {
	if sch == nil {
		panic("iotcore: Scheduler.Add: sch must not be nil")
	}
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if sch.scheduled {
		return false
	}
	scheduler.reg.idleRemove(sch)
	becameFront := scheduler.reg.queueAdd(sch)
	if becameFront && scheduler.state == SchedulerStateRunning {
		scheduler.broadcast()
	}
	return true
}

// Remove moves a due schedule back into the idle index (spec §4.4
// `remove`). Returns true iff a transition occurred.
func (scheduler *Scheduler) Remove(sch *Schedule) bool {
	if sch == nil {
		panic("iotcore: Scheduler.Remove: sch must not be nil")
	}
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if !sch.scheduled {
		return false
	}
	scheduler.reg.queueRemove(sch)
	scheduler.reg.idleAdd(sch)
	return true
}

// Reset recomputes the next deadline as now+period, rescheduling the
// schedule if it is due-time-indexed, or just updating its stored start
// otherwise (spec §4.4 `reset`, scenario S4).
func (scheduler *Scheduler) Reset(sch *Schedule) {
	if sch == nil {
		panic("iotcore: Scheduler.Reset: sch must not be nil")
	}
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	next := MonotonicNextNs() + int64(sch.period)
	if sch.scheduled {
		becameFront := scheduler.reg.queueUpdate(sch, next)
		if becameFront && scheduler.state == SchedulerStateRunning {
			scheduler.broadcast()
		}
	} else {
		sch.start = next
	}
}

// Delete removes the schedule from whichever index holds it and invokes
// its free_fn (spec §4.4 `delete`).
func (scheduler *Scheduler) Delete(sch *Schedule) {
	if sch == nil {
		panic("iotcore: Scheduler.Delete: sch must not be nil")
	}
	scheduler.mu.Lock()
	if sch.scheduled {
		scheduler.reg.queueRemove(sch)
	} else {
		scheduler.reg.idleRemove(sch)
	}
	scheduler.mu.Unlock()

	if sch.freeFn != nil {
		sch.freeFn(sch.arg)
	}
}

// AddRunCallback assigns the callback invoked just before each dispatch
// attempt (spec §4.4).
func (scheduler *Scheduler) AddRunCallback(sch *Schedule, cb func(any)) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	sch.runCb = cb
}

// AddAbortCallback assigns the callback invoked when a dispatch is dropped
// (spec §4.4).
func (scheduler *Scheduler) AddAbortCallback(sch *Schedule, cb func(any)) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	sch.abortCb = cb
}

// Dropped reads the schedule's atomic drop counter (spec §4.4 `dropped`).
func (scheduler *Scheduler) Dropped(sch *Schedule) uint64 { return sch.Dropped() }

// dispatcherLoop is the single authority that consumes from the due-time
// index, implementing the algorithm in spec §4.3.
func (scheduler *Scheduler) dispatcherLoop(priority int, cpus []int) {
	LockAndApply(cpus, priority)
	defer close(scheduler.done)

	for {
		scheduler.mu.Lock()
		for scheduler.state != SchedulerStateRunning && scheduler.state != SchedulerStateDeleted {
			ch := scheduler.notify
			scheduler.mu.Unlock()
			<-ch
			scheduler.mu.Lock()
		}
		if scheduler.state == SchedulerStateDeleted {
			scheduler.mu.Unlock()
			return
		}

		cur := scheduler.reg.front()
		var wakeAt int64
		if cur != nil {
			wakeAt = cur.start
		} else {
			wakeAt = NowNs() + int64(DEFAULT_WAKE)
		}
		ch := scheduler.notify
		scheduler.mu.Unlock()

		wait := time.Duration(wakeAt - NowNs())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ch:
			if !timer.Stop() {
				<-timer.C
			}
			continue
		case <-timer.C:
		}

		scheduler.mu.Lock()
		if scheduler.state != SchedulerStateRunning {
			scheduler.mu.Unlock()
			continue
		}
		cur = scheduler.reg.front()
		if cur != nil && cur.start < NowNs() {
			scheduler.dispatchLocked(cur)
		}
		scheduler.mu.Unlock()
	}
}

// dispatchLocked runs one due schedule and re-queues or retires it. Caller
// must hold mu; this is the body of the spec §4.3 pseudocode block that
// executes under the dispatcher's lock.
func (scheduler *Scheduler) dispatchLocked(sch *Schedule) {
	if sch.runCb != nil {
		sch.runCb(sch.arg)
	}

	if sch.pool != nil {
		if !sch.pool.Submit(sch.function, sch.arg, sch.priority) {
			if sch.abortCb != nil {
				sch.abortCb(sch.arg)
			}
			if sch.dropped.Add(1) == 1 {
				scheduler.log.Warnf("schedule %d: pool refused dispatch, dropping", sch.id)
			}
		}
	} else {
		fn, arg, priority := sch.function, sch.arg, sch.priority
		go func() {
			LockAndApply(nil, priority)
			fn(arg)
		}()
	}

	next := NowNs() + int64(sch.period)
	if sch.repeat > 0 {
		sch.repeat--
		if sch.repeat == 0 {
			scheduler.reg.queueRemove(sch)
			scheduler.reg.idleAdd(sch)
			return
		}
	}
	scheduler.reg.queueUpdate(sch, next)
}
