// Schedule registry: the due-time index and the idle index (spec §3, §4.2).
//
// The due-time index needs O(log n) removal by key (for remove/reset/delete)
// as well as O(1) access to the minimum, which a single slice scanned
// linearly cannot give. Per the design note in spec.md §9, this is achieved
// here with a binary min-heap (container/heap, exactly as the teacher's
// Scheduler implements heap.Interface in scheduler.go) plus a per-schedule
// heapIndex field so an arbitrary element can be located and removed in
// O(log n) via heap.Remove, instead of requiring the linear scan a plain
// heap.Interface consumer would otherwise need. A side map from start-time
// to schedule gives the O(1) collision check the +1ns tie-break rule (spec
// §3) requires. The idle index is a straightforward id-keyed map, mirroring
// the teacher's per-id stats maps elsewhere in the package.

package iotcore

import "container/heap"

type dueHeap []*Schedule

func (h dueHeap) Len() int { return len(h) }

func (h dueHeap) Less(i, j int) bool { return h[i].start < h[j].start }

func (h dueHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *dueHeap) Push(x any) {
	s := x.(*Schedule)
	s.heapIndex = len(*h)
	*h = append(*h, s)
}

func (h *dueHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.heapIndex = -1
	*h = old[:n-1]
	return s
}

// registry owns the scheduler's two maps. Every method assumes the caller
// holds the owning Scheduler's mutex; none of it is safe for concurrent use
// on its own.
type registry struct {
	due      dueHeap
	dueByTs  map[int64]*Schedule
	idleById map[uint64]*Schedule
}

func newRegistry() *registry {
	return &registry{
		due:      make(dueHeap, 0),
		dueByTs:  make(map[int64]*Schedule),
		idleById: make(map[uint64]*Schedule),
	}
}

// front returns the schedule with the smallest start, or nil if the
// due-time index is empty.
func (r *registry) front() *Schedule {
	if len(r.due) == 0 {
		return nil
	}
	return r.due[0]
}

// queueAdd inserts the schedule into the due-time index, bumping `start` by
// 1ns until it is unique (spec §3, §4.2). Returns true iff the schedule is
// now the index minimum.
func (r *registry) queueAdd(s *Schedule) bool {
	for {
		if _, collision := r.dueByTs[s.start]; !collision {
			break
		}
		s.start++
	}
	r.dueByTs[s.start] = s
	heap.Push(&r.due, s)
	s.scheduled = true
	return r.front() == s
}

// queueRemove removes the schedule from the due-time index by its current
// start key.
func (r *registry) queueRemove(s *Schedule) {
	if !s.scheduled {
		return
	}
	delete(r.dueByTs, s.start)
	if s.heapIndex >= 0 && s.heapIndex < len(r.due) && r.due[s.heapIndex] == s {
		heap.Remove(&r.due, s.heapIndex)
	}
	s.scheduled = false
}

// queueUpdate removes, reassigns start, and re-adds. Returns queueAdd's
// result.
func (r *registry) queueUpdate(s *Schedule, newStart int64) bool {
	r.queueRemove(s)
	s.start = newStart
	return r.queueAdd(s)
}

func (r *registry) idleAdd(s *Schedule) {
	r.idleById[s.id] = s
}

func (r *registry) idleRemove(s *Schedule) {
	delete(r.idleById, s.id)
}

// drain returns every schedule in either index, emptying both. Used at
// scheduler teardown (spec §4.4 free).
func (r *registry) drain() []*Schedule {
	all := make([]*Schedule, 0, len(r.due)+len(r.idleById))
	for _, s := range r.due {
		all = append(all, s)
	}
	for _, s := range r.idleById {
		all = append(all, s)
	}
	r.due = r.due[:0]
	r.dueByTs = make(map[int64]*Schedule)
	r.idleById = make(map[uint64]*Schedule)
	return all
}
