// Package dsa implements the data structures the membership runtime needs.
// Adapted from a priority-queue scheduler: a binary min-heap, here ordered
// by deadline instead of priority, with named entries so re-arming a name
// replaces whatever fire was previously pending for it (spec §5).
package dsa

import (
	"sync"
	"time"
)

// ─── Named Timer Queue (Min-Heap) ───────────────────────────────────────────
//
// Operations:
//   Arm:          O(log n) — sift up
//   Pop:          O(log n) amortized — sift down, skipping stale entries
//   NextDeadline: O(log n) amortized
//
// Re-arming a name: rather than search-and-replace the heap entry (O(n)),
// each Arm call bumps a per-name sequence number and stamps the heap entry
// with it. Pop/NextDeadline discard any popped entry whose sequence no
// longer matches the name's current sequence — lazy deletion, same
// technique timer wheels use to make cancellation cheap.

type timerEntry struct {
	name     string
	deadline time.Time
	seq      uint64
}

// TimerQueue is a thread-safe named-timer min-heap.
type TimerQueue struct {
	mu      sync.Mutex
	heap    []timerEntry
	current map[string]uint64
	seq     uint64
}

// NewTimerQueue returns an empty timer queue.
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{current: make(map[string]uint64)}
}

// Arm (re-)schedules name to fire at deadline. Arming a name that already
// has a pending fire replaces it — the old heap entry becomes stale and is
// discarded the next time it would otherwise surface.
func (q *TimerQueue) Arm(name string, deadline time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	q.current[name] = q.seq
	q.heap = append(q.heap, timerEntry{name: name, deadline: deadline, seq: q.seq})
	q.siftUp(len(q.heap) - 1)
}

// Cancel removes any pending fire for name. A no-op if absent.
func (q *TimerQueue) Cancel(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.current, name)
}

// Pop removes and returns the name of the earliest timer whose deadline is
// at or before now. Returns ok=false if nothing is ready yet.
func (q *TimerQueue) Pop(now time.Time) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.heap) > 0 {
		top := q.heap[0]
		if top.deadline.After(now) {
			return "", false
		}
		q.popMin()
		if latest, ok := q.current[top.name]; ok && latest == top.seq {
			delete(q.current, top.name)
			return top.name, true
		}
		// Stale entry from a since-replaced or cancelled arm — discard.
	}
	return "", false
}

// NextDeadline returns the soonest still-live deadline, if any. Used by a
// host to size its select/sleep between Pop attempts.
func (q *TimerQueue) NextDeadline() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.heap) > 0 {
		top := q.heap[0]
		if latest, ok := q.current[top.name]; ok && latest == top.seq {
			return top.deadline, true
		}
		q.popMin()
	}
	return time.Time{}, false
}

func (q *TimerQueue) popMin() timerEntry {
	top := q.heap[0]
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap = q.heap[:last]
	if len(q.heap) > 0 {
		q.siftDown(0)
	}
	return top
}

func (q *TimerQueue) less(i, j int) bool {
	return q.heap[i].deadline.Before(q.heap[j].deadline)
}

func (q *TimerQueue) siftUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if q.less(idx, parent) {
			q.heap[idx], q.heap[parent] = q.heap[parent], q.heap[idx]
			idx = parent
		} else {
			break
		}
	}
}

func (q *TimerQueue) siftDown(idx int) {
	n := len(q.heap)
	for {
		smallest := idx
		left := 2*idx + 1
		right := 2*idx + 2

		if left < n && q.less(left, smallest) {
			smallest = left
		}
		if right < n && q.less(right, smallest) {
			smallest = right
		}
		if smallest == idx {
			break
		}
		q.heap[idx], q.heap[smallest] = q.heap[smallest], q.heap[idx]
		idx = smallest
	}
}
