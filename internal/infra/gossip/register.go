// Package gossip implements the decentralized group-membership protocol: a
// SWIM-style failure detector over an add/remove CRDT register pair.
//
// Probe cycle (every T, default 5s):
//  1. Pick a random active peer → direct PING.
//  2. No ACK within T·S → indirect PING-REQ to K retransmitters.
//  3. No indirect ACK within another T·S → mark SUSPECT target removed.
//  4. Register state is piggybacked as a bounded random sample on every
//     PING and PING_ANSWER, merged as a monotone CRDT on receipt.
package gossip

import "github.com/tutu-network/groupmember/internal/domain"

// Register holds the add/remove CRDT pair for one process's local view of
// group membership, plus the monotonic generation counter and time
// watermark that give every mutation a total order.
//
// Conflicts between the two registers are resolved with two different
// rules depending on how the mutation arrived: a local add (MarkAdded)
// compares audit timestamps, while a local removal (MarkRemoved) and a merge
// compare generations. This asymmetry is preserved
// from the observed source rather than normalized — see DESIGN.md O1.
type Register struct {
	added      map[domain.ProcessId]domain.Tag
	removed    map[domain.ProcessId]domain.Tag
	active     map[domain.ProcessId]struct{}
	generation int64
	watermark  int64
}

// NewRegister returns an empty register with generation 0.
func NewRegister() *Register {
	return &Register{
		added:   make(map[domain.ProcessId]domain.Tag),
		removed: make(map[domain.ProcessId]domain.Tag),
		active:  make(map[domain.ProcessId]struct{}),
	}
}

// Generation returns the current local generation counter G.
func (r *Register) Generation() int64 { return r.generation }

// Watermark returns W, the highest generation observed locally or via merge.
func (r *Register) Watermark() int64 { return r.watermark }

// Added returns the raw added register, for sampling. Callers must not
// mutate the returned map.
func (r *Register) Added() map[domain.ProcessId]domain.Tag { return r.added }

// Removed returns the raw removed register, for sampling. Callers must not
// mutate the returned map.
func (r *Register) Removed() map[domain.ProcessId]domain.Tag { return r.removed }

// AddedTag returns p's current added entry, if any.
func (r *Register) AddedTag(p domain.ProcessId) (domain.Tag, bool) {
	t, ok := r.added[p]
	return t, ok
}

// RemovedTag returns p's current removed entry, if any.
func (r *Register) RemovedTag(p domain.ProcessId) (domain.Tag, bool) {
	t, ok := r.removed[p]
	return t, ok
}

func (r *Register) bumpWatermark(g int64) {
	if g > r.watermark {
		r.watermark = g
	}
}

// MarkAdded records a local observation that p is a member as of ts.
// Increments the generation counter. If p already has a removed entry
// that this add's timestamp postdates, the removed entry is dropped —
// the opposite-register check compares timestamps here, not generations.
func (r *Register) MarkAdded(p domain.ProcessId, ts float64) {
	r.generation++
	tag := domain.Tag{Timestamp: ts, Generation: r.generation}
	r.added[p] = tag
	if removed, ok := r.removed[p]; ok && tag.Timestamp > removed.Timestamp {
		delete(r.removed, p)
	}
	r.bumpWatermark(r.generation)
	r.active[p] = struct{}{}
}

// MarkRemoved records a local observation that p has left as of ts.
// Increments the generation counter. If p already has an added entry with
// a lower generation than this removal, the added entry is dropped.
func (r *Register) MarkRemoved(p domain.ProcessId, ts float64) {
	r.generation++
	tag := domain.Tag{Timestamp: ts, Generation: r.generation}
	r.removed[p] = tag
	if added, ok := r.added[p]; ok && tag.Generation > added.Generation {
		delete(r.added, p)
	}
	r.bumpWatermark(r.generation)
	delete(r.active, p)
}

// Merge folds a gossiped sample of a remote register pair into the local
// registers. Unlike a local mark, conflicts are resolved purely by
// generation — the merge never sees (or needs) audit timestamps to decide
// dominance. Merge is idempotent and commutative: entries only move
// forward, never backward, under generation order.
func (r *Register) Merge(addedSample, removedSample domain.SampleMap, remoteTime int64) {
	r.bumpWatermark(remoteTime)

	for p, tag := range addedSample {
		current := int64(-1)
		if cur, ok := r.added[p]; ok {
			current = cur.Generation
		}
		if tag.Generation > current {
			r.added[p] = tag
			if rem, ok := r.removed[p]; ok && rem.Generation < tag.Generation {
				delete(r.removed, p)
			}
		}
	}

	for p, tag := range removedSample {
		current := int64(-1)
		if cur, ok := r.removed[p]; ok {
			current = cur.Generation
		}
		if tag.Generation > current {
			r.removed[p] = tag
			if add, ok := r.added[p]; ok && add.Generation < tag.Generation {
				delete(r.added, p)
			}
		}
	}

	r.recomputeActive()
}

// recomputeActive rebuilds the active cache from scratch: { p : added[p]
// exists and (removed[p] absent or added[p].generation > removed[p].generation) }.
// Only a merge does a full recompute; MarkAdded/MarkRemoved instead poke the
// cache incrementally, so the cache can transiently diverge from a fresh
// recomputation until the next merge true it up — this mirrors the observed
// source's behavior rather than an idealized always-consistent cache.
func (r *Register) recomputeActive() {
	active := make(map[domain.ProcessId]struct{}, len(r.added))
	for p, add := range r.added {
		if removed, ok := r.removed[p]; !ok || add.Generation > removed.Generation {
			active[p] = struct{}{}
		}
	}
	r.active = active
}

// ForceActive inserts p into the cached active set directly, without
// touching the registers. Used by the PING/PING_ANSWER handlers' "refresh
// liveness" steps, which add the sender to the active set independently of
// whatever the register dominance rules would otherwise say (spec §4.6).
func (r *Register) ForceActive(p domain.ProcessId) {
	r.active[p] = struct{}{}
}
