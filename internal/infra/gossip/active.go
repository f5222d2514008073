package gossip

import (
	"sort"

	"github.com/tutu-network/groupmember/internal/domain"
)

// ActiveMembers returns the current active-set snapshot, sorted for
// deterministic iteration order (consumers that need an ordered sample of
// candidates, e.g. retransmitter selection, rely on this). This is the only
// authoritative answer to GET_MEMBERS.
func (r *Register) ActiveMembers() []domain.ProcessId {
	out := make([]domain.ProcessId, 0, len(r.active))
	for p := range r.active {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsActive reports whether p is currently in the cached active set.
func (r *Register) IsActive(p domain.ProcessId) bool {
	_, ok := r.active[p]
	return ok
}

// without returns ids with every element of exclude removed, preserving
// relative order. Used to derive probe/retransmitter candidate lists.
func without(ids []domain.ProcessId, exclude ...domain.ProcessId) []domain.ProcessId {
	if len(exclude) == 0 {
		return ids
	}
	skip := make(map[domain.ProcessId]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	out := make([]domain.ProcessId, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
