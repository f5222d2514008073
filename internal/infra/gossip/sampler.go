package gossip

import (
	"sort"

	"github.com/tutu-network/groupmember/internal/domain"
)

// DefaultSampleSize is the maximum number of entries gossiped per register
// per message (spec §4.3 SAMPLE_SIZE).
const DefaultSampleSize = 20

// Sample draws a uniform, without-replacement subset of at most size
// entries from register, encoded for the wire. If register holds size or
// fewer entries, the full register is returned. added and removed are
// always sampled independently — callers sample each register with its own
// call, never derive one sample from the other.
func Sample(rng domain.Random, register map[domain.ProcessId]domain.Tag, size int) domain.SampleMap {
	if size <= 0 {
		size = DefaultSampleSize
	}
	if len(register) <= size {
		out := make(domain.SampleMap, len(register))
		for p, t := range register {
			out[p] = t
		}
		return out
	}

	keys := make([]domain.ProcessId, 0, len(register))
	for p := range register {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make(domain.SampleMap, size)
	for _, idx := range rng.Perm(len(keys))[:size] {
		p := keys[idx]
		out[p] = register[p]
	}
	return out
}
