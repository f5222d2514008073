package gossip

import "github.com/tutu-network/groupmember/internal/domain"

// SuspicionState is a probe target's position in the two-phase failure
// detection lifecycle. Absence from the SuspicionMap means "no probe in
// flight" — there is no explicit zero state.
type SuspicionState int

const (
	// AwaitingDirect means a direct PING was just sent to the target and
	// its ping_<target> timer is armed for the first T·S window.
	AwaitingDirect SuspicionState = iota + 1

	// AwaitingIndirect means the direct probe timed out, K retransmitters
	// were asked to probe on our behalf, and a second T·S window is running.
	AwaitingIndirect
)

// SuspicionMap tracks in-flight suspicion for probe targets other than
// self. It holds no timers itself — the host's timer service owns those,
// named "ping_" + target per spec §5.
type SuspicionMap struct {
	state map[domain.ProcessId]SuspicionState
}

// NewSuspicionMap returns an empty suspicion map.
func NewSuspicionMap() *SuspicionMap {
	return &SuspicionMap{state: make(map[domain.ProcessId]SuspicionState)}
}

// Set records target's current phase.
func (s *SuspicionMap) Set(target domain.ProcessId, st SuspicionState) {
	s.state[target] = st
}

// Get returns target's current phase, if any probe is in flight for it.
func (s *SuspicionMap) Get(target domain.ProcessId) (SuspicionState, bool) {
	st, ok := s.state[target]
	return st, ok
}

// Clear removes target's suspicion entry. A no-op if absent.
func (s *SuspicionMap) Clear(target domain.ProcessId) {
	delete(s.state, target)
}
