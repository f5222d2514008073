package gossip

import (
	"math/rand"
	"time"

	"github.com/tutu-network/groupmember/internal/domain"
)

// sentEnvelope records one Runtime.Send call for assertions.
type sentEnvelope struct {
	dest domain.ProcessId
	msg  any
}

// fakeRuntime is an in-memory domain.Runtime for deterministic engine tests.
// It never blocks and never spawns anything — timers are recorded, not
// actually scheduled, so tests fire them explicitly via engine.OnTimer.
type fakeRuntime struct {
	clock  float64
	rng    *rand.Rand
	sent   []sentEnvelope
	local  []any
	timers map[string]time.Duration
}

func newFakeRuntime(seed int64) *fakeRuntime {
	return &fakeRuntime{
		rng:    rand.New(rand.NewSource(seed)),
		timers: make(map[string]time.Duration),
	}
}

func (f *fakeRuntime) Send(msg any, dest domain.ProcessId) {
	f.sent = append(f.sent, sentEnvelope{dest: dest, msg: msg})
}

func (f *fakeRuntime) SendLocal(msg any) { f.local = append(f.local, msg) }

func (f *fakeRuntime) SetTimer(name string, delay time.Duration) {
	f.timers[name] = delay
}

func (f *fakeRuntime) CancelTimer(name string) { delete(f.timers, name) }

func (f *fakeRuntime) Time() float64 { return f.clock }

// *rand.Rand already implements domain.Random's Intn/Perm signatures.
func (f *fakeRuntime) Rand() domain.Random { return f.rng }

func (f *fakeRuntime) lastSentTo(dest domain.ProcessId) (any, bool) {
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].dest == dest {
			return f.sent[i].msg, true
		}
	}
	return nil, false
}

func (f *fakeRuntime) lastLocal() (any, bool) {
	if len(f.local) == 0 {
		return nil, false
	}
	return f.local[len(f.local)-1], true
}
