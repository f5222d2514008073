package gossip

import (
	"testing"
	"time"

	"github.com/tutu-network/groupmember/internal/domain"
)

func testConfig() Config {
	return Config{T: 5 * time.Second, S: 3, K: 2, SampleSize: 20}
}

// S1: seed solo — JOIN{seed:self} then GET_MEMBERS returns {self}.
func TestScenario_SeedSolo(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())

	e.OnLocal(domain.Join{Seed: "a"})
	e.OnLocal(domain.GetMembers{})

	reply, ok := rt.lastLocal()
	if !ok {
		t.Fatal("expected a MEMBERS reply")
	}
	members := reply.(domain.Members).Members
	if len(members) != 1 || members[0] != "a" {
		t.Errorf("ActiveMembers() = %v, want [a]", members)
	}
	if _, armed := rt.timers[timerPeriodicPing]; !armed {
		t.Error("periodic_ping should be armed after JOIN(seed=self)")
	}
}

// S8: JOIN(self=seed) followed by LEAVE yields an empty active set.
func TestScenario_JoinThenLeaveEmptiesActiveSet(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())

	e.OnLocal(domain.Join{Seed: "a"})
	e.OnLocal(domain.Leave{})

	if len(e.ActiveMembers()) != 0 {
		t.Errorf("ActiveMembers() after JOIN+LEAVE = %v, want empty", e.ActiveMembers())
	}
	if _, armed := rt.timers[timerPeriodicPing]; armed {
		t.Error("periodic_ping should be cancelled after LEAVE")
	}
}

func TestLeave_NoopWhenNotJoined(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())

	e.OnLocal(domain.Leave{})
	if e.Joined() {
		t.Error("Joined() should remain false")
	}
	if len(rt.sent) != 0 {
		t.Error("LEAVE on an unjoined engine should send nothing")
	}
}

func TestJoin_SeedNotSelf_SendsKBootstrapPings(t *testing.T) {
	rt := newFakeRuntime(1)
	cfg := testConfig()
	e := NewEngine("b", rt, cfg)

	e.OnLocal(domain.Join{Seed: "a"})

	count := 0
	for _, s := range rt.sent {
		if s.dest == "a" {
			count++
		}
	}
	if count != cfg.K {
		t.Errorf("join via seed sent %d pings to seed, want K=%d", count, cfg.K)
	}

	tag, ok := e.reg.AddedTag("b")
	if !ok || tag.Timestamp != domain.BootstrapTimestamp {
		t.Errorf("self added-entry should carry the bootstrap sentinel timestamp, got %+v", tag)
	}
}

func TestJoin_AlreadyJoinedIsIgnored(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("b", rt, testConfig())

	e.OnLocal(domain.Join{Seed: "a"})
	sentBefore := len(rt.sent)
	e.OnLocal(domain.Join{Seed: "c"}) // already joined — must be a no-op

	if len(rt.sent) != sentBefore {
		t.Error("a second JOIN while already joined should send nothing new")
	}
}

// S9: an indirect PING with target == self behaves as a direct PING (no
// infinite relay).
func TestOnPing_TargetIsSelf_AnswersDirectly(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())
	e.OnLocal(domain.Join{Seed: "a"})

	self := domain.ProcessId("a")
	e.OnMessage("b", domain.Ping{Target: &self})

	reply, ok := rt.lastSentTo("b")
	if !ok {
		t.Fatal("expected a reply sent back to b")
	}
	if _, ok := reply.(domain.PingAnswer); !ok {
		t.Error("target==self should produce a PING_ANSWER, not a relay")
	}
}

// S6: indirect relay — a PING with target != self, target != sender is
// relayed verbatim and produces no PING_ANSWER from the relay.
func TestOnPing_Relay(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("b", rt, testConfig())
	e.OnLocal(domain.Join{Seed: "b"})
	rt.sent = nil // discard bootstrap traffic

	target := domain.ProcessId("c")
	in := domain.Ping{
		Added:  domain.SampleMap{"x": {Generation: 1}},
		Target: &target,
	}
	e.OnMessage("a", in)

	msg, ok := rt.lastSentTo("c")
	if !ok {
		t.Fatal("expected relay to c")
	}
	relayed, ok := msg.(domain.Ping)
	if !ok || relayed.Target == nil || *relayed.Target != "c" {
		t.Errorf("relay should forward the PING verbatim, got %#v", msg)
	}
	if _, ok := rt.lastSentTo("a"); ok {
		t.Error("a relay must not answer the original sender directly")
	}
	// The relay merges the payload into its own registers before forwarding
	// (spec §9 open question, intentionally preserved).
	if _, has := e.reg.AddedTag("x"); !has {
		t.Error("relay should have merged the forwarded payload locally")
	}
}

// S10: a PING_ANSWER for a peer not in the suspicion map is accepted and
// merely refreshes liveness.
func TestOnPingAnswer_UnknownSenderRefreshesLiveness(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())
	e.OnLocal(domain.Join{Seed: "a"})

	e.OnMessage("z", domain.PingAnswer{})

	if !e.reg.IsActive("z") {
		t.Error("unsuspected sender's PING_ANSWER should still refresh liveness")
	}
}

func TestOnPingAnswer_ClearsSuspicionAndCancelsTimer(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())
	e.OnLocal(domain.Join{Seed: "a"})
	e.reg.MarkAdded("b", 0)
	e.reg.MarkAdded("c", 0) // give periodic_ping a candidate pool

	e.susp.Set("b", AwaitingDirect)
	rt.timers[suspicionTimerName("b")] = 15 * time.Second

	e.OnMessage("b", domain.PingAnswer{})

	if _, ok := e.susp.Get("b"); ok {
		t.Error("suspicion entry for b should be cleared")
	}
	if _, armed := rt.timers[suspicionTimerName("b")]; armed {
		t.Error("ping_b timer should be cancelled")
	}
}

// S4-style: direct timeout escalates to indirect, indirect timeout marks
// the target removed.
func TestSuspicion_EscalatesThenMarksRemoved(t *testing.T) {
	rt := newFakeRuntime(1)
	cfg := testConfig()
	e := NewEngine("a", rt, cfg)
	e.OnLocal(domain.Join{Seed: "a"})
	e.reg.MarkAdded("b", 0)
	e.reg.MarkAdded("c", 0)
	e.reg.MarkAdded("d", 0)

	e.susp.Set("b", AwaitingDirect)
	e.OnTimer(suspicionTimerName("b"))

	state, ok := e.susp.Get("b")
	if !ok || state != AwaitingIndirect {
		t.Fatalf("after first timeout, state = %v, %v, want AwaitingIndirect", state, ok)
	}

	retransmitted := 0
	for _, s := range rt.sent {
		if p, ok := s.msg.(domain.Ping); ok && p.Target != nil && *p.Target == "b" {
			retransmitted++
		}
	}
	if retransmitted != cfg.K {
		t.Errorf("expected %d retransmitted pings, got %d", cfg.K, retransmitted)
	}

	e.OnTimer(suspicionTimerName("b"))
	if _, ok := e.susp.Get("b"); ok {
		t.Error("suspicion entry should be deleted after final timeout")
	}
	if e.reg.IsActive("b") {
		t.Error("b should be marked removed (no longer active) after the second timeout")
	}
}

func TestSuspicionTimer_UnknownTargetIsNoop(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())
	e.OnTimer(suspicionTimerName("ghost")) // no panic, no side effects
	if len(rt.sent) != 0 {
		t.Error("an unknown suspicion timer should produce no traffic")
	}
}

// §11: with A = {self}, the periodic timer re-arms without sending traffic.
func TestPeriodicPing_SoloRearmsWithoutSending(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())
	e.OnLocal(domain.Join{Seed: "a"})
	rt.sent = nil

	e.OnTimer(timerPeriodicPing)

	if len(rt.sent) != 0 {
		t.Error("periodic ping with only self active should send nothing")
	}
	if _, armed := rt.timers[timerPeriodicPing]; !armed {
		t.Error("periodic_ping must re-arm even when idle")
	}
}

func TestPeriodicPing_NotJoinedRearmsWithoutSending(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())

	e.OnTimer(timerPeriodicPing)

	if len(rt.sent) != 0 {
		t.Error("periodic ping before joining should send nothing")
	}
	if _, armed := rt.timers[timerPeriodicPing]; !armed {
		t.Error("periodic_ping should still re-arm")
	}
}

func TestPeriodicPing_PicksTargetAndArmsSuspicion(t *testing.T) {
	rt := newFakeRuntime(7)
	cfg := testConfig()
	e := NewEngine("a", rt, cfg)
	e.OnLocal(domain.Join{Seed: "a"})
	e.reg.MarkAdded("b", 0)

	e.OnTimer(timerPeriodicPing)

	if _, ok := rt.lastSentTo("b"); !ok {
		t.Fatal("expected a direct PING to the only other active member")
	}
	state, ok := e.susp.Get("b")
	if !ok || state != AwaitingDirect {
		t.Errorf("suspicion state for b = %v, %v, want AwaitingDirect", state, ok)
	}
	wantDelay := cfg.T * time.Duration(cfg.S)
	if got := rt.timers[suspicionTimerName("b")]; got != wantDelay {
		t.Errorf("ping_b timer = %v, want %v", got, wantDelay)
	}
}

// Handlers tolerate malformed (zero-value) payloads.
func TestOnPing_MalformedPayloadDefaultsToEmpty(t *testing.T) {
	rt := newFakeRuntime(1)
	e := NewEngine("a", rt, testConfig())
	e.OnLocal(domain.Join{Seed: "a"})

	e.OnMessage("b", domain.Ping{}) // zero-value: nil samples, zero time

	if e.reg.Watermark() < 0 {
		t.Error("watermark should never go negative")
	}
	if !e.reg.IsActive("b") {
		t.Error("sender should still be learned even with an empty payload")
	}
}

// S7: two engines exchanging full register contents converge to equal
// active sets.
func TestConvergence_TwoWayExchange(t *testing.T) {
	rtA := newFakeRuntime(1)
	rtB := newFakeRuntime(2)
	a := NewEngine("a", rtA, testConfig())
	b := NewEngine("b", rtB, testConfig())

	a.OnLocal(domain.Join{Seed: "a"})
	b.OnLocal(domain.Join{Seed: "a"}) // bootstraps toward a

	exchange := func() {
		full := domain.Ping{Added: a.reg.Added(), Removed: a.reg.Removed(), Time: a.reg.Watermark()}
		b.OnMessage("a", full)
		full2 := domain.Ping{Added: b.reg.Added(), Removed: b.reg.Removed(), Time: b.reg.Watermark()}
		a.OnMessage("b", full2)
	}
	for i := 0; i < 3; i++ {
		exchange()
	}

	aMembers := a.ActiveMembers()
	bMembers := b.ActiveMembers()
	if len(aMembers) != len(bMembers) {
		t.Fatalf("active sets should converge: a=%v b=%v", aMembers, bMembers)
	}
	for i := range aMembers {
		if aMembers[i] != bMembers[i] {
			t.Errorf("active sets should converge: a=%v b=%v", aMembers, bMembers)
		}
	}
}
