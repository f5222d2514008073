package gossip

import (
	"strings"
	"time"

	"github.com/tutu-network/groupmember/internal/domain"
)

const (
	timerPeriodicPing = "periodic_ping"
	timerPingPrefix   = "ping_"
)

func suspicionTimerName(target domain.ProcessId) string {
	return timerPingPrefix + string(target)
}

// Config holds the engine's tunable protocol parameters (spec §6).
type Config struct {
	// T is the probe period: how often periodic_ping fires.
	T time.Duration
	// S is the suspicion multiplier: a per-target timer waits T·S per phase.
	S int
	// K is the indirect fanout: how many retransmitters/bootstrap pings.
	K int
	// SampleSize bounds how many register entries are gossiped per message.
	SampleSize int
}

// DefaultConfig returns the defaults named in spec §4.4 and §4.3.
func DefaultConfig() Config {
	return Config{
		T:          5 * time.Second,
		S:          3,
		K:          2,
		SampleSize: DefaultSampleSize,
	}
}

// Hooks are optional observer callbacks invoked synchronously as the engine
// reaches specific transitions. A nil field is simply skipped. They exist
// purely for instrumentation (metrics, logging) — protocol behavior never
// depends on whether any hook is set.
type Hooks struct {
	// OnEscalate fires when a suspicion moves from AWAITING_DIRECT to
	// AWAITING_INDIRECT.
	OnEscalate func(target domain.ProcessId)
	// OnRemoved fires when a target is marked removed after exhausting
	// indirect suspicion.
	OnRemoved func(target domain.ProcessId)
	// OnDiscovered fires when a previously-unseen peer is learned via a
	// PING or PING_ANSWER liveness refresh.
	OnDiscovered func(p domain.ProcessId)
}

// Engine is the per-process membership engine. It is deliberately
// lock-free: spec §5 requires a single-threaded, cooperatively-driven
// core, so all concurrency (real sockets, real timers) belongs to the
// host that calls OnLocal/OnMessage/OnTimer — never inside the engine.
type Engine struct {
	self   domain.ProcessId
	rt     domain.Runtime
	cfg    Config
	reg    *Register
	susp   *SuspicionMap
	joined bool
	hooks  Hooks
}

// NewEngine constructs an idle engine for self, driven by rt.
func NewEngine(self domain.ProcessId, rt domain.Runtime, cfg Config) *Engine {
	return &Engine{
		self: self,
		rt:   rt,
		cfg:  cfg,
		reg:  NewRegister(),
		susp: NewSuspicionMap(),
	}
}

// SetHooks installs observer callbacks. Must be called before the engine
// starts processing events; it is not safe to change concurrently with
// OnLocal/OnMessage/OnTimer.
func (e *Engine) SetHooks(h Hooks) { e.hooks = h }

// Joined reports whether the engine currently belongs to a group.
func (e *Engine) Joined() bool { return e.joined }

// ActiveMembers returns the current active-set snapshot.
func (e *Engine) ActiveMembers() []domain.ProcessId { return e.reg.ActiveMembers() }

// ─── Entry points — one per source stream (spec §9 "tagged variants") ───────

// OnLocal dispatches a local command: domain.Join, domain.Leave, or
// domain.GetMembers.
func (e *Engine) OnLocal(msg any) {
	switch m := msg.(type) {
	case domain.Join:
		e.onJoin(m.Seed)
	case domain.Leave:
		e.onLeave()
	case domain.GetMembers:
		e.rt.SendLocal(domain.Members{Members: e.reg.ActiveMembers()})
	}
}

// OnMessage dispatches a network message received from sender: domain.Ping
// or domain.PingAnswer.
func (e *Engine) OnMessage(sender domain.ProcessId, msg any) {
	switch m := msg.(type) {
	case domain.Ping:
		e.onPing(sender, m)
	case domain.PingAnswer:
		e.onPingAnswer(sender, m)
	}
}

// OnTimer dispatches a timer firing: either the recurring periodic_ping or
// a per-target ping_<target> suspicion timer.
func (e *Engine) OnTimer(name string) {
	if name == timerPeriodicPing {
		e.onPeriodicPing()
		return
	}
	if target, ok := strings.CutPrefix(name, timerPingPrefix); ok {
		e.onSuspicionTimer(domain.ProcessId(target))
	}
}

// ─── Join / leave glue (spec §4.7) ───────────────────────────────────────────

func (e *Engine) onJoin(seed domain.ProcessId) {
	if seed == e.self {
		e.createGroup()
		return
	}
	e.joinGroup(seed)
}

func (e *Engine) createGroup() {
	e.joined = true
	e.reg.MarkAdded(e.self, e.rt.Time())
	e.startPeriodicPing()
}

func (e *Engine) joinGroup(seed domain.ProcessId) {
	if e.joined {
		return
	}
	e.joined = true
	// Bootstrap timestamp: true wall-clock unknown at join time, only the
	// generation counter matters for ordering from here on.
	e.reg.MarkAdded(e.self, domain.BootstrapTimestamp)
	for i := 0; i < e.cfg.K; i++ {
		e.sendPing(seed, nil)
	}
	e.startPeriodicPing()
}

func (e *Engine) onLeave() {
	if !e.joined {
		return
	}
	e.joined = false
	e.reg.MarkRemoved(e.self, e.rt.Time())
	e.rt.CancelTimer(timerPeriodicPing)
}

func (e *Engine) startPeriodicPing() {
	e.rt.SetTimer(timerPeriodicPing, e.cfg.T)
}

// ─── Probe scheduler (spec §4.4) ─────────────────────────────────────────────

func (e *Engine) onPeriodicPing() {
	if !e.joined {
		e.rt.SetTimer(timerPeriodicPing, e.cfg.T)
		return
	}
	candidates := without(e.reg.ActiveMembers(), e.self)
	if len(candidates) == 0 {
		e.rt.SetTimer(timerPeriodicPing, e.cfg.T)
		return
	}

	target := candidates[e.rt.Rand().Intn(len(candidates))]
	e.susp.Set(target, AwaitingDirect)
	e.sendPing(target, nil)
	e.rt.SetTimer(suspicionTimerName(target), e.cfg.T*time.Duration(e.cfg.S))
	e.rt.SetTimer(timerPeriodicPing, e.cfg.T)
}

// ─── Suspicion state machine (spec §4.5) ─────────────────────────────────────

func (e *Engine) onSuspicionTimer(target domain.ProcessId) {
	state, ok := e.susp.Get(target)
	if !ok {
		return
	}
	switch state {
	case AwaitingDirect:
		e.susp.Set(target, AwaitingIndirect)
		e.pingWithRetransmitters(target)
		e.rt.SetTimer(suspicionTimerName(target), e.cfg.T*time.Duration(e.cfg.S))
		if e.hooks.OnEscalate != nil {
			e.hooks.OnEscalate(target)
		}
	case AwaitingIndirect:
		e.reg.MarkRemoved(target, e.rt.Time())
		e.susp.Clear(target)
		if e.hooks.OnRemoved != nil {
			e.hooks.OnRemoved(target)
		}
	}
}

func (e *Engine) pingWithRetransmitters(target domain.ProcessId) {
	candidates := without(e.reg.ActiveMembers(), e.self, target)
	k := e.cfg.K
	if k > len(candidates) {
		k = len(candidates)
	}
	msg := domain.Ping{
		Added:   Sample(e.rt.Rand(), e.reg.Added(), e.cfg.SampleSize),
		Removed: Sample(e.rt.Rand(), e.reg.Removed(), e.cfg.SampleSize),
		Time:    e.reg.Watermark(),
		Target:  &target,
	}
	for _, retransmitter := range candidates[:k] {
		e.rt.Send(msg, retransmitter)
	}
}

func (e *Engine) clearSuspicion(target domain.ProcessId) {
	if _, ok := e.susp.Get(target); ok {
		e.susp.Clear(target)
		e.rt.CancelTimer(suspicionTimerName(target))
	}
}

// ─── Message handlers (spec §4.6) ────────────────────────────────────────────

func (e *Engine) onPing(sender domain.ProcessId, msg domain.Ping) {
	// msg.Added/Removed/Time default to nil/nil/0 when absent from the
	// wire payload — Go's zero-value decoding already gives us spec §7's
	// "malformed payload → empty sample, zero time" tolerance for free.
	e.reg.Merge(msg.Added, msg.Removed, msg.Time)

	if msg.Target != nil && *msg.Target != e.self {
		// Indirect probe on behalf of another process: relay verbatim
		// and do not answer ourselves (spec §4.6 step 2, §8 property 9
		// guards target == self from infinite relay by falling through
		// to the direct-ping path below instead).
		e.rt.Send(msg, *msg.Target)
		return
	}

	addedTag, hasAdded := e.reg.AddedTag(sender)
	removedTag, hasRemoved := e.reg.RemovedTag(sender)
	switch {
	case !hasAdded:
		e.reg.MarkAdded(sender, e.rt.Time())
		e.notifyDiscovered(sender)
	case hasRemoved && removedTag.Generation >= addedTag.Generation:
		e.reg.MarkAdded(sender, e.rt.Time())
		e.reg.ForceActive(sender)
	}

	e.rt.Send(domain.PingAnswer{
		Added:   Sample(e.rt.Rand(), e.reg.Added(), e.cfg.SampleSize),
		Removed: Sample(e.rt.Rand(), e.reg.Removed(), e.cfg.SampleSize),
		Time:    e.reg.Watermark(),
	}, sender)
}

func (e *Engine) onPingAnswer(sender domain.ProcessId, msg domain.PingAnswer) {
	e.reg.Merge(msg.Added, msg.Removed, msg.Time)
	e.clearSuspicion(sender)
	if _, hasAdded := e.reg.AddedTag(sender); !hasAdded {
		e.reg.MarkAdded(sender, e.rt.Time())
		e.notifyDiscovered(sender)
	}
	e.reg.ForceActive(sender)
}

func (e *Engine) notifyDiscovered(p domain.ProcessId) {
	if e.hooks.OnDiscovered != nil {
		e.hooks.OnDiscovered(p)
	}
}

// ─── Helpers ──────────────────────────────────────────────────────────────

func (e *Engine) sendPing(dest domain.ProcessId, target *domain.ProcessId) {
	e.rt.Send(domain.Ping{
		Added:   Sample(e.rt.Rand(), e.reg.Added(), e.cfg.SampleSize),
		Removed: Sample(e.rt.Rand(), e.reg.Removed(), e.cfg.SampleSize),
		Time:    e.reg.Watermark(),
		Target:  target,
	}, dest)
}
