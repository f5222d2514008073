// Package runtime is the reference host: it wires a *gossip.Engine to real
// sockets, real timers, and a real clock, and serializes every event onto a
// single dispatch goroutine so the engine never sees two events at once
// (spec §5). Everything here — UDP transport, timer queue, instrumentation
// — lives outside the engine on purpose; the engine stays pure.
package runtime

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/tutu-network/groupmember/internal/domain"
	"github.com/tutu-network/groupmember/internal/infra/dsa"
	"github.com/tutu-network/groupmember/internal/infra/gossip"
	"github.com/tutu-network/groupmember/internal/infra/metrics"
	"github.com/tutu-network/groupmember/internal/infra/observability"
)

type localRequest struct {
	msg   any
	reply chan []any
}

// Host drives a gossip.Engine against real infrastructure. It implements
// domain.Runtime and is therefore only ever called back into from its own
// dispatch goroutine — Send/SendLocal/SetTimer/CancelTimer/Time/Rand are not
// safe to call from any other goroutine.
type Host struct {
	self      domain.ProcessId
	engine    *gossip.Engine
	timers    *dsa.TimerQueue
	transport *udpTransport
	metrics   *metrics.Collector
	tracer    *observability.Tracer
	logger    *log.Logger
	rng       *rand.Rand

	localCmds chan localRequest
	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}

	pendingLocal []any
}

// NewHost binds listenAddr and constructs a Host ready to Run. cfg carries
// the protocol tunables (spec §6); metrics and tracing are always wired —
// an idle daemon simply reports zero counters.
func NewHost(self domain.ProcessId, listenAddr string, cfg gossip.Config, logger *log.Logger) (*Host, error) {
	transport, err := newUDPTransport(self, listenAddr, logger)
	if err != nil {
		return nil, err
	}

	h := &Host{
		self:      self,
		timers:    dsa.NewTimerQueue(),
		transport: transport,
		metrics:   metrics.New(),
		tracer:    observability.NewTracer(observability.DefaultTracerConfig()),
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		localCmds: make(chan localRequest),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	h.engine = gossip.NewEngine(self, h, cfg)
	h.engine.SetHooks(gossip.Hooks{
		OnEscalate:   func(domain.ProcessId) { h.metrics.IndirectEscalation.Inc() },
		OnRemoved:    func(domain.ProcessId) { h.metrics.PeersRemoved.Inc() },
		OnDiscovered: func(domain.ProcessId) { h.metrics.PeersDiscovered.Inc() },
	})
	return h, nil
}

// SeedAddr registers a bootstrap peer's address before the first Join so
// the engine's first pings have somewhere to go.
func (h *Host) SeedAddr(id domain.ProcessId, addr string) error {
	return h.transport.seed(id, addr)
}

// Addr returns the bound local socket address.
func (h *Host) Addr() string { return h.transport.localAddr().String() }

// Submit delivers a local command (domain.Join/Leave/GetMembers) to the
// engine from outside the dispatch goroutine and blocks for whatever the
// engine replied with via SendLocal during that single dispatch — e.g. a
// domain.Members reply to a GetMembers request. Safe to call concurrently;
// requests are queued and processed one at a time by Run.
func (h *Host) Submit(msg any) []any {
	reply := make(chan []any, 1)
	select {
	case h.localCmds <- localRequest{msg: msg, reply: reply}:
	case <-h.done:
		return nil
	}
	return <-reply
}

// ActiveMembers snapshots the engine's current active set.
func (h *Host) ActiveMembers() []domain.ProcessId { return h.engine.ActiveMembers() }

// MetricsHandler serves this host's Prometheus metrics.
func (h *Host) MetricsHandler() http.Handler { return h.metrics.Handler() }

// Joined reports whether the engine currently belongs to a group.
func (h *Host) Joined() bool { return h.engine.Joined() }

// Run serializes local commands, inbound network messages, and timer fires
// onto the engine until ctx is cancelled. Exactly one source feeds the
// engine per iteration — this is the whole of spec §5's single-threaded
// event loop requirement.
func (h *Host) Run(ctx context.Context) {
	defer close(h.done)
	for {
		var timerC <-chan time.Time
		if deadline, ok := h.timers.NextDeadline(); ok {
			d := time.Until(deadline)
			if d < 0 {
				d = 0
			}
			timerC = time.After(d)
		}

		select {
		case <-ctx.Done():
			h.transport.close()
			return
		case <-h.stop:
			h.transport.close()
			return
		case req := <-h.localCmds:
			h.dispatchLocal(req)
		case msg := <-h.transport.in:
			h.dispatchMessage(msg)
		case <-timerC:
			h.dispatchDueTimers()
		case <-h.wake:
			// A SetTimer call may have armed an earlier deadline than the
			// one timerC was built from; loop around and recompute it.
		}
	}
}

// Stop ends Run from outside it.
func (h *Host) Stop() { close(h.stop) }

func (h *Host) dispatchLocal(req localRequest) {
	span := h.tracer.StartSpan(context.Background(), "local."+eventLabel(req.msg), nil)
	h.pendingLocal = h.pendingLocal[:0]
	h.engine.OnLocal(req.msg)
	h.tracer.EndSpan(span, nil)
	h.refreshGauge()
	req.reply <- append([]any(nil), h.pendingLocal...)
}

func (h *Host) dispatchMessage(msg inbound) {
	span := h.tracer.StartSpan(context.Background(), "message."+eventLabel(msg.msg), nil)
	h.engine.OnMessage(msg.from, msg.msg)
	h.tracer.EndSpan(span, nil)
	h.refreshGauge()
}

func (h *Host) dispatchDueTimers() {
	now := time.Now()
	for {
		name, ok := h.timers.Pop(now)
		if !ok {
			break
		}
		span := h.tracer.StartSpan(context.Background(), "timer."+name, nil)
		h.engine.OnTimer(name)
		h.tracer.EndSpan(span, nil)
	}
	h.refreshGauge()
}

func (h *Host) refreshGauge() {
	h.metrics.ActiveMembers.Set(float64(len(h.engine.ActiveMembers())))
}

func eventLabel(msg any) string {
	switch msg.(type) {
	case domain.Join:
		return "join"
	case domain.Leave:
		return "leave"
	case domain.GetMembers:
		return "get_members"
	case domain.Ping:
		return "ping"
	case domain.PingAnswer:
		return "ping_answer"
	default:
		return fmt.Sprintf("%T", msg)
	}
}

// ─── domain.Runtime ──────────────────────────────────────────────────────────
// Called synchronously by the engine from inside Run's dispatch methods —
// never from any other goroutine.

func (h *Host) Send(msg any, dest domain.ProcessId) {
	h.transport.send(msg, dest)
	switch msg.(type) {
	case domain.Ping:
		h.metrics.PingsSent.Inc()
	case domain.PingAnswer:
		h.metrics.PingAnswersSent.Inc()
	}
}

func (h *Host) SendLocal(msg any) {
	h.pendingLocal = append(h.pendingLocal, msg)
}

func (h *Host) SetTimer(name string, delay time.Duration) {
	h.timers.Arm(name, time.Now().Add(delay))
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Host) CancelTimer(name string) {
	h.timers.Cancel(name)
}

func (h *Host) Time() float64 {
	return float64(time.Now().Unix())
}

func (h *Host) Rand() domain.Random {
	return h.rng
}
