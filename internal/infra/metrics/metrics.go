// Package metrics exposes the membership daemon's Prometheus instrumentation.
// Mirrors the donor's promauto counter style from internal/infra/observability.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every gossip-protocol metric the daemon exports, against
// its own private registry rather than prometheus's global default. A
// process normally embeds a single node and a single Collector, but tests
// spin up many Hosts in one binary — sharing the default registry would
// collide on the second New() call since metric names are fixed.
type Collector struct {
	registry *prometheus.Registry

	PingsSent          prometheus.Counter
	PingAnswersSent    prometheus.Counter
	IndirectEscalation prometheus.Counter
	PeersRemoved       prometheus.Counter
	PeersDiscovered    prometheus.Counter
	ActiveMembers      prometheus.Gauge
}

// New creates a Collector registered against its own private registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		PingsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "groupmember_pings_sent_total",
			Help: "Direct and indirect PING messages sent.",
		}),
		PingAnswersSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "groupmember_ping_answers_sent_total",
			Help: "PING_ANSWER messages sent.",
		}),
		IndirectEscalation: factory.NewCounter(prometheus.CounterOpts{
			Name: "groupmember_indirect_escalations_total",
			Help: "Suspicion escalations from AWAITING_DIRECT to AWAITING_INDIRECT.",
		}),
		PeersRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "groupmember_peers_removed_total",
			Help: "Peers marked removed after exhausting indirect suspicion.",
		}),
		PeersDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "groupmember_peers_discovered_total",
			Help: "New peers learned via PING/PING_ANSWER liveness refresh.",
		}),
		ActiveMembers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "groupmember_active_members",
			Help: "Current size of the local active-set view.",
		}),
	}
}

// Handler serves this Collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
