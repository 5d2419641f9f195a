// Package metrics wires the daemon's counters and gauges into one
// prometheus.Registerer, exposed over HTTP via promhttp from cmd/chitind.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the daemon exports.
type Metrics struct {
	Registry prometheus.Registerer

	PolypsSubmitted   prometheus.Counter
	PolypsHardened    prometheus.Counter
	QueriesServed     prometheus.Counter
	GossipPushFailures prometheus.Counter
	SyncPullsCompleted prometheus.Counter
	EpochsCompleted   prometheus.Counter
	CurrentEpoch      prometheus.Gauge
	PeerCount         prometheus.Gauge
	RPCRequestLatency prometheus.Histogram
}

// New registers every collector against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registry: reg,
		PolypsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitin_polyps_submitted_total",
			Help: "Total capsules accepted via polyp/submit.",
		}),
		PolypsHardened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitin_polyps_hardened_total",
			Help: "Total capsules that reached the hardened state.",
		}),
		QueriesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitin_queries_served_total",
			Help: "Total query/search and query/hybrid calls served.",
		}),
		GossipPushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitin_gossip_push_failures_total",
			Help: "Total failed gossip pushes to peers.",
		}),
		SyncPullsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitin_sync_pulls_completed_total",
			Help: "Total pull-sync passes completed.",
		}),
		EpochsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chitin_epochs_completed_total",
			Help: "Total epochs for which consensus has run.",
		}),
		CurrentEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chitin_current_epoch",
			Help: "The epoch number the node currently believes it is in.",
		}),
		PeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chitin_peer_count",
			Help: "Number of peers currently configured.",
		}),
		RPCRequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chitin_rpc_request_duration_seconds",
			Help:    "Latency of JSON-RPC method calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.PolypsSubmitted, m.PolypsHardened, m.QueriesServed,
		m.GossipPushFailures, m.SyncPullsCompleted, m.EpochsCompleted,
		m.CurrentEpoch, m.PeerCount, m.RPCRequestLatency,
	} {
		if err := m.Register(c); err != nil {
			// Registration only fails on a duplicate collector, which
			// cannot happen here since each is constructed exactly once.
			panic(err)
		}
	}

	return m
}

// Register adds a collector to the underlying registry.
func (m *Metrics) Register(collector prometheus.Collector) error {
	return m.Registry.Register(collector)
}
