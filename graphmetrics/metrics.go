// Package graphmetrics exports dependency graph activity and size as
// Prometheus metrics.
package graphmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/souporserious/renoun-depgraph/depgraph"
)

const namespace = "depgraph"

// Metrics is a depgraph.Observer that counts graph operations.
type Metrics struct {
	nodesRegistered     prometheus.Counter
	nodesUnregistered   prometheus.Counter
	dependenciesTouched prometheus.Counter
	nodesAffected       prometheus.Histogram
	signalsSwept        prometheus.Counter
}

var _ depgraph.Observer = (*Metrics)(nil)

// New registers the operation counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		nodesRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "registered_total",
			Help:      "Node registrations, including re-registrations",
		}),
		nodesUnregistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "unregistered_total",
			Help:      "Node unregistrations",
		}),
		dependenciesTouched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dependencies",
			Name:      "touched_total",
			Help:      "Dependency signals notified by touches and version changes",
		}),
		nodesAffected: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "paths",
			Name:      "affected_nodes",
			Help:      "Nodes affected by a single path touch",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),
		signalsSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "swept_total",
			Help:      "Unreferenced dependency signals reclaimed by sweeps",
		}),
	}
}

func (m *Metrics) NodeRegistered(string, int) {
	m.nodesRegistered.Inc()
}

func (m *Metrics) NodeUnregistered(string) {
	m.nodesUnregistered.Inc()
}

func (m *Metrics) DependenciesTouched(n int) {
	m.dependenciesTouched.Add(float64(n))
}

func (m *Metrics) NodesAffected(n int) {
	m.nodesAffected.Observe(float64(n))
}

func (m *Metrics) SignalsSwept(n int) {
	m.signalsSwept.Add(float64(n))
}

// RegisterGauges exposes the graph's current size on reg. stats is called on
// every scrape, from the scraping goroutine, so it must serialize access to
// the graph itself.
func RegisterGauges(reg prometheus.Registerer, stats func() depgraph.Stats) {
	factory := promauto.With(reg)
	gauge := func(subsystem, name, help string, read func(depgraph.Stats) int) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(read(stats()))
		})
	}

	gauge("nodes", "registered", "Registered nodes", func(s depgraph.Stats) int { return s.Nodes })
	gauge("nodes", "dirty", "Dirty nodes", func(s depgraph.Stats) int { return s.DirtyNodes })
	gauge("signals", "live", "Live dependency signals", func(s depgraph.Stats) int { return s.Signals })
	gauge("signals", "pending_cleanup", "Unreferenced signals waiting for a sweep", func(s depgraph.Stats) int { return s.PendingCleanup })
	gauge("dependencies", "referenced", "Dependency keys with at least one dependent node", func(s depgraph.Stats) int { return s.ReferencedKeys })
	gauge("paths", "file_entries", "Keys in the file path index", func(s depgraph.Stats) int { return s.FileEntries })
	gauge("paths", "dir_entries", "Keys in the directory path index", func(s depgraph.Stats) int { return s.DirEntries })
}
