// Package metrics maintains two parallel views of the same counters: a
// lock-free atomic set used internally by the snapshot provider (no
// allocation, no Prometheus client calls from the hot path), and a
// Prometheus registry exposed over /metrics. Both are updated from the
// same call sites: parse errors are recorded on each venue's receive
// goroutine, connection state by the orchestrator's polling goroutine,
// and the remaining counters on the aggregator's own task.
package metrics

import (
	"time"

	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the atomic counters plus the Prometheus instruments they
// mirror.
type Metrics struct {
	eventsProcessed    atomic.Uint64
	parseErrors        atomic.Uint64
	spreadEvents       atomic.Uint64
	hits               atomic.Uint64
	primaryConnected   atomic.Bool
	secondaryConnected atomic.Bool
	lastEventNs        atomic.Int64

	registry *prometheus.Registry

	promEventsProcessed prometheus.Counter
	promParseErrors     prometheus.Counter
	promSpreadEvents    prometheus.Counter
	promHits            prometheus.Counter
	promConnected       *prometheus.GaugeVec
}

// New constructs a Metrics instance and registers its Prometheus
// instruments against a private registry (never the global default
// registry, so tests and multiple instances don't collide).
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		promEventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total quote and trade records routed to the aggregator.",
		}),
		promParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total venue frames that failed to parse.",
		}),
		promSpreadEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spread_events_total",
			Help:      "Total spread events computed across all symbols.",
		}),
		promHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threshold_hits_total",
			Help:      "Total zero-crossing hits observed across all symbols.",
		}),
		promConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "venue_connected",
			Help:      "Whether a venue's stream connection is currently in the Subscribing or Streaming state (1) or not (0).",
		}, []string{"venue"}),
	}

	registry.MustRegister(
		m.promEventsProcessed,
		m.promParseErrors,
		m.promSpreadEvents,
		m.promHits,
		m.promConnected,
	)

	return m
}

// Registry returns the private Prometheus registry for wiring into
// promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordEventProcessed increments the processed-record counter and stamps
// the last-update clock the snapshot reports as "last-update age".
func (m *Metrics) RecordEventProcessed() {
	m.eventsProcessed.Add(1)
	m.promEventsProcessed.Inc()
	m.lastEventNs.Store(time.Now().UnixNano())
}

// RecordParseError increments the parse-failure counter.
func (m *Metrics) RecordParseError() {
	m.parseErrors.Add(1)
	m.promParseErrors.Inc()
}

// RecordSpreadEvent increments the spread-event counter.
func (m *Metrics) RecordSpreadEvent() {
	m.spreadEvents.Add(1)
	m.promSpreadEvents.Inc()
}

// RecordHit increments the threshold-crossing hit counter.
func (m *Metrics) RecordHit() {
	m.hits.Add(1)
	m.promHits.Inc()
}

// SetVenueConnected updates the per-venue connected gauge. venue is
// expected to be "primary" or "secondary", matching the label values
// scraped off /metrics.
func (m *Metrics) SetVenueConnected(venue string, connected bool) {
	switch venue {
	case "primary":
		m.primaryConnected.Store(connected)
	case "secondary":
		m.secondaryConnected.Store(connected)
	}
	v := 0.0
	if connected {
		v = 1.0
	}
	m.promConnected.WithLabelValues(venue).Set(v)
}

// Snapshot is a point-in-time read of the atomic counters, used by the
// snapshot provider without touching the Prometheus client library.
type Snapshot struct {
	EventsProcessed    uint64
	ParseErrors        uint64
	SpreadEvents       uint64
	Hits               uint64
	PrimaryConnected   bool
	SecondaryConnected bool
	LastEventAt        time.Time
	Timestamp          time.Time
}

// Snapshot reads the current atomic counter values. LastEventAt is the
// zero Time if no record has been processed yet.
func (m *Metrics) Snapshot() Snapshot {
	var lastEventAt time.Time
	if ns := m.lastEventNs.Load(); ns != 0 {
		lastEventAt = time.Unix(0, ns)
	}
	return Snapshot{
		EventsProcessed:    m.eventsProcessed.Load(),
		ParseErrors:        m.parseErrors.Load(),
		SpreadEvents:       m.spreadEvents.Load(),
		Hits:               m.hits.Load(),
		PrimaryConnected:   m.primaryConnected.Load(),
		SecondaryConnected: m.secondaryConnected.Load(),
		LastEventAt:        lastEventAt,
		Timestamp:          time.Now(),
	}
}
