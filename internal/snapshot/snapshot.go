// Package snapshot builds the read-only aggregate view served cold-path
// by the HTTP surface: a sorted, filtered slice of per-symbol statistics
// plus system-wide counters, published via an atomic pointer swap so
// readers never block the writer.
package snapshot

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"xvenue/internal/metrics"
	"xvenue/internal/spread"
	"xvenue/internal/symbol"
	"xvenue/internal/tracker"
	"xvenue/pkg/fixedpoint"
)

// bpsToFloat converts a fixedpoint.F8 spread value to a plain float64 for
// JSON serialization; the snapshot is cold-path output, not hot-path
// arithmetic, so the precision loss here is acceptable.
func bpsToFloat(v fixedpoint.F8) float64 {
	return float64(v.Raw()) / float64(fixedpoint.Scale)
}

// SymbolEntry is one row of the published snapshot.
type SymbolEntry struct {
	Symbol           string  `json:"symbol"`
	CurrentSpreadBps float64 `json:"current_spread_bps"`
	RangeBps         float64 `json:"range_bps"`
	RangeAvailable   bool    `json:"range_available"`
	Hits             uint64  `json:"hits"`
	HalfLifeSeconds  float64 `json:"half_life_seconds"`
	HalfLifeReady    bool    `json:"half_life_ready"`
	Stale            bool    `json:"stale"`
}

// SystemCounters mirrors the atomic metrics counters relevant to an
// operator glancing at /snapshot.
type SystemCounters struct {
	EventsProcessed      uint64    `json:"events_processed"`
	ParseErrors          uint64    `json:"parse_errors"`
	SpreadEvents         uint64    `json:"spread_events"`
	Hits                 uint64    `json:"hits"`
	PrimaryConnected     bool      `json:"primary_connected"`
	SecondaryConnected   bool      `json:"secondary_connected"`
	MessagesPerSec       float64   `json:"messages_per_sec"`
	LastUpdateAgeSeconds float64   `json:"last_update_age_seconds"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// Snapshot is the immutable view published at a fixed cadence.
type Snapshot struct {
	Symbols []SymbolEntry  `json:"symbols"`
	System  SystemCounters `json:"system"`
}

// Provider owns the published pointer. The aggregator calls Publish at a
// fixed interval; any number of readers call Current concurrently
// without blocking the writer or each other.
type Provider struct {
	current atomic.Pointer[Snapshot]
	reg     *symbol.Registry
	tr      *tracker.Tracker
	m       *metrics.Metrics
	calc    *spread.Calculator

	prevEvents uint64
	prevAt     time.Time
}

// NewProvider constructs a provider over the given registry, tracker,
// metrics instance, and spread calculator. An empty snapshot is published
// immediately so Current never returns nil.
func NewProvider(reg *symbol.Registry, tr *tracker.Tracker, m *metrics.Metrics, calc *spread.Calculator) *Provider {
	p := &Provider{reg: reg, tr: tr, m: m, calc: calc}
	p.current.Store(&Snapshot{Symbols: []SymbolEntry{}})
	return p
}

// Current returns the most recently published snapshot. Never blocks.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Publish builds a fresh snapshot from the tracker and metrics state and
// atomically swaps it in. Symbols that have never received a spread event
// are omitted; a symbol whose last event has aged out of the window is
// still listed.
// Results are ordered by hit count descending, then by range descending.
func (p *Provider) Publish() {
	entries := make([]SymbolEntry, 0, p.reg.Capacity())

	for id := 0; id < p.reg.Capacity(); id++ {
		sym := symbol.Symbol(id)
		if !p.tr.Active(sym) {
			continue
		}
		name, ok := p.reg.Name(sym)
		if !ok {
			continue
		}
		stats, ok := p.tr.Stats(sym)
		if !ok {
			continue
		}
		entries = append(entries, SymbolEntry{
			Symbol:           name,
			CurrentSpreadBps: bpsToFloat(stats.CurrentSpread),
			RangeBps:         bpsToFloat(stats.Range),
			RangeAvailable:   stats.RangeAvailable,
			Hits:             stats.Hits,
			HalfLifeSeconds:  stats.HalfLifeSeconds,
			HalfLifeReady:    stats.HalfLifeReady,
			Stale:            p.calc.IsStale(sym),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Hits != entries[j].Hits {
			return entries[i].Hits > entries[j].Hits
		}
		return entries[i].RangeBps > entries[j].RangeBps
	})

	metricsSnap := p.m.Snapshot()

	var msgsPerSec float64
	if !p.prevAt.IsZero() && metricsSnap.EventsProcessed >= p.prevEvents {
		if elapsed := metricsSnap.Timestamp.Sub(p.prevAt).Seconds(); elapsed > 0 {
			msgsPerSec = float64(metricsSnap.EventsProcessed-p.prevEvents) / elapsed
		}
	}
	p.prevEvents = metricsSnap.EventsProcessed
	p.prevAt = metricsSnap.Timestamp

	var lastUpdateAge float64
	if !metricsSnap.LastEventAt.IsZero() {
		lastUpdateAge = metricsSnap.Timestamp.Sub(metricsSnap.LastEventAt).Seconds()
	}

	snap := &Snapshot{
		Symbols: entries,
		System: SystemCounters{
			EventsProcessed:      metricsSnap.EventsProcessed,
			ParseErrors:          metricsSnap.ParseErrors,
			SpreadEvents:         metricsSnap.SpreadEvents,
			Hits:                 metricsSnap.Hits,
			PrimaryConnected:     metricsSnap.PrimaryConnected,
			SecondaryConnected:   metricsSnap.SecondaryConnected,
			MessagesPerSec:       msgsPerSec,
			LastUpdateAgeSeconds: lastUpdateAge,
			GeneratedAt:          metricsSnap.Timestamp,
		},
	}

	p.current.Store(snap)
}

// Run publishes on a fixed-interval ticker until ctx is cancelled.
func (p *Provider) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Publish()
		}
	}
}
