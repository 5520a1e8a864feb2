// Package tracker implements the warm-path per-symbol threshold tracker:
// a rolling window, a zero-crossing hysteresis hit counter, and a
// mean-reversion half-life estimator, all driven by spread events.
package tracker

import (
	"time"

	"xvenue/internal/spread"
	"xvenue/internal/symbol"
	"xvenue/pkg/fixedpoint"
)

// Stats is the per-symbol rolling statistics exposed to the snapshot.
type Stats struct {
	Symbol          symbol.Symbol
	CurrentSpread   fixedpoint.F8
	Range           fixedpoint.F8
	RangeAvailable  bool
	Hits            uint64
	HalfLifeSeconds float64
	HalfLifeReady   bool
}

// Tracker owns one Window, Hysteresis, and HalfLifeEstimator per symbol
// ID, dense-indexed like the rest of the hot/warm path. There is a single
// owner (the aggregator goroutine); no locking is performed.
type Tracker struct {
	windows   []*Window
	hyst      []Hysteresis
	halfLife  []*HalfLifeEstimator
	present   []bool

	eps fixedpoint.F8
}

// New allocates a tracker sized for capacity distinct symbol IDs.
// windowDuration bounds the rolling window (§4.I.1); eps is the
// hysteresis dead-band half-width (§4.I.2); halfLifeTau is the EW decay
// time constant (§4.I.3, default 60s).
func New(capacity int, windowDuration time.Duration, eps fixedpoint.F8, halfLifeTau time.Duration) *Tracker {
	t := &Tracker{
		windows:  make([]*Window, capacity),
		hyst:     make([]Hysteresis, capacity),
		halfLife: make([]*HalfLifeEstimator, capacity),
		present:  make([]bool, capacity),
		eps:      eps,
	}
	for i := 0; i < capacity; i++ {
		t.windows[i] = NewWindow(windowDuration, DefaultWindowCapacity)
		t.halfLife[i] = NewHalfLifeEstimator(halfLifeTau)
	}
	return t
}

// OnSpreadEvent feeds one spread event into the tracker for its symbol:
// appends to the rolling window, advances the hysteresis FSM, and updates
// the half-life estimator. hit reports whether this event completed a
// zero crossing. ok is false for an out-of-range symbol.
func (t *Tracker) OnSpreadEvent(ev spread.Event) (hit bool, ok bool) {
	idx := int(ev.Symbol)
	if idx < 0 || idx >= len(t.windows) {
		return false, false
	}

	ts := time.Unix(0, int64(ev.TimestampNs))
	t.windows[idx].Append(ts, ev.Bps)
	hit = t.hyst[idx].Update(ev.Bps, t.eps)
	t.halfLife[idx].Update(ev.Bps, ts)
	t.present[idx] = true
	return hit, true
}

// Stats returns the current rolling statistics for sym. ok is false if
// the symbol is out of range or has never received a spread event.
func (t *Tracker) Stats(sym symbol.Symbol) (Stats, bool) {
	idx := int(sym)
	if idx < 0 || idx >= len(t.windows) || !t.present[idx] {
		return Stats{}, false
	}

	current, _ := t.windows[idx].Current()
	rng, rngOK := t.windows[idx].Range()
	hl, hlReady := t.halfLife[idx].HalfLifeSeconds()

	return Stats{
		Symbol:          sym,
		CurrentSpread:   current,
		Range:           rng,
		RangeAvailable:  rngOK,
		Hits:            t.hyst[idx].Hits(),
		HalfLifeSeconds: hl,
		HalfLifeReady:   hlReady,
	}, true
}

// Active reports whether sym has received at least one spread event.
func (t *Tracker) Active(sym symbol.Symbol) bool {
	idx := int(sym)
	return idx >= 0 && idx < len(t.present) && t.present[idx]
}
