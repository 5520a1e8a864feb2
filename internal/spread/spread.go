// Package spread computes the cross-venue spread between the most recent
// valid quote from each venue for a symbol: a dense, single-owner,
// zero-allocation cache plus a fixed-direction formula.
package spread

import (
	"time"

	"xvenue/internal/marketdata"
	"xvenue/internal/symbol"
	"xvenue/pkg/fixedpoint"
)

// Direction is the sole spread direction this calculator reports: buy on
// the primary venue's ask, sell on the secondary venue's bid.
const Direction = "buy-primary/sell-secondary"

// Event is an instantaneous cross-venue spread observation.
type Event struct {
	Symbol      symbol.Symbol
	Bps         fixedpoint.F8
	Direction   string
	TimestampNs uint64
}

// Calculator owns a dense [capacity][2] table of the latest quote seen per
// symbol per venue. It has a single owner (the aggregator goroutine) and
// performs no locking and no heap allocation after construction.
type Calculator struct {
	primary          []marketdata.Quote
	secondary        []marketdata.Quote
	presentPrimary   []bool
	presentSecondary []bool
	maxAge           time.Duration
}

// New allocates a calculator sized for capacity distinct symbol IDs.
// maxAge is the staleness window: a quote older than maxAge is treated
// as missing rather than stale-but-usable.
func New(capacity int, maxAge time.Duration) *Calculator {
	return &Calculator{
		primary:          make([]marketdata.Quote, capacity),
		secondary:        make([]marketdata.Quote, capacity),
		presentPrimary:   make([]bool, capacity),
		presentSecondary: make([]bool, capacity),
		maxAge:           maxAge,
	}
}

// Update replaces the cached quote for q's venue and symbol and, if both
// venue slots are now populated, valid, and fresh, computes and returns a
// spread event. ok is false whenever no event was produced (missing leg,
// invalid quote, stale quote, zero ask price, or out-of-range symbol).
func (c *Calculator) Update(venue marketdata.Venue, q marketdata.Quote) (Event, bool) {
	idx := int(q.Symbol)
	if idx < 0 || idx >= len(c.primary) {
		return Event{}, false
	}

	switch venue {
	case marketdata.VenuePrimary:
		c.primary[idx] = q
		c.presentPrimary[idx] = true
	case marketdata.VenueSecondary:
		c.secondary[idx] = q
		c.presentSecondary[idx] = true
	default:
		return Event{}, false
	}

	if !c.presentPrimary[idx] || !c.presentSecondary[idx] {
		return Event{}, false
	}

	p := c.primary[idx]
	s := c.secondary[idx]
	nowNs := uint64(time.Now().UnixNano())
	if c.isStale(p, nowNs) || c.isStale(s, nowNs) {
		return Event{}, false
	}
	if !p.IsValid() || !s.IsValid() {
		return Event{}, false
	}

	bps, ok := p.AskPrice.SpreadBps(s.BidPrice)
	if !ok {
		return Event{}, false
	}

	ts := p.TimestampNs
	if s.TimestampNs > ts {
		ts = s.TimestampNs
	}

	return Event{
		Symbol:      symbol.Symbol(idx),
		Bps:         bps,
		Direction:   Direction,
		TimestampNs: ts,
	}, true
}

func (c *Calculator) isStale(q marketdata.Quote, nowNs uint64) bool {
	if q.TimestampNs >= nowNs {
		return false
	}
	return time.Duration(nowNs-q.TimestampNs) > c.maxAge
}

// Latest returns the most recently cached quote for each venue and whether
// each slot is populated. Intended for cold-path inspection only.
func (c *Calculator) Latest(sym symbol.Symbol) (primary, secondary marketdata.Quote, hasPrimary, hasSecondary bool) {
	idx := int(sym)
	if idx < 0 || idx >= len(c.primary) {
		return marketdata.Quote{}, marketdata.Quote{}, false, false
	}
	return c.primary[idx], c.secondary[idx], c.presentPrimary[idx], c.presentSecondary[idx]
}

// IsStale reports whether sym's published spread is built on a quote that
// has aged out of maxAge on either leg, or is missing a leg entirely.
// Intended for cold-path inspection only (the snapshot provider).
func (c *Calculator) IsStale(sym symbol.Symbol) bool {
	primary, secondary, hasPrimary, hasSecondary := c.Latest(sym)
	if !hasPrimary || !hasSecondary {
		return true
	}
	nowNs := uint64(time.Now().UnixNano())
	return c.isStale(primary, nowNs) || c.isStale(secondary, nowNs)
}
