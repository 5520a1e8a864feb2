// Package aggregator implements the single-writer market-data worker
// described by the concurrency model: one goroutine receives parsed
// quotes and trades from both venue stream clients through a bounded
// inbox channel and is the only caller that ever touches the router,
// spread calculator, and tracker state. Everything downstream of
// routing — the spread cache and tracker slices — is therefore
// single-writer even though two independent stream clients feed it.
package aggregator

import (
	"context"

	"xvenue/internal/marketdata"
	"xvenue/internal/router"
)

// DefaultInboxCapacity is the channel bound applied when no explicit
// capacity is configured.
const DefaultInboxCapacity = 16384

type kind int

const (
	kindQuote kind = iota
	kindTrade
)

type message struct {
	kind  kind
	quote marketdata.Quote
	trade marketdata.Trade
}

// Aggregator owns the router and is the sole caller of its Route*
// methods. Construct one per process and run it in exactly one
// goroutine via Run.
type Aggregator struct {
	inbox  chan message
	router *router.Router
}

// New allocates an aggregator with a bounded inbox of the given
// capacity. A non-positive capacity falls back to DefaultInboxCapacity.
func New(capacity int, rtr *router.Router) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Aggregator{
		inbox:  make(chan message, capacity),
		router: rtr,
	}
}

// SubmitQuote enqueues a parsed quote for the aggregator goroutine to
// apply. Safe to call concurrently from either venue's receive
// goroutine. Non-blocking: if the inbox is full the oldest queued message
// (quote or trade) is discarded to make room for q rather than blocking
// the caller; if the inbox is full again by the time of the retry, q
// itself is dropped.
func (a *Aggregator) SubmitQuote(q marketdata.Quote) {
	msg := message{kind: kindQuote, quote: q}
	select {
	case a.inbox <- msg:
		return
	default:
	}
	select {
	case <-a.inbox:
	default:
	}
	select {
	case a.inbox <- msg:
	default:
	}
}

// SubmitTrade enqueues a parsed trade. Non-blocking: if the inbox is full
// the trade itself is dropped.
func (a *Aggregator) SubmitTrade(t marketdata.Trade) {
	select {
	case a.inbox <- message{kind: kindTrade, trade: t}:
	default:
	}
}

// Run drains the inbox until ctx is cancelled. It must run in exactly
// one goroutine: every Route* call it makes, and everything that call
// triggers (spread update, tracker update, metrics), then has exactly
// one writer for the lifetime of the process.
func (a *Aggregator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.inbox:
			a.apply(msg)
		}
	}
}

func (a *Aggregator) apply(msg message) {
	switch msg.kind {
	case kindQuote:
		a.router.RouteQuote(msg.quote)
	case kindTrade:
		a.router.RouteTrade(msg.trade)
	}
}
