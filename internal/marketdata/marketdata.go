// Package marketdata holds the cache-line-aligned value types for quotes
// and trades that flow through the hot path: plain structs, trivially
// copyable, with no hidden allocation in any of their helper methods.
package marketdata

import (
	"xvenue/internal/symbol"
	"xvenue/pkg/fixedpoint"
)

// Venue distinguishes which streaming venue a record originated from.
type Venue uint8

const (
	VenuePrimary   Venue = 0
	VenueSecondary Venue = 1
)

func (v Venue) String() string {
	switch v {
	case VenuePrimary:
		return "primary"
	case VenueSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Side is the taker side of a trade.
type Side uint8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// ParseSide parses a Buy/Sell byte string in one of the venues' casings:
// "BUY", "buy", "Buy", "SELL", "sell" or "Sell". Other casings fail.
func ParseSide(b []byte) (Side, bool) {
	switch string(b) {
	case "BUY", "buy", "Buy":
		return SideBuy, true
	case "SELL", "sell", "Sell":
		return SideSell, true
	default:
		return 0, false
	}
}

func (s Side) IsBuy() bool  { return s == SideBuy }
func (s Side) IsSell() bool { return s == SideSell }

// Quote is a best top-of-book snapshot for one instrument at one venue.
// Laid out to occupy exactly one 64-byte cache line.
type Quote struct {
	BidPrice    fixedpoint.F8
	BidSize     fixedpoint.F8
	AskPrice    fixedpoint.F8
	AskSize     fixedpoint.F8
	TimestampNs uint64
	Symbol      symbol.Symbol
	VenueTag    Venue
	_           [19]byte // pad to 64 bytes
}

// NewQuote builds a Quote value. Provided for readability at call sites;
// a plain struct literal works equally well.
func NewQuote(sym symbol.Symbol, bidPrice, bidSize, askPrice, askSize fixedpoint.F8, tsNs uint64, venue Venue) Quote {
	return Quote{
		Symbol:      sym,
		BidPrice:    bidPrice,
		BidSize:     bidSize,
		AskPrice:    askPrice,
		AskSize:     askSize,
		TimestampNs: tsNs,
		VenueTag:    venue,
	}
}

// IsValid reports whether q satisfies the quote invariant: both sides
// positive and the book not crossed.
func (q Quote) IsValid() bool {
	return q.BidPrice.IsPositive() && q.AskPrice.IsPositive() && q.AskPrice.Raw() >= q.BidPrice.Raw()
}

// Mid returns the midpoint of bid and ask, or (0, false) on overflow.
func (q Quote) Mid() (fixedpoint.F8, bool) {
	sum, ok := q.BidPrice.CheckedAdd(q.AskPrice)
	if !ok {
		return 0, false
	}
	return fixedpoint.FromRaw(sum.Raw() / 2), true
}

// SpreadAbsolute returns ask-bid, or (0, false) on overflow.
func (q Quote) SpreadAbsolute() (fixedpoint.F8, bool) {
	return q.AskPrice.CheckedSub(q.BidPrice)
}

// Trade is an individual executed trade. Laid out to occupy exactly one
// 64-byte cache line.
type Trade struct {
	Price       fixedpoint.F8
	Quantity    fixedpoint.F8
	TimestampNs uint64
	Symbol      symbol.Symbol
	SideTag     Side
	IsTaker     bool
	VenueTag    Venue
	_           [33]byte // pad to 64 bytes
}

// NewTrade builds a Trade value.
func NewTrade(sym symbol.Symbol, price, qty fixedpoint.F8, tsNs uint64, side Side, isTaker bool, venue Venue) Trade {
	return Trade{
		Symbol:      sym,
		Price:       price,
		Quantity:    qty,
		TimestampNs: tsNs,
		SideTag:     side,
		IsTaker:     isTaker,
		VenueTag:    venue,
	}
}

// Notional returns price*quantity, or (0, false) on overflow.
func (t Trade) Notional() (fixedpoint.F8, bool) {
	return t.Price.SafeMul(t.Quantity)
}

// IsValid reports whether t carries a positive price and quantity.
func (t Trade) IsValid() bool {
	return t.Price.IsPositive() && t.Quantity.IsPositive()
}
