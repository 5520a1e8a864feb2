package marketdata

import (
	"testing"
	"unsafe"

	"xvenue/internal/symbol"
	"xvenue/pkg/fixedpoint"
)

func TestQuoteSize(t *testing.T) {
	var q Quote
	if got := unsafe.Sizeof(q); got != 64 {
		t.Errorf("Quote size = %d, want 64", got)
	}
}

func TestTradeSize(t *testing.T) {
	var tr Trade
	if got := unsafe.Sizeof(tr); got != 64 {
		t.Errorf("Trade size = %d, want 64", got)
	}
}

func TestQuoteIsValid(t *testing.T) {
	valid := NewQuote(symbol.Symbol(0),
		fixedpoint.FromRaw(99_000_000_00),
		fixedpoint.FromRaw(1_000_000_00),
		fixedpoint.FromRaw(101_000_000_00),
		fixedpoint.FromRaw(2_000_000_00),
		1234567890, VenuePrimary)
	if !valid.IsValid() {
		t.Error("expected valid quote")
	}

	crossed := NewQuote(symbol.Symbol(0),
		fixedpoint.FromRaw(101_000_000_00),
		fixedpoint.One,
		fixedpoint.FromRaw(100_000_000_00),
		fixedpoint.One,
		1234567890, VenuePrimary)
	if crossed.IsValid() {
		t.Error("expected crossed quote to be invalid")
	}

	zeroBid := NewQuote(symbol.Symbol(0), 0, fixedpoint.One, fixedpoint.One, fixedpoint.One, 1, VenuePrimary)
	if zeroBid.IsValid() {
		t.Error("expected zero bid to be invalid")
	}

	equalBidAsk := NewQuote(symbol.Symbol(0), fixedpoint.One, fixedpoint.One, fixedpoint.One, fixedpoint.One, 1, VenuePrimary)
	if !equalBidAsk.IsValid() {
		t.Error("expected bid==ask to be valid per spec's ask>=bid invariant")
	}
}

func TestQuoteMidAndSpread(t *testing.T) {
	q := NewQuote(symbol.Symbol(0),
		fixedpoint.FromRaw(100_000_000_00),
		fixedpoint.One,
		fixedpoint.FromRaw(102_000_000_00),
		fixedpoint.One,
		1234567890, VenuePrimary)

	mid, ok := q.Mid()
	if !ok || mid.Raw() != 101_000_000_00 {
		t.Errorf("Mid() = %d, %v, want 101_000_000_00", mid.Raw(), ok)
	}

	spread, ok := q.SpreadAbsolute()
	if !ok || spread.Raw() != 2_000_000_00 {
		t.Errorf("SpreadAbsolute() = %d, %v, want 2_000_000_00", spread.Raw(), ok)
	}
}

func TestTradeNotional(t *testing.T) {
	tr := NewTrade(symbol.Symbol(0), fixedpoint.FromRaw(100_000_000_00), fixedpoint.FromRaw(2_000_000_00), 1, SideSell, true, VenuePrimary)
	notional, ok := tr.Notional()
	if !ok || notional.Raw() != 200_000_000_00 {
		t.Errorf("Notional() = %d, %v, want 200_000_000_00", notional.Raw(), ok)
	}
}

func TestParseSide(t *testing.T) {
	cases := map[string]Side{"BUY": SideBuy, "buy": SideBuy, "Buy": SideBuy, "SELL": SideSell, "sell": SideSell, "Sell": SideSell}
	for in, want := range cases {
		got, ok := ParseSide([]byte(in))
		if !ok || got != want {
			t.Errorf("ParseSide(%q) = %d, %v, want %d", in, got, ok, want)
		}
	}
	if _, ok := ParseSide([]byte("unknown")); ok {
		t.Error("expected ParseSide(unknown) to fail")
	}
}
