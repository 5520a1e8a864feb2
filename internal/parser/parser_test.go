package parser

import (
	"testing"

	"xvenue/internal/marketdata"
	"xvenue/internal/symbol"
)

func newTestRegistry(t *testing.T) *symbol.Registry {
	t.Helper()
	reg := symbol.NewRegistry(16)
	if err := reg.RegisterAll([]string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return reg
}

func TestForEachArrayObjectVisitsEveryTopLevelObjectInOrder(t *testing.T) {
	arr := []byte(`[{"a":1},{"b":{"nested":true}},{"c":3}]`)

	var seen []string
	forEachArrayObject(arr, func(obj []byte) bool {
		seen = append(seen, string(obj))
		return true
	})

	want := []string{`{"a":1}`, `{"b":{"nested":true}}`, `{"c":3}`}
	if len(seen) != len(want) {
		t.Fatalf("visited %d objects, want %d: %v", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("object %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestForEachArrayObjectStopsEarlyWhenFnReturnsFalse(t *testing.T) {
	arr := []byte(`[{"a":1},{"b":2},{"c":3}]`)

	var seen int
	forEachArrayObject(arr, func(obj []byte) bool {
		seen++
		return seen < 1
	})

	if seen != 1 {
		t.Errorf("visited %d objects, want exactly 1 before stopping", seen)
	}
}

func TestDetectPrimary(t *testing.T) {
	aggTrade := []byte(`{"e":"aggTrade","s":"BTCUSDT","p":"25000.50","q":"0.001","T":1672304484972,"m":true}`)
	bookTicker := []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"25000.50","B":"1.5","a":"25001.00","A":"2.0"}`)

	if got := DetectPrimary(aggTrade); got != KindTrade {
		t.Errorf("DetectPrimary(aggTrade) = %v, want KindTrade", got)
	}
	if got := DetectPrimary(bookTicker); got != KindQuote {
		t.Errorf("DetectPrimary(bookTicker) = %v, want KindQuote", got)
	}
}

// S1 — Primary quote ingest.
func TestParsePrimaryQuoteScenarioS1(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"60000.10","a":"60000.20","T":1700000000000}`)

	q, ok := ParsePrimaryQuote(reg, frame, 999)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if q.BidPrice.Raw() != 6_000_010_000_000 {
		t.Errorf("bid = %d, want 6000010000000", q.BidPrice.Raw())
	}
	if q.AskPrice.Raw() != 6_000_020_000_000 {
		t.Errorf("ask = %d, want 6000020000000", q.AskPrice.Raw())
	}
	if q.TimestampNs != 1_700_000_000_000_000_000 {
		t.Errorf("timestamp = %d, want 1700000000000000000", q.TimestampNs)
	}
	if !q.IsValid() {
		t.Error("expected valid quote")
	}
	if q.Symbol != symbol.Symbol(0) {
		t.Errorf("symbol = %d, want 0 (BTCUSDT)", q.Symbol)
	}
}

func TestParsePrimaryQuoteMissingTimestampUsesReceiveTime(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"25000.50","B":"1.5","a":"25001.00","A":"2.0"}`)

	q, ok := ParsePrimaryQuote(reg, frame, 42_000_000)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if q.TimestampNs != 42_000_000 {
		t.Errorf("timestamp = %d, want substituted receive time 42000000", q.TimestampNs)
	}
	if q.BidSize.Raw() != 150_000_000 {
		t.Errorf("bid size = %d, want 150000000", q.BidSize.Raw())
	}
}

func TestParsePrimaryTradeAggTrade(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"e":"aggTrade","E":1672304484973,"s":"BTCUSDT","a":12345,"p":"25000.50","q":"0.001","f":12340,"l":12344,"T":1672304484972,"m":true}`)

	tr, ok := ParsePrimaryTrade(reg, frame)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if tr.Price.Raw() != 2_500_050_000_000 {
		t.Errorf("price = %d, want 2500050000000", tr.Price.Raw())
	}
	if tr.Quantity.Raw() != 100_000 {
		t.Errorf("quantity = %d, want 100000", tr.Quantity.Raw())
	}
	if tr.TimestampNs != 1_672_304_484_972_000_000 {
		t.Errorf("timestamp = %d", tr.TimestampNs)
	}
	if !tr.IsTaker {
		t.Error("expected is_buyer_maker true")
	}
	if tr.SideTag != marketdata.SideSell {
		t.Errorf("side = %d, want Sell (m=true)", tr.SideTag)
	}
}

func TestParsePrimaryTradeTakerBuy(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"e":"aggTrade","s":"ETHUSDT","p":"1800.25","q":"1.5","T":1672304485000,"m":false}`)

	tr, ok := ParsePrimaryTrade(reg, frame)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if tr.SideTag != marketdata.SideBuy {
		t.Errorf("side = %d, want Buy (m=false)", tr.SideTag)
	}
	if tr.IsTaker {
		t.Error("expected is_buyer_maker false")
	}
}

func TestParsePrimaryMissingFieldsFail(t *testing.T) {
	reg := newTestRegistry(t)
	if _, ok := ParsePrimaryTrade(reg, []byte(`{"e":"aggTrade"}`)); ok {
		t.Error("expected parse failure on missing fields")
	}
	if _, ok := ParsePrimaryQuote(reg, []byte(`{"e":"bookTicker"}`), 0); ok {
		t.Error("expected parse failure on missing fields")
	}
}

func TestDetectSecondary(t *testing.T) {
	trade := []byte(`{"topic":"publicTrade.BTCUSDT","data":[{"s":"BTCUSDT"}]}`)
	ticker := []byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"BTCUSDT"}}`)

	if got := DetectSecondary(trade); got != KindTrade {
		t.Errorf("DetectSecondary(trade) = %v, want KindTrade", got)
	}
	if got := DetectSecondary(ticker); got != KindQuote {
		t.Errorf("DetectSecondary(ticker) = %v, want KindQuote", got)
	}
}

func TestParseSecondaryQuote(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","ts":1672304484973,"data":{"symbol":"BTCUSDT","bid1Price":"25000.50","bid1Size":"1.5","ask1Price":"25001.00","ask1Size":"2.0"}}`)

	q, ok := ParseSecondaryQuote(reg, frame)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if q.BidPrice.Raw() != 2_500_050_000_000 {
		t.Errorf("bid price = %d", q.BidPrice.Raw())
	}
	if q.AskSize.Raw() != 200_000_000 {
		t.Errorf("ask size = %d", q.AskSize.Raw())
	}
	if !q.IsValid() {
		t.Error("expected valid quote")
	}
}

func TestParseSecondaryQuoteSymbolFallsBackToTopic(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"topic":"tickers.ETHUSDT","data":{"bid1Price":"1.0","bid1Size":"1.0","ask1Price":"1.1","ask1Size":"1.0"}}`)

	q, ok := ParseSecondaryQuote(reg, frame)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if q.Symbol != symbol.Symbol(1) {
		t.Errorf("symbol = %d, want 1 (ETHUSDT)", q.Symbol)
	}
}

// S2 — Secondary trade batch.
func TestParseSecondaryTradesScenarioS2(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"topic":"publicTrade.ETHUSDT","ts":1700000001000,"data":[{"s":"ETHUSDT","S":"Buy","p":"3000.5","v":"0.1","T":1700000000900},{"s":"ETHUSDT","S":"Sell","p":"3000.4","v":"0.05","T":1700000000950}]}`)

	trades, ok := ParseSecondaryTrades(reg, frame)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}

	first := trades[0]
	if first.Price.Raw() != 300_050_000_000 {
		t.Errorf("first price = %d, want 300050000000", first.Price.Raw())
	}
	if first.Quantity.Raw() != 10_000_000 {
		t.Errorf("first qty = %d, want 10000000", first.Quantity.Raw())
	}
	if first.SideTag != marketdata.SideBuy {
		t.Errorf("first side = %d, want Buy", first.SideTag)
	}
	if first.TimestampNs != 1_700_000_000_900_000_000 {
		t.Errorf("first timestamp = %d", first.TimestampNs)
	}

	second := trades[1]
	if second.SideTag != marketdata.SideSell {
		t.Errorf("second side = %d, want Sell", second.SideTag)
	}
	if second.Price.Raw() != 300_040_000_000 {
		t.Errorf("second price = %d, want 300040000000", second.Price.Raw())
	}
}

func TestParseSecondaryTradesSingleItem(t *testing.T) {
	reg := newTestRegistry(t)
	frame := []byte(`{"topic":"publicTrade.BTCUSDT","data":[{"T":1672304484972,"s":"BTCUSDT","S":"Buy","v":"0.001","p":"16500.50","i":"13414134131","BT":false}]}`)

	trades, ok := ParseSecondaryTrades(reg, frame)
	if !ok || len(trades) != 1 {
		t.Fatalf("ParseSecondaryTrades = %v, %v", trades, ok)
	}
	if trades[0].Price.Raw() != 1_650_050_000_000 {
		t.Errorf("price = %d, want 1650050000000", trades[0].Price.Raw())
	}
}

func TestParseSecondaryMissingFieldsFail(t *testing.T) {
	reg := newTestRegistry(t)
	if _, ok := ParseSecondaryTrades(reg, []byte(`{"topic":"publicTrade"}`)); ok {
		t.Error("expected parse failure without data array")
	}
	if _, ok := ParseSecondaryQuote(reg, []byte(`{"topic":"tickers"}`)); ok {
		t.Error("expected parse failure on missing fields")
	}
}

func TestExtractSymbolFromTopic(t *testing.T) {
	sym, ok := extractSymbolFromTopic([]byte(`{"topic":"publicTrade.BTCUSDT","data":[]}`))
	if !ok || string(sym) != "BTCUSDT" {
		t.Errorf("extractSymbolFromTopic = %q, %v", sym, ok)
	}
}
