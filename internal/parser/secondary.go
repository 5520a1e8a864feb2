package parser

import (
	"xvenue/internal/marketdata"
	"xvenue/internal/symbol"
	"xvenue/pkg/fixedpoint"
)

var (
	publicTradeMarker = []byte("publicTrade")
	tickersMarker      = []byte("tickers")
	pongOpMarker        = []byte(`"op":"pong"`)
	successTrueMarker   = []byte(`"success":true`)
	dataFieldMarker     = []byte(`"data":`)
)

// DetectSecondary classifies a secondary-venue frame without fully parsing it.
func DetectSecondary(data []byte) Kind {
	switch {
	case containsWindow(data, publicTradeMarker):
		return KindTrade
	case containsWindow(data, tickersMarker):
		return KindQuote
	case containsWindow(data, pongOpMarker):
		return KindHeartbeat
	case containsWindow(data, successTrueMarker):
		return KindSubscriptionAck
	default:
		return KindUnknown
	}
}

// ParseSecondaryQuote parses a tickers frame into a Quote.
func ParseSecondaryQuote(reg *symbol.Registry, data []byte) (marketdata.Quote, bool) {
	if !containsWindow(data, tickersMarker) {
		return marketdata.Quote{}, false
	}

	symBytes, ok := findField(data, []byte("symbol"))
	if !ok {
		symBytes, ok = extractSymbolFromTopic(data)
		if !ok {
			return marketdata.Quote{}, false
		}
	}
	sym := reg.FromBytes(symBytes)

	bidPriceBytes, ok := findField(data, []byte("bid1Price"))
	if !ok {
		return marketdata.Quote{}, false
	}
	bidPrice, ok := fixedpoint.ParseBytes(bidPriceBytes)
	if !ok {
		return marketdata.Quote{}, false
	}

	bidQtyBytes, ok := findField(data, []byte("bid1Size"))
	if !ok {
		return marketdata.Quote{}, false
	}
	bidQty, ok := fixedpoint.ParseBytes(bidQtyBytes)
	if !ok {
		return marketdata.Quote{}, false
	}

	askPriceBytes, ok := findField(data, []byte("ask1Price"))
	if !ok {
		return marketdata.Quote{}, false
	}
	askPrice, ok := fixedpoint.ParseBytes(askPriceBytes)
	if !ok {
		return marketdata.Quote{}, false
	}

	askQtyBytes, ok := findField(data, []byte("ask1Size"))
	if !ok {
		return marketdata.Quote{}, false
	}
	askQty, ok := fixedpoint.ParseBytes(askQtyBytes)
	if !ok {
		return marketdata.Quote{}, false
	}

	var timestamp uint64
	if tsBytes, ok := findField(data, []byte("ts")); ok {
		timestamp, _ = parseTimestampMs(tsBytes)
	}

	return marketdata.NewQuote(sym, bidPrice, bidQty, askPrice, askQty, timestamp, marketdata.VenueSecondary), true
}

// ParseSecondaryTrades parses a publicTrade frame's full data array into
// Trade records, emitted in array order. Unlike a first-item-only scan,
// every object in the array is decoded; objects that fail to decode are
// skipped. ok is false when no object decodes, including for an empty
// array.
func ParseSecondaryTrades(reg *symbol.Registry, data []byte) ([]marketdata.Trade, bool) {
	if !containsWindow(data, publicTradeMarker) {
		return nil, false
	}

	arraySection, ok := dataArraySection(data)
	if !ok {
		return nil, false
	}

	var trades []marketdata.Trade
	forEachArrayObject(arraySection, func(obj []byte) bool {
		if trade, ok := parseSecondaryTradeObject(reg, obj); ok {
			trades = append(trades, trade)
		}
		return true
	})
	if len(trades) == 0 {
		return nil, false
	}
	return trades, true
}

func parseSecondaryTradeObject(reg *symbol.Registry, obj []byte) (marketdata.Trade, bool) {
	symBytes, ok := findField(obj, []byte("s"))
	if !ok {
		return marketdata.Trade{}, false
	}
	sym := reg.FromBytes(symBytes)

	priceBytes, ok := findField(obj, []byte("p"))
	if !ok {
		return marketdata.Trade{}, false
	}
	price, ok := fixedpoint.ParseBytes(priceBytes)
	if !ok {
		return marketdata.Trade{}, false
	}

	qtyBytes, ok := findField(obj, []byte("v"))
	if !ok {
		return marketdata.Trade{}, false
	}
	qty, ok := fixedpoint.ParseBytes(qtyBytes)
	if !ok {
		return marketdata.Trade{}, false
	}

	tsBytes, ok := findField(obj, []byte("T"))
	if !ok {
		return marketdata.Trade{}, false
	}
	timestamp, ok := parseTimestampMs(tsBytes)
	if !ok {
		return marketdata.Trade{}, false
	}

	side := marketdata.SideBuy
	if sideBytes, ok := findField(obj, []byte("S")); ok {
		if parsed, ok := marketdata.ParseSide(sideBytes); ok {
			side = parsed
		}
	}

	// The venue does not report buyer/maker directly; infer from side.
	isBuyerMaker := side == marketdata.SideSell

	return marketdata.NewTrade(sym, price, qty, timestamp, side, isBuyerMaker, marketdata.VenueSecondary), true
}

// dataArraySection locates the "data":[ ... ] section and returns the bytes
// from the opening bracket onward. ok=false if "data" is absent or is not
// an array (e.g. it wraps an object, as in the ticker envelope).
func dataArraySection(data []byte) ([]byte, bool) {
	idx := indexOfWindow(data, dataFieldMarker)
	if idx < 0 {
		return nil, false
	}
	rest := data[idx+len(dataFieldMarker):]
	j := 0
	for j < len(rest) && isJSONSpace(rest[j]) {
		j++
	}
	if j >= len(rest) || rest[j] != '[' {
		return nil, false
	}
	return rest[j:], true
}

func indexOfWindow(data, window []byte) int {
	n := len(window)
	if n == 0 || len(data) < n {
		return -1
	}
	for i := 0; i <= len(data)-n; i++ {
		if bytesEqual(data[i:i+n], window) {
			return i
		}
	}
	return -1
}

// extractSymbolFromTopic pulls the symbol suffix from a topic string such
// as "publicTrade.BTCUSDT" or "tickers.BTCUSDT".
func extractSymbolFromTopic(data []byte) ([]byte, bool) {
	topic, ok := findField(data, []byte("topic"))
	if !ok {
		return nil, false
	}
	for i, b := range topic {
		if b == '.' {
			return topic[i+1:], true
		}
	}
	return nil, false
}
