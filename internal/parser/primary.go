package parser

import (
	"xvenue/internal/marketdata"
	"xvenue/internal/symbol"
	"xvenue/pkg/fixedpoint"
)

var (
	aggTradeMarker   = []byte("aggTrade")
	bookTickerMarker = []byte("bookTicker")
	resultNullMarker = []byte(`"result":null`)
)

// DetectPrimary classifies a primary-venue frame without fully parsing it.
func DetectPrimary(data []byte) Kind {
	switch {
	case containsWindow(data, aggTradeMarker):
		return KindTrade
	case containsWindow(data, bookTickerMarker):
		return KindQuote
	case containsWindow(data, resultNullMarker):
		return KindSubscriptionAck
	default:
		return KindUnknown
	}
}

// ParsePrimaryQuote parses a bookTicker frame into a Quote. recvTimeNs is
// substituted when the frame carries no "T" field, since bookTicker frames
// do not always include one.
func ParsePrimaryQuote(reg *symbol.Registry, data []byte, recvTimeNs uint64) (marketdata.Quote, bool) {
	if !containsWindow(data, bookTickerMarker) {
		return marketdata.Quote{}, false
	}

	symBytes, ok := findField(data, []byte("s"))
	if !ok {
		return marketdata.Quote{}, false
	}
	sym := reg.FromBytes(symBytes)

	bidPriceBytes, ok := findField(data, []byte("b"))
	if !ok {
		return marketdata.Quote{}, false
	}
	bidPrice, ok := fixedpoint.ParseBytes(bidPriceBytes)
	if !ok {
		return marketdata.Quote{}, false
	}

	// Bid/ask size are optional: a bare bookTicker frame carrying only
	// best bid/ask price is still a valid quote, just with zero size.
	var bidQty fixedpoint.F8
	if bidQtyBytes, ok := findField(data, []byte("B")); ok {
		if q, ok := fixedpoint.ParseBytes(bidQtyBytes); ok {
			bidQty = q
		}
	}

	askPriceBytes, ok := findField(data, []byte("a"))
	if !ok {
		return marketdata.Quote{}, false
	}
	askPrice, ok := fixedpoint.ParseBytes(askPriceBytes)
	if !ok {
		return marketdata.Quote{}, false
	}

	var askQty fixedpoint.F8
	if askQtyBytes, ok := findField(data, []byte("A")); ok {
		if q, ok := fixedpoint.ParseBytes(askQtyBytes); ok {
			askQty = q
		}
	}

	timestamp := recvTimeNs
	if tsBytes, ok := findField(data, []byte("T")); ok {
		if ts, ok := parseTimestampMs(tsBytes); ok {
			timestamp = ts
		}
	}

	return marketdata.NewQuote(sym, bidPrice, bidQty, askPrice, askQty, timestamp, marketdata.VenuePrimary), true
}

// ParsePrimaryTrade parses an aggTrade frame into a Trade.
func ParsePrimaryTrade(reg *symbol.Registry, data []byte) (marketdata.Trade, bool) {
	if !containsWindow(data, aggTradeMarker) {
		return marketdata.Trade{}, false
	}

	symBytes, ok := findField(data, []byte("s"))
	if !ok {
		return marketdata.Trade{}, false
	}
	sym := reg.FromBytes(symBytes)

	priceBytes, ok := findField(data, []byte("p"))
	if !ok {
		return marketdata.Trade{}, false
	}
	price, ok := fixedpoint.ParseBytes(priceBytes)
	if !ok {
		return marketdata.Trade{}, false
	}

	qtyBytes, ok := findField(data, []byte("q"))
	if !ok {
		return marketdata.Trade{}, false
	}
	qty, ok := fixedpoint.ParseBytes(qtyBytes)
	if !ok {
		return marketdata.Trade{}, false
	}

	tsBytes, ok := findField(data, []byte("T"))
	if !ok {
		return marketdata.Trade{}, false
	}
	timestamp, ok := parseTimestampMs(tsBytes)
	if !ok {
		return marketdata.Trade{}, false
	}

	isBuyerMaker := false
	if makerBytes, ok := findField(data, []byte("m")); ok {
		if v, ok := parseBoolBytes(makerBytes); ok {
			isBuyerMaker = v
		}
	}

	// m=true: buyer is maker, so the taker (aggressor) sold.
	// m=false: buyer is taker.
	side := marketdata.SideBuy
	if isBuyerMaker {
		side = marketdata.SideSell
	}

	return marketdata.NewTrade(sym, price, qty, timestamp, side, isBuyerMaker, marketdata.VenuePrimary), true
}
