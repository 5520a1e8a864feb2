package stream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// secondarySubscribeRequest mirrors the secondary venue's
// {"op":"subscribe","args":[...],"req_id":"N"} subscription frame.
type secondarySubscribeRequest struct {
	Op    string   `json:"op"`
	Args  []string `json:"args"`
	ReqID string   `json:"req_id"`
}

// SecondaryBatchSize is the maximum number of symbols packed into one
// secondary-venue subscribe frame.
const SecondaryBatchSize = 10

// BuildSecondarySubscribeFrames renders symbols into capitalized
// "tickers.SYMBOL" / "publicTrade.SYMBOL" topics, batched at
// SecondaryBatchSize symbols per frame.
func BuildSecondarySubscribeFrames(symbols []string) [][]byte {
	const batchSize = SecondaryBatchSize
	frames := make([][]byte, 0, (len(symbols)+batchSize-1)/batchSize)

	for start := 0; start < len(symbols); start += batchSize {
		end := start + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		args := make([]string, 0, len(batch)*2)
		for _, sym := range batch {
			upper := strings.ToUpper(sym)
			args = append(args, "tickers."+upper, "publicTrade."+upper)
		}

		req := secondarySubscribeRequest{Op: "subscribe", Args: args, ReqID: strconv.Itoa(start/batchSize + 1)}
		b, err := json.Marshal(req)
		if err != nil {
			continue
		}
		frames = append(frames, b)
	}
	return frames
}

// SecondaryPingFrame is the literal application-level heartbeat frame.
var SecondaryPingFrame = []byte(`{"op":"ping"}`)

// secondaryPongMarker is the substring that identifies a pong reply.
var secondaryPongMarker = []byte(`"op":"pong"`)

// IsSecondaryApplicationPong reports whether data is the secondary
// venue's pong reply rather than a market-data frame.
func IsSecondaryApplicationPong(data []byte) bool {
	return bytes.Contains(data, secondaryPongMarker)
}
