package stream

import (
	"encoding/json"
	"strings"
)

// primarySubscribeRequest mirrors the primary venue's
// {"method":"SUBSCRIBE","params":[...],"id":N} subscription frame.
type primarySubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// BuildPrimarySubscribeFrames renders symbols into lowercase
// "symbol@bookTicker" / "symbol@aggTrade" stream names, batched at
// PrimaryBatchSize symbols per frame.
func BuildPrimarySubscribeFrames(symbols []string) [][]byte {
	const batchSize = PrimaryBatchSize
	frames := make([][]byte, 0, (len(symbols)+batchSize-1)/batchSize)

	for start := 0; start < len(symbols); start += batchSize {
		end := start + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		params := make([]string, 0, len(batch)*2)
		for _, sym := range batch {
			lower := strings.ToLower(sym)
			params = append(params, lower+"@bookTicker", lower+"@aggTrade")
		}

		req := primarySubscribeRequest{Method: "SUBSCRIBE", Params: params, ID: start/batchSize + 1}
		b, err := json.Marshal(req)
		if err != nil {
			continue
		}
		frames = append(frames, b)
	}
	return frames
}

// PrimaryBatchSize is the maximum number of symbols packed into one
// primary-venue subscribe frame.
const PrimaryBatchSize = 50
