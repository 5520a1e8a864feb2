// Package parser implements allocation-free byte-scan decoders for the two
// venue wire formats. Parsers never build intermediate strings: field values
// are located as slices into the original frame and converted directly into
// fixed-point, symbol, or integer values.
package parser

// Kind classifies a frame without fully parsing it.
type Kind int

const (
	KindUnknown Kind = iota
	KindQuote
	KindTrade
	KindSubscriptionAck
	KindHeartbeat
	KindControl
)

// findField scans data for a quoted JSON key and returns the raw bytes of
// its value (unquoted, for strings; as written, for numbers/bools/null).
// Returns ok=false if the key is not present or the frame is too short to
// contain it.
func findField(data, field []byte) ([]byte, bool) {
	fieldLen := len(field)
	dataLen := len(data)
	if fieldLen == 0 || dataLen < fieldLen+3 {
		return nil, false
	}

	for i := 0; i <= dataLen-fieldLen-2; i++ {
		if data[i] != '"' {
			continue
		}
		end := i + 1 + fieldLen
		if end >= dataLen || !bytesEqual(data[i+1:end], field) || data[end] != '"' {
			continue
		}

		j := end + 1
		for j < dataLen && (data[j] == ':' || isJSONSpace(data[j])) {
			j++
		}
		if j >= dataLen {
			return nil, false
		}

		if data[j] == '"' {
			start := j + 1
			k := start
			for k < dataLen && data[k] != '"' {
				k++
			}
			return data[start:k], true
		}

		start := j
		k := start
		for k < dataLen && !isValueDelimiter(data[k]) {
			k++
		}
		return data[start:k], true
	}
	return nil, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isValueDelimiter(b byte) bool {
	switch b {
	case ',', '}', ']', ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func containsWindow(data, window []byte) bool {
	n := len(window)
	if n == 0 || len(data) < n {
		return false
	}
	for i := 0; i <= len(data)-n; i++ {
		if bytesEqual(data[i:i+n], window) {
			return true
		}
	}
	return false
}

// parseU64 parses an unsigned decimal integer from bytes, failing on any
// non-digit byte or empty input.
func parseU64(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var result uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		next := result*10 + uint64(c-'0')
		if next < result {
			return 0, false
		}
		result = next
	}
	return result, true
}

// parseTimestampMs parses a millisecond timestamp and converts to
// nanoseconds.
func parseTimestampMs(b []byte) (uint64, bool) {
	ms, ok := parseU64(b)
	if !ok {
		return 0, false
	}
	return ms * 1_000_000, true
}

// parseBoolBytes parses a literal "true"/"false" byte value.
func parseBoolBytes(b []byte) (bool, bool) {
	switch string(b) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// forEachArrayObject scans a JSON array byte section and invokes fn with a
// zero-copy view into each top-level {...} object it contains, in order of
// appearance. It builds no intermediate slice of spans; fn is called
// inline as each object's closing brace is found. Scanning stops early if
// fn returns false.
func forEachArrayObject(arr []byte, fn func(obj []byte) bool) {
	depth := 0
	start := -1
	for i, b := range arr {
		switch b {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				if !fn(arr[start : i+1]) {
					return
				}
				start = -1
			}
		}
	}
}
