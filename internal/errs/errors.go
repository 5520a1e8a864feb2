// Package errs defines the error kinds shared across the aggregator:
// retriable network/stream failures versus fatal configuration and
// discovery failures that must abort startup.
package errs

import "errors"

// RetriableError is implemented by errors that a caller may retry after
// backing off; non-retriable errors should abort the owning component.
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable reports whether err (or any error it wraps) is retriable.
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// StreamError represents a venue stream failure: a dial, read, or write
// error on a StreamClient. Connect/read/write failures during normal
// operation are retriable (the client backs off and reconnects); a
// failure of the very first connection attempt, which is made once and
// not retried, is reported as non-retriable so the orchestrator can
// abort startup instead of looping forever.
type StreamError struct {
	Venue     string
	Op        string
	Err       error
	Retriable bool
}

func (e *StreamError) Error() string {
	return e.Venue + " " + e.Op + ": " + e.Err.Error()
}

func (e *StreamError) IsRetriable() bool { return e.Retriable }

func (e *StreamError) Unwrap() error { return e.Err }

// NewStreamError creates a retriable stream error.
func NewStreamError(venue, op string, err error) *StreamError {
	return &StreamError{Venue: venue, Op: op, Err: err, Retriable: true}
}

// NewFatalStreamError creates a non-retriable stream error.
func NewFatalStreamError(venue, op string, err error) *StreamError {
	return &StreamError{Venue: venue, Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration validation failure. Never
// retriable: the process must exit rather than loop on a bad config.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool { return false }

func (e *ConfigError) Unwrap() error { return e.Err }

// DiscoveryError represents a failure to obtain a non-empty liquid
// instrument universe from the primary venue. Never retriable within a
// single startup attempt: discovery has no fallback list.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return "discovery failed: " + e.Err.Error()
}

func (e *DiscoveryError) IsRetriable() bool { return false }

func (e *DiscoveryError) Unwrap() error { return e.Err }

var (
	// ErrInvalidSymbol names a venue frame that references a symbol
	// outside the frozen registry. The parsers report this case through
	// their bool result and do not return this value.
	ErrInvalidSymbol = errors.New("symbol not registered")

	// ErrParseFailed names a venue frame that cannot be parsed into a
	// quote or trade record. The parsers report this case through their
	// bool result and do not return this value.
	ErrParseFailed = errors.New("parse failed")

	// ErrRegistryFrozen names a second RegisterAll call. RegisterAll
	// panics in that case and does not return this value.
	ErrRegistryFrozen = errors.New("registry already frozen")

	// ErrNoInstruments names a discovery that yields zero instruments
	// after the volume filter. Discovery reports that case as a
	// *DiscoveryError and does not wrap this value.
	ErrNoInstruments = errors.New("no liquid instruments discovered")
)
