// Package config loads and validates the aggregator's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"xvenue/internal/errs"
	"xvenue/pkg/fixedpoint"
)

// Config mirrors the exhaustive configuration key list: venue endpoints,
// discovery/threshold/window parameters, and the ambient logging/metrics
// surface.
type Config struct {
	Discovery struct {
		MinVolume24h  float64 `yaml:"min_volume_24h"`
		PrimaryRestURL string `yaml:"primary_rest_url"`
	} `yaml:"discovery"`

	Stream struct {
		PrimaryWSURL    string        `yaml:"primary_ws_url"`
		SecondaryWSURL  string        `yaml:"secondary_ws_url"`
		IdleTimeoutSecs int           `yaml:"idle_timeout_secs"`
	} `yaml:"stream"`

	Tracker struct {
		OpportunityThresholdBps int `yaml:"opportunity_threshold_bps"`
		HysteresisEpsilonBps    int `yaml:"hysteresis_epsilon_bps"`
		WindowDurationSecs      int `yaml:"window_duration_secs"`
		HalfLifeTauSecs         int `yaml:"half_life_tau_secs"`
	} `yaml:"tracker"`

	MaxSymbols int `yaml:"max_symbols"`

	// InboxCapacity bounds the aggregator's single inbox channel, fed by
	// both stream clients; when it is full, a new quote displaces the
	// oldest queued message and a new trade is dropped, so neither
	// client's receive loop ever blocks.
	InboxCapacity int `yaml:"inbox_capacity"`

	Snapshot struct {
		IntervalMS     int `yaml:"snapshot_interval_ms"`
		StaleQuoteAgeMS int `yaml:"stale_quote_age_ms"`
	} `yaml:"snapshot"`

	HTTP struct {
		APIPort    int    `yaml:"api_port"`
		StaticPath string `yaml:"static_path"`
	} `yaml:"http"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default values applied when a key is absent or non-positive, mirroring
// the teacher's pattern of a post-unmarshal defaulting pass rather than
// struct tags.
const (
	DefaultMinVolume24h            = 1_000_000.0
	DefaultOpportunityThresholdBps = 250_000 // 0.25% in F8-bps units
	DefaultHysteresisEpsilonBps    = 50_000  // 0.05% in F8-bps units
	DefaultWindowDurationSecs      = 120
	DefaultHalfLifeTauSecs         = 60
	DefaultMaxSymbols              = 512
	DefaultInboxCapacity           = 16384
	DefaultSnapshotIntervalMS      = 500
	DefaultStaleQuoteAgeMS         = 5000
	DefaultIdleTimeoutSecs         = 30
)

// Load reads path, unmarshals it as YAML, applies environment-variable
// overrides, fills in defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Discovery.MinVolume24h <= 0 {
		c.Discovery.MinVolume24h = DefaultMinVolume24h
	}
	if c.Tracker.OpportunityThresholdBps <= 0 {
		c.Tracker.OpportunityThresholdBps = DefaultOpportunityThresholdBps
	}
	if c.Tracker.HysteresisEpsilonBps <= 0 {
		c.Tracker.HysteresisEpsilonBps = DefaultHysteresisEpsilonBps
	}
	if c.Tracker.WindowDurationSecs <= 0 {
		c.Tracker.WindowDurationSecs = DefaultWindowDurationSecs
	}
	if c.Tracker.HalfLifeTauSecs <= 0 {
		c.Tracker.HalfLifeTauSecs = DefaultHalfLifeTauSecs
	}
	if c.MaxSymbols <= 0 {
		c.MaxSymbols = DefaultMaxSymbols
	}
	if c.InboxCapacity <= 0 {
		c.InboxCapacity = DefaultInboxCapacity
	}
	if c.Snapshot.IntervalMS <= 0 {
		c.Snapshot.IntervalMS = DefaultSnapshotIntervalMS
	}
	if c.Snapshot.StaleQuoteAgeMS <= 0 {
		c.Snapshot.StaleQuoteAgeMS = DefaultStaleQuoteAgeMS
	}
	if c.Stream.IdleTimeoutSecs <= 0 {
		c.Stream.IdleTimeoutSecs = DefaultIdleTimeoutSecs
	}
}

// Validate rejects missing URLs, non-positive thresholds, and an
// out-of-range API port before any component is constructed.
func (c *Config) Validate() error {
	if c.Discovery.PrimaryRestURL == "" {
		return &errs.ConfigError{Field: "discovery.primary_rest_url", Err: fmt.Errorf("required")}
	}
	if !hasHTTPPrefix(c.Discovery.PrimaryRestURL) {
		return &errs.ConfigError{Field: "discovery.primary_rest_url", Err: fmt.Errorf("must be http(s): %s", c.Discovery.PrimaryRestURL)}
	}
	if c.Stream.PrimaryWSURL == "" || !hasWSPrefix(c.Stream.PrimaryWSURL) {
		return &errs.ConfigError{Field: "stream.primary_ws_url", Err: fmt.Errorf("must be ws(s): %q", c.Stream.PrimaryWSURL)}
	}
	if c.Stream.SecondaryWSURL == "" || !hasWSPrefix(c.Stream.SecondaryWSURL) {
		return &errs.ConfigError{Field: "stream.secondary_ws_url", Err: fmt.Errorf("must be ws(s): %q", c.Stream.SecondaryWSURL)}
	}
	if c.Tracker.OpportunityThresholdBps <= 0 {
		return &errs.ConfigError{Field: "tracker.opportunity_threshold_bps", Err: fmt.Errorf("must be positive")}
	}
	if c.Tracker.HysteresisEpsilonBps <= 0 {
		return &errs.ConfigError{Field: "tracker.hysteresis_epsilon_bps", Err: fmt.Errorf("must be positive")}
	}
	if c.InboxCapacity <= 0 {
		return &errs.ConfigError{Field: "inbox_capacity", Err: fmt.Errorf("must be positive")}
	}
	if c.Tracker.WindowDurationSecs <= 0 {
		return &errs.ConfigError{Field: "tracker.window_duration_secs", Err: fmt.Errorf("must be positive")}
	}
	if c.MaxSymbols <= 0 {
		return &errs.ConfigError{Field: "max_symbols", Err: fmt.Errorf("must be positive")}
	}
	if c.HTTP.APIPort <= 0 || c.HTTP.APIPort > 65535 {
		return &errs.ConfigError{Field: "http.api_port", Err: fmt.Errorf("must be in [1,65535], got %d", c.HTTP.APIPort)}
	}
	return nil
}

// WindowDuration returns the tracker window as a time.Duration.
func (c *Config) WindowDuration() time.Duration {
	return time.Duration(c.Tracker.WindowDurationSecs) * time.Second
}

// HalfLifeTau returns the half-life estimator's decay constant.
func (c *Config) HalfLifeTau() time.Duration {
	return time.Duration(c.Tracker.HalfLifeTauSecs) * time.Second
}

// HysteresisEpsilon returns the tracker's dead-band as an F8 value in the
// same raw units as a spread, converted from the configured F8-bps figure
// (e.g. 50_000 means 0.05%).
func (c *Config) HysteresisEpsilon() fixedpoint.F8 {
	return fixedpoint.FromRaw(int64(c.Tracker.HysteresisEpsilonBps))
}

// SnapshotInterval returns the aggregator publish cadence.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.Snapshot.IntervalMS) * time.Millisecond
}

// StaleQuoteAge returns the spread calculator's staleness threshold.
func (c *Config) StaleQuoteAge() time.Duration {
	return time.Duration(c.Snapshot.StaleQuoteAgeMS) * time.Millisecond
}

// IdleTimeout returns the stream client's stale-connection watchdog
// timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Stream.IdleTimeoutSecs) * time.Second
}

func hasHTTPPrefix(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func hasWSPrefix(s string) bool {
	return strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://")
}

// overrideWithEnv applies environment-variable overrides for the handful
// of values operators commonly need to change per-deployment without
// editing the YAML file.
func (c *Config) overrideWithEnv() {
	if v := os.Getenv("XVENUE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTP.APIPort = port
		}
	}
	if v := os.Getenv("XVENUE_PRIMARY_WS_URL"); v != "" {
		c.Stream.PrimaryWSURL = v
	}
	if v := os.Getenv("XVENUE_SECONDARY_WS_URL"); v != "" {
		c.Stream.SecondaryWSURL = v
	}
	if v := os.Getenv("XVENUE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
