package tracker

import (
	"math"
	"time"

	"xvenue/pkg/fixedpoint"
)

const (
	halfLifeMinSamples = 16
	halfLifeNonStationaryDelta = 1e-4
	halfLifeClampSecs          = 600.0
)

// HalfLifeEstimator tracks an exponentially-weighted lag-1 autocorrelation
// of a spread series and converts it to a mean-reversion half-life. Decay
// is time-aware: alpha = 1 - exp(-dt/tau), so unevenly spaced observations
// are weighted by the elapsed time since the previous one rather than by
// tick count.
type HalfLifeEstimator struct {
	tau time.Duration

	haveLast bool
	lastTs   time.Time
	lastX    float64

	ewX2   float64
	ewXX1  float64
	havePair bool

	samples int
}

// NewHalfLifeEstimator creates an estimator with decay time constant tau.
func NewHalfLifeEstimator(tau time.Duration) *HalfLifeEstimator {
	return &HalfLifeEstimator{tau: tau}
}

// Update feeds one observation at ts.
func (e *HalfLifeEstimator) Update(value fixedpoint.F8, ts time.Time) {
	x := float64(value.Raw()) / float64(fixedpoint.Scale)

	if !e.haveLast {
		e.ewX2 = x * x
		e.samples = 1
		e.lastX = x
		e.lastTs = ts
		e.haveLast = true
		return
	}

	dt := ts.Sub(e.lastTs).Seconds()
	if dt < 0 {
		dt = 0
	}
	alpha := 1 - math.Exp(-dt/e.tau.Seconds())

	if e.havePair {
		e.ewXX1 = (1-alpha)*e.ewXX1 + alpha*x*e.lastX
	} else {
		e.ewXX1 = x * e.lastX
		e.havePair = true
	}
	e.ewX2 = (1-alpha)*e.ewX2 + alpha*x*x
	e.samples++

	e.lastX = x
	e.lastTs = ts
}

// HalfLifeSeconds returns the estimated mean-reversion half-life, clamped
// to [0, 600s]. ready is false when fewer than 16 samples have been seen,
// or when the lag-1 autocorrelation is at or above 1-delta (delta=1e-4),
// which this estimator treats as a non-stationary series with no
// meaningful decay rate.
func (e *HalfLifeEstimator) HalfLifeSeconds() (seconds float64, ready bool) {
	if e.samples < halfLifeMinSamples || e.ewX2 <= 0 {
		return 0, false
	}

	rho := e.ewXX1 / e.ewX2
	if rho >= 1-halfLifeNonStationaryDelta {
		return 0, false
	}
	if rho <= 0 {
		return 0, true
	}

	hl := math.Ln2 / -math.Log(rho)
	if hl < 0 {
		hl = 0
	}
	if hl > halfLifeClampSecs {
		hl = halfLifeClampSecs
	}
	return hl, true
}
