package tracker

import "xvenue/pkg/fixedpoint"

// side is the last side of the dead-band a spread value was observed on.
type side int

const (
	sideNone side = iota
	sideAbove
	sideBelow
)

// Hysteresis is a zero-crossing hit counter with a dead-band around zero.
// A hit fires when the spread moves from one side of the dead-band to the
// other, including when it passes through the neutral band in between;
// dwelling inside the dead-band, or staying on the same side, never
// counts. The counter is monotonic.
type Hysteresis struct {
	last side
	hits uint64
}

// Update feeds one spread observation and returns whether it completed a
// zero crossing. eps is the dead-band half-width: |value| <= eps is
// neutral.
func (h *Hysteresis) Update(value, eps fixedpoint.F8) bool {
	var s side
	switch {
	case value.Raw() > eps.Raw():
		s = sideAbove
	case value.Raw() < -eps.Raw():
		s = sideBelow
	default:
		s = sideNone
	}

	if s == sideNone {
		return false
	}

	hit := h.last != sideNone && h.last != s
	if hit {
		h.hits++
	}
	h.last = s
	return hit
}

// Hits returns the total number of zero crossings observed so far.
func (h *Hysteresis) Hits() uint64 { return h.hits }
