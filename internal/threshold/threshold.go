// Package threshold defines voicing decision strategies over periodicity.
package threshold

// Strategy decides whether a frame counts as voiced given its periodicity.
type Strategy interface {
	Voiced(periodicity float64) bool
}

// At classifies a frame as voiced when its periodicity meets or exceeds the
// cutoff value.
type At float64

// Voiced implements Strategy.
func (a At) Voiced(periodicity float64) bool {
	return periodicity >= float64(a)
}

// All classifies every frame as voiced. Used when voicing is driven entirely
// by an external mask, such as during training-style scoring.
type All struct{}

// Voiced implements Strategy.
func (All) Voiced(float64) bool {
	return true
}

// Hysteresis classifies frames with two cutoffs: an unvoiced frame becomes
// voiced only at or above Enter, and stays voiced until periodicity drops
// below Exit. This suppresses single-frame voicing flips near one cutoff.
// The zero value classifies every frame as voiced. Not safe for
// concurrent use; sequences must be scored by one Hysteresis per stream.
type Hysteresis struct {
	Enter float64
	Exit  float64

	voiced bool
}

// Voiced implements Strategy.
func (h *Hysteresis) Voiced(periodicity float64) bool {
	if h.voiced {
		h.voiced = periodicity >= h.Exit
	} else {
		h.voiced = periodicity >= h.Enter
	}
	return h.voiced
}

// Reset returns the strategy to the unvoiced state for a new sequence.
func (h *Hysteresis) Reset() {
	h.voiced = false
}
