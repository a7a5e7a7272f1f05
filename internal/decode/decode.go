// Package decode turns per-frame model posteriors into pitch-bin sequences.
package decode

import (
	"math"

	"github.com/CameronChurchwell/penn/internal/errors"
)

// NoPriorBin is the sentinel prior passed to the classifier for the first
// frame of a stem, before any bin has been decoded.
const NoPriorBin = -1

// Policy selects a pitch bin from a posterior distribution.
type Policy func(distribution []float32) int

// Argmax selects the highest-probability bin. Ties resolve to the lowest
// index.
func Argmax(distribution []float32) int {
	best := 0
	for i := 1; i < len(distribution); i++ {
		if distribution[i] > distribution[best] {
			best = i
		}
	}
	return best
}

// Classifier maps one input frame, conditioned on the previously decoded bin,
// to a probability distribution over the pitch bins.
type Classifier interface {
	Classify(frame []float32, priorBin int) ([]float32, error)
}

// Result holds the decoded sequences for one stem. Bins and Confidence always
// have identical length.
type Result struct {
	// Bins is the decoded pitch bin per frame.
	Bins []int

	// Confidence is the per-frame entropy-derived confidence in [0, 1].
	// Lower distribution entropy means higher confidence.
	Confidence []float64
}

// Autoregressive decodes a frame sequence one step at a time, feeding each
// frame's decoded bin into the next frame's classification. Within one stem
// the order is strictly sequential: frame t's confidence is computed from the
// distribution before the chosen bin is folded into the state for frame t+1.
// A classifier failure on any frame aborts the whole stem; no partial result
// is returned. A zero-length input yields empty sequences.
func Autoregressive(frames [][]float32, classifier Classifier, policy Policy) (*Result, error) {
	if policy == nil {
		policy = Argmax
	}
	result := &Result{
		Bins:       make([]int, 0, len(frames)),
		Confidence: make([]float64, 0, len(frames)),
	}
	prior := NoPriorBin
	for t, frame := range frames {
		distribution, err := classifier.Classify(frame, prior)
		if err != nil {
			return nil, errors.New(err).
				Component("decode").
				Category(errors.CategoryInference).
				Context("frame", t).
				Context("frames_total", len(frames)).
				Build()
		}
		result.Confidence = append(result.Confidence, Confidence(distribution))
		prior = policy(distribution)
		result.Bins = append(result.Bins, prior)
	}
	return result, nil
}

// Confidence converts a probability distribution into a confidence score in
// [0, 1] by normalizing its Shannon entropy against the maximum entropy for
// the distribution's size and inverting it.
func Confidence(distribution []float32) float64 {
	if len(distribution) < 2 {
		return 1
	}
	var total float64
	for _, p := range distribution {
		total += float64(p)
	}
	if total <= 0 {
		return 0
	}
	var entropy float64
	for _, p := range distribution {
		q := float64(p) / total
		if q > 0 {
			entropy -= q * math.Log(q)
		}
	}
	return 1 - entropy/math.Log(float64(len(distribution)))
}
