// Package metrics implements the per-frame pitch evaluation accumulators.
//
// Each accumulator ingests batches of aligned per-frame sequences via Update,
// reports a result via Compute, and is cleared by Reset. Accumulator state is
// commutative and associative across batches: the final result is identical
// regardless of how the same frames are chunked into Update calls. Compute
// never divides by zero; empty denominators yield zero results by contract.
package metrics

import (
	"math"

	"github.com/CameronChurchwell/penn/internal/threshold"
)

// referenceVoiced reports whether frame i of the reference is voiced: the
// annotated frequency is non-zero, refined by the optional external voicing
// mask when one is supplied.
func referenceVoiced(reference []float64, voicing []bool, i int) bool {
	if voicing != nil && !voicing[i] {
		return false
	}
	return reference[i] != 0
}

// centsDifference returns the pitch distance from reference to predicted in
// cents. Both frequencies must be in Hz.
func centsDifference(predicted, reference float64) float64 {
	return 1200.0 * math.Log2(predicted/reference)
}

// F1Result holds the detection scores produced by the F1 accumulator.
type F1Result struct {
	Precision float64
	Recall    float64
	F1        float64
}

// F1 accumulates voicing detection counts. A frame is predicted-voiced when
// the threshold strategy accepts its periodicity; it is reference-voiced when
// the annotated frequency is non-zero.
type F1 struct {
	strategy       threshold.Strategy
	truePositives  int
	falsePositives int
	falseNegatives int
}

// NewF1 creates an F1 accumulator using the given voicing strategy.
func NewF1(strategy threshold.Strategy) *F1 {
	return &F1{strategy: strategy}
}

// Update folds one batch of frames into the detection counts. periodicity and
// reference must be the same length; voicing may be nil.
func (m *F1) Update(periodicity, reference []float64, voicing []bool) {
	for i := range reference {
		predictedVoiced := m.strategy.Voiced(periodicity[i])
		refVoiced := referenceVoiced(reference, voicing, i)
		switch {
		case predictedVoiced && refVoiced:
			m.truePositives++
		case predictedVoiced && !refVoiced:
			m.falsePositives++
		case !predictedVoiced && refVoiced:
			m.falseNegatives++
		}
	}
}

// Compute returns precision, recall, and F1 from the accumulated counts.
// Each value defaults to zero when its denominator is zero.
func (m *F1) Compute() F1Result {
	var result F1Result
	if m.truePositives+m.falsePositives > 0 {
		result.Precision = float64(m.truePositives) / float64(m.truePositives+m.falsePositives)
	}
	if m.truePositives+m.falseNegatives > 0 {
		result.Recall = float64(m.truePositives) / float64(m.truePositives+m.falseNegatives)
	}
	if result.Precision+result.Recall > 0 {
		result.F1 = 2 * result.Precision * result.Recall / (result.Precision + result.Recall)
	}
	return result
}

// Reset clears the accumulated counts.
func (m *F1) Reset() {
	m.truePositives = 0
	m.falsePositives = 0
	m.falseNegatives = 0
}

// WRMSE accumulates the squared cents error over frames that are voiced in
// both the prediction and the reference, weighted equally per frame.
type WRMSE struct {
	strategy   threshold.Strategy
	sumSquares float64
	voiced     int
}

// NewWRMSE creates a WRMSE accumulator using the given voicing strategy for
// the prediction side. Pass threshold.All{} to drive voicing entirely from
// the external mask.
func NewWRMSE(strategy threshold.Strategy) *WRMSE {
	return &WRMSE{strategy: strategy}
}

// Update folds one batch of frames into the error sum. periodicity may be nil
// when the prediction side carries no confidence channel; voicing may be nil.
func (m *WRMSE) Update(predicted, reference, periodicity []float64, voicing []bool) {
	for i := range reference {
		predictedVoiced := true
		if periodicity != nil {
			predictedVoiced = m.strategy.Voiced(periodicity[i])
		}
		if !predictedVoiced || !referenceVoiced(reference, voicing, i) {
			continue
		}
		diff := centsDifference(predicted[i], reference[i])
		m.sumSquares += diff * diff
		m.voiced++
	}
}

// Compute returns the root mean squared cents error over the counted frames,
// or zero when no frames were counted.
func (m *WRMSE) Compute() float64 {
	if m.voiced == 0 {
		return 0
	}
	return math.Sqrt(m.sumSquares / float64(m.voiced))
}

// Reset clears the accumulated error sum.
func (m *WRMSE) Reset() {
	m.sumSquares = 0
	m.voiced = 0
}

// RPA accumulates raw pitch accuracy: the fraction of reference-voiced frames
// whose predicted pitch lands within 50 cents of the annotation.
type RPA struct {
	correct int
	voiced  int
}

// NewRPA creates an RPA accumulator.
func NewRPA() *RPA {
	return &RPA{}
}

// Update folds one batch of frames into the accuracy counts. Frames that are
// not reference-voiced are excluded from both numerator and denominator.
func (m *RPA) Update(predicted, reference []float64, voicing []bool) {
	for i := range reference {
		if !referenceVoiced(reference, voicing, i) {
			continue
		}
		m.voiced++
		if math.Abs(centsDifference(predicted[i], reference[i])) <= 50 {
			m.correct++
		}
	}
}

// Compute returns the accumulated accuracy, or zero when no reference-voiced
// frames were seen.
func (m *RPA) Compute() float64 {
	if m.voiced == 0 {
		return 0
	}
	return float64(m.correct) / float64(m.voiced)
}

// Reset clears the accumulated counts.
func (m *RPA) Reset() {
	m.correct = 0
	m.voiced = 0
}

// RCA accumulates raw chroma accuracy: identical to RPA except the cents
// difference is folded into one octave before the 50-cent comparison, so
// octave errors count as correct.
type RCA struct {
	correct int
	voiced  int
}

// NewRCA creates an RCA accumulator.
func NewRCA() *RCA {
	return &RCA{}
}

// Update folds one batch of frames into the accuracy counts.
func (m *RCA) Update(predicted, reference []float64, voicing []bool) {
	for i := range reference {
		if !referenceVoiced(reference, voicing, i) {
			continue
		}
		m.voiced++
		if math.Abs(foldOctave(centsDifference(predicted[i], reference[i]))) <= 50 {
			m.correct++
		}
	}
}

// Compute returns the accumulated accuracy, or zero when no reference-voiced
// frames were seen.
func (m *RCA) Compute() float64 {
	if m.voiced == 0 {
		return 0
	}
	return float64(m.correct) / float64(m.voiced)
}

// Reset clears the accumulated counts.
func (m *RCA) Reset() {
	m.correct = 0
	m.voiced = 0
}

// foldOctave reduces a cents difference modulo 1200 into [-600, 600].
func foldOctave(cents float64) float64 {
	folded := math.Mod(cents, 1200)
	switch {
	case folded > 600:
		folded -= 1200
	case folded < -600:
		folded += 1200
	}
	return folded
}
