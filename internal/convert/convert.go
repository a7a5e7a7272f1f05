// Package convert maps between pitch bins, cents, and frequency in Hz.
package convert

import "math"

// Model input and pitch quantization constants.
const (
	// SampleRate is the sample rate expected by the pitch model.
	SampleRate = 16000

	// HopSize is the number of samples between frame centers (10 ms).
	HopSize = 160

	// WindowSize is the number of samples per analysis frame.
	WindowSize = 1024

	// PitchBins is the number of discrete pitch classes the model predicts.
	PitchBins = 360

	// CentsPerBin is the quantization step of the pitch bins.
	CentsPerBin = 20.0

	// centsOffset places bin 0 at roughly 31.70 Hz.
	centsOffset = 1997.3794084376191

	// MaxFmax is the default upper frequency limit for decoding.
	MaxFmax = 2006.0
)

// BinsToCents converts a pitch bin index to cents.
func BinsToCents(bin int) float64 {
	return CentsPerBin*float64(bin) + centsOffset
}

// CentsToBins converts cents to the nearest pitch bin index, clamped to the
// valid bin range.
func CentsToBins(cents float64) int {
	bin := int(math.Round((cents - centsOffset) / CentsPerBin))
	if bin < 0 {
		return 0
	}
	if bin > PitchBins-1 {
		return PitchBins - 1
	}
	return bin
}

// CentsToFrequency converts cents to frequency in Hz.
func CentsToFrequency(cents float64) float64 {
	return 10.0 * math.Exp2(cents/1200.0)
}

// FrequencyToCents converts frequency in Hz to cents. The frequency must be
// positive.
func FrequencyToCents(frequency float64) float64 {
	return 1200.0 * math.Log2(frequency/10.0)
}

// BinsToFrequency converts a pitch bin index to frequency in Hz.
func BinsToFrequency(bin int) float64 {
	return CentsToFrequency(BinsToCents(bin))
}

// FrequencyToBins converts frequency in Hz to the nearest pitch bin index.
func FrequencyToBins(frequency float64) int {
	return CentsToBins(FrequencyToCents(frequency))
}

// Seconds returns the audio duration covered by the given frame count.
func Seconds(frames int) float64 {
	return float64(frames) * HopSize / SampleRate
}
