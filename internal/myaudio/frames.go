package myaudio

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/CameronChurchwell/penn/internal/errors"
)

// stdFloor prevents division by a near-zero standard deviation during frame
// normalization.
const stdFloor = 1e-10

// Frame slices samples into overlapping analysis windows. When pad is true
// the audio is zero-padded by half a window on each side so frames are
// centered on hop boundaries.
func Frame(samples []float32, windowSize, hopSize int, pad bool) [][]float32 {
	if pad {
		padded := make([]float32, len(samples)+windowSize)
		copy(padded[windowSize/2:], samples)
		samples = padded
	}
	if len(samples) < windowSize {
		return nil
	}
	count := 1 + (len(samples)-windowSize)/hopSize
	frames := make([][]float32, 0, count)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		frame := make([]float32, windowSize)
		copy(frame, samples[start:start+windowSize])
		frames = append(frames, frame)
	}
	return frames
}

// NormalizeFrames centers each frame to zero mean and scales it to unit
// standard deviation, in place.
func NormalizeFrames(frames [][]float32) {
	for _, frame := range frames {
		if len(frame) == 0 {
			continue
		}
		var mean float64
		for _, s := range frame {
			mean += float64(s)
		}
		mean /= float64(len(frame))

		var variance float64
		for _, s := range frame {
			d := float64(s) - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(len(frame)))
		if std < stdFloor {
			std = stdFloor
		}

		for i, s := range frame {
			frame[i] = float32((float64(s) - mean) / std)
		}
	}
}

// ReadFrames loads a preprocessed frame file: flat little-endian float32
// values whose length is a multiple of the window size.
func ReadFrames(path string, windowSize int) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		category := errors.CategoryFileIO
		if os.IsNotExist(err) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("myaudio").
			Category(category).
			Context("path", path).
			Build()
	}

	if len(data)%4 != 0 {
		return nil, errors.Newf("frame file %s is not a float32 sequence", path).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
	values := make([]float32, len(data)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}

	if len(values)%windowSize != 0 {
		return nil, errors.Newf("frame file %s holds %d values, not a multiple of window size %d",
			path, len(values), windowSize).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}

	frames := make([][]float32, len(values)/windowSize)
	for i := range frames {
		frames[i] = values[i*windowSize : (i+1)*windowSize]
	}
	return frames, nil
}
