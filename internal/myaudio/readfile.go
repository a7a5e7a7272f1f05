// Package myaudio loads audio and prepares analysis frames for the model.
package myaudio

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/CameronChurchwell/penn/internal/convert"
	"github.com/CameronChurchwell/penn/internal/errors"
)

// getAudioDivisor returns the normalization divisor for a PCM bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported bit depth: %d", bitDepth).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
}

// ReadAudioFile reads a WAV file into normalized float32 samples, downmixing
// to mono. The file must already be at the model sample rate; resampling is
// out of scope for the evaluation engine.
func ReadAudioFile(path string) ([]float32, error) {
	file, err := os.Open(path)
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
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("input is not a valid WAV audio file: %s", path).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}

	if int(decoder.SampleRate) != convert.SampleRate {
		return nil, errors.Newf("unexpected sample rate %d, model requires %d",
			decoder.SampleRate, convert.SampleRate).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Context("path", path).
			Build()
	}

	channels := int(decoder.NumChans)
	if channels != 1 && channels != 2 {
		return nil, errors.Newf("unsupported number of channels: %d", channels).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, 8192*channels),
		Format: &audio.Format{SampleRate: convert.SampleRate, NumChannels: channels},
	}

	var samples []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, errors.New(err).
				Component("myaudio").
				Category(errors.CategoryAudio).
				Context("path", path).
				Build()
		}
		if n == 0 {
			break
		}
		for i := 0; i+channels <= n; i += channels {
			var sum float32
			for c := 0; c < channels; c++ {
				sum += float32(buf.Data[i+c]) / divisor
			}
			samples = append(samples, sum/float32(channels))
		}
	}
	return samples, nil
}
