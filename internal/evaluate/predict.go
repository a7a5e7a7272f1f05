package evaluate

import (
	"context"
	"time"

	"github.com/CameronChurchwell/penn/internal/convert"
	"github.com/CameronChurchwell/penn/internal/decode"
	"github.com/CameronChurchwell/penn/internal/errors"
	"github.com/CameronChurchwell/penn/internal/myaudio"
)

// Populate runs the prediction phase for the hyperparameter and partition
// stems, filling the cache without scoring anything.
func (e *Evaluator) Populate(ctx context.Context, partition string) error {
	partitions, err := e.variant.Partitions(e.settings.Data.Dir)
	if err != nil {
		return err
	}
	testStems, ok := partitions[partition]
	if !ok {
		return errors.Newf("dataset %s has no partition %q", e.variant.Name, partition).
			Component("evaluate").
			Category(errors.CategoryNotFound).
			Context("partition", partition).
			Build()
	}
	return e.predict(ctx, unionStems(partitions.Hyperparameter(), testStems))
}

// predict runs inference for every stem and persists the resulting sequences
// to the prediction cache. A failed stem aborts the phase; entries already
// cached for other stems are left intact.
func (e *Evaluator) predict(ctx context.Context, stems []string) error {
	start := time.Now()
	for i, stem := range stems {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.predictStem(ctx, stem); err != nil {
			return err
		}
		e.log.Debug("predicted stem", "stem", stem, "progress", i+1, "total", len(stems))
	}
	e.log.Info("prediction phase complete",
		"stems", len(stems),
		"frames", e.totalFrames,
		"infers", e.totalInfers,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// predictStem produces one stem's (frequency, periodicity) sequences, in
// autoregressive or windowed batch mode, and stores them in the cache.
func (e *Evaluator) predictStem(ctx context.Context, stem string) error {
	var frequency, periodicity []float64
	var err error
	if e.settings.Model.AutoRegressive {
		frequency, periodicity, err = e.predictAutoregressive(stem)
	} else {
		frequency, periodicity, err = e.predictBatch(stem)
	}
	if err != nil {
		return err
	}

	e.totalSeconds += convert.Seconds(len(frequency))
	e.totalFrames += len(frequency)
	if e.metrics != nil {
		e.metrics.Evaluation.FramesProcessed.WithLabelValues(e.variant.Name).Add(float64(len(frequency)))
	}

	return e.store.Store(ctx, e.variant.Name, e.model.Name(), stem, frequency, periodicity)
}

// predictAutoregressive decodes preprocessed frames one step at a time, with
// each frame's prediction conditioned on the previous frame's decoded bin.
func (e *Evaluator) predictAutoregressive(stem string) (frequency, periodicity []float64, err error) {
	frames, err := myaudio.ReadFrames(e.variant.StemToFrames(e.settings.Data.Dir, stem), convert.WindowSize)
	if err != nil {
		return nil, nil, err
	}
	myaudio.NormalizeFrames(frames)

	decoded, err := decode.Autoregressive(frames, e.model, decode.Argmax)
	if err != nil {
		return nil, nil, err
	}
	e.totalInfers += len(frames)

	frequency = make([]float64, len(decoded.Bins))
	for i, bin := range decoded.Bins {
		frequency[i] = convert.BinsToFrequency(bin)
	}
	return frequency, decoded.Confidence, nil
}

// predictBatch frames the stem's audio, runs windowed batch inference, and
// derives pitch from the argmax bin below the dataset's frequency limit, with
// the posterior peak doubling as the periodicity channel.
func (e *Evaluator) predictBatch(stem string) (frequency, periodicity []float64, err error) {
	samples, err := myaudio.ReadAudioFile(e.variant.StemToAudio(e.settings.Data.Dir, stem))
	if err != nil {
		return nil, nil, err
	}
	frames := myaudio.Frame(samples, convert.WindowSize, convert.HopSize, e.variant.Pad)
	myaudio.NormalizeFrames(frames)

	maxBin := convert.FrequencyToBins(e.variant.Fmax)
	batchSize := e.settings.Model.BatchSize
	frequency = make([]float64, 0, len(frames))
	periodicity = make([]float64, 0, len(frames))

	for start := 0; start < len(frames); start += batchSize {
		end := min(start+batchSize, len(frames))
		posteriors, err := e.model.Infer(frames[start:end])
		if err != nil {
			return nil, nil, err
		}
		e.totalInfers++
		for _, posterior := range posteriors {
			bin := argmaxBelow(posterior, maxBin)
			frequency = append(frequency, convert.BinsToFrequency(bin))
			periodicity = append(periodicity, float64(posterior[bin]))
		}
	}
	return frequency, periodicity, nil
}

// argmaxBelow selects the highest-probability bin at or below maxBin.
func argmaxBelow(posterior []float32, maxBin int) int {
	limit := min(maxBin+1, len(posterior))
	best := 0
	for i := 1; i < limit; i++ {
		if posterior[i] > posterior[best] {
			best = i
		}
	}
	return best
}
