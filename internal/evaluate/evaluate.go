// Package evaluate scores a pitch model against annotated reference datasets
// and calibrates its voicing threshold.
package evaluate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CameronChurchwell/penn/internal/annotation"
	"github.com/CameronChurchwell/penn/internal/cache"
	"github.com/CameronChurchwell/penn/internal/conf"
	"github.com/CameronChurchwell/penn/internal/dataset"
	"github.com/CameronChurchwell/penn/internal/errors"
	"github.com/CameronChurchwell/penn/internal/logging"
	"github.com/CameronChurchwell/penn/internal/observability"
)

// Model is the inference capability the evaluator requires from the pitch
// model. The handle is passed in explicitly; there is no process-wide model
// slot.
type Model interface {
	// Name identifies the model for cache keys and artifact naming.
	Name() string

	// Infer maps a batch of frames to per-frame posterior distributions over
	// the pitch bins.
	Infer(frames [][]float32) ([][]float32, error)

	// Classify maps one frame, conditioned on the previously decoded bin, to
	// a posterior distribution over the pitch bins.
	Classify(frame []float32, priorBin int) ([]float32, error)
}

// Evaluator runs the full evaluation pipeline for one dataset and model:
// prediction (or cache reuse), threshold calibration, test scoring, and
// artifact persistence.
type Evaluator struct {
	settings    *conf.Settings
	variant     dataset.Variant
	model       Model
	store       *cache.Store
	annotations *annotation.Loader
	metrics     *observability.Metrics
	log         *slog.Logger

	// Throughput totals accumulated across the prediction phase.
	totalSeconds float64
	totalFrames  int
	totalInfers  int
}

// New creates an Evaluator for one dataset variant and model handle.
func New(settings *conf.Settings, variant dataset.Variant, model Model, store *cache.Store) *Evaluator {
	return &Evaluator{
		settings:    settings,
		variant:     variant,
		model:       model,
		store:       store,
		annotations: annotation.NewLoader(settings.Data.Dir),
		log:         logging.ForModule("evaluate"),
	}
}

// SetMetrics attaches observability collectors; nil disables instrumentation.
func (e *Evaluator) SetMetrics(m *observability.Metrics) {
	e.metrics = m
}

// Dataset evaluates the configured partition end to end and returns the
// aggregate result record. Artifacts are persisted under the evaluation
// output directory only after each computation fully succeeds.
func (e *Evaluator) Dataset(ctx context.Context, partition string) (*Result, error) {
	partitions, err := e.variant.Partitions(e.settings.Data.Dir)
	if err != nil {
		return nil, err
	}

	hparamStems := partitions.Hyperparameter()
	testStems, ok := partitions[partition]
	if !ok {
		return nil, errors.Newf("dataset %s has no partition %q", e.variant.Name, partition).
			Component("evaluate").
			Category(errors.CategoryNotFound).
			Context("partition", partition).
			Build()
	}

	e.log.Info("starting evaluation",
		"dataset", e.variant.Name,
		"model", e.model.Name(),
		"partition", partition,
		"hyperparameter_stems", len(hparamStems),
		"test_stems", len(testStems),
		"skip_predictions", e.settings.Eval.SkipPredictions)

	if !e.settings.Eval.SkipPredictions {
		if err := e.predict(ctx, unionStems(hparamStems, testStems)); err != nil {
			return nil, err
		}
	}

	best, table, err := e.calibrate(ctx, hparamStems)
	if err != nil {
		return nil, err
	}
	e.log.Info("calibrated voicing threshold", "threshold", best, "tried", len(table))

	if err := e.persistTable(table); err != nil {
		return nil, err
	}

	perStem, err := e.scorePerStem(ctx, best, testStems)
	if err != nil {
		return nil, err
	}
	if err := e.persistPerStem(perStem); err != nil {
		return nil, err
	}

	bundle, err := e.scoreStems(ctx, best, testStems)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Bundle:    bundle,
		Seconds:   e.totalSeconds,
		Frames:    e.totalFrames,
		Infers:    e.totalInfers,
		Threshold: best,
		RunID:     uuid.NewString(),
	}
	if err := e.persistResult(result); err != nil {
		return nil, err
	}

	e.log.Info("evaluation complete",
		"run_id", result.RunID,
		"f1", result.F1,
		"wrmse", result.WRMSE,
		"rpa", result.RPA,
		"rca", result.RCA)
	return result, nil
}

// calibrate searches for the voicing threshold maximizing F1 over the
// hyperparameter stems.
func (e *Evaluator) calibrate(ctx context.Context, stems []string) (float64, Table, error) {
	return searchThreshold(func(thresholdValue float64) (Bundle, error) {
		if e.metrics != nil {
			e.metrics.Evaluation.CalibrationPasses.Inc()
		}
		e.log.Debug("scoring hyperparameter subset", "threshold", thresholdValue)
		return e.scoreStems(ctx, thresholdValue, stems)
	})
}

// scoreStems runs one accumulation pass over stems at the given threshold. A
// failure on any stem aborts the pass; there are no partial aggregates.
func (e *Evaluator) scoreStems(ctx context.Context, thresholdValue float64, stems []string) (Bundle, error) {
	s := newScorer(thresholdValue)
	for _, stem := range stems {
		if err := ctx.Err(); err != nil {
			return Bundle{}, err
		}
		pitch, periodicity, reference, err := e.loadAligned(ctx, stem)
		if err != nil {
			return Bundle{}, err
		}
		s.update(pitch, reference, periodicity)
		if e.metrics != nil {
			e.metrics.Evaluation.StemsEvaluated.WithLabelValues(e.variant.Name).Inc()
		}
	}
	return s.bundle(), nil
}

// scorePerStem scores every stem individually at the given threshold,
// resetting accumulator state between stems.
func (e *Evaluator) scorePerStem(ctx context.Context, thresholdValue float64, stems []string) (map[string]Bundle, error) {
	s := newScorer(thresholdValue)
	perStem := make(map[string]Bundle, len(stems))
	for _, stem := range stems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pitch, periodicity, reference, err := e.loadAligned(ctx, stem)
		if err != nil {
			return nil, err
		}
		s.update(pitch, reference, periodicity)
		perStem[stem] = s.bundle()
		s.reset()
	}
	return perStem, nil
}

// loadAligned loads one stem's cached prediction and reference annotation and
// aligns their lengths per the dataset's truncation rule.
func (e *Evaluator) loadAligned(ctx context.Context, stem string) (pitch, periodicity, reference []float64, err error) {
	reference, err = e.annotations.Pitch(e.variant, stem)
	if err != nil {
		return nil, nil, nil, err
	}
	pitch, periodicity, err = e.store.Load(ctx, e.variant.Name, e.model.Name(), stem)
	if err != nil {
		return nil, nil, nil, err
	}
	pitch, periodicity, err = alignLengths(e.variant, stem, pitch, periodicity, reference)
	if err != nil {
		return nil, nil, nil, err
	}
	return pitch, periodicity, reference, nil
}

// alignLengths applies the documented truncation rule: datasets whose framing
// yields one extra trailing frame get predictions truncated down to the
// reference length, never the reverse. Any remaining mismatch is a shape
// error.
func alignLengths(v dataset.Variant, stem string, frequency, periodicity, reference []float64) ([]float64, []float64, error) {
	if v.TruncateExtraFrame && len(frequency) > len(reference) {
		frequency = frequency[:len(reference)]
		periodicity = periodicity[:len(reference)]
	}
	if len(frequency) != len(reference) {
		return nil, nil, errors.Newf("stem %q: prediction length %d does not match reference length %d",
			stem, len(frequency), len(reference)).
			Component("evaluate").
			Category(errors.CategoryShapeMismatch).
			Context("stem", stem).
			Context("dataset", v.Name).
			Build()
	}
	return frequency, periodicity, nil
}

// unionStems concatenates stem lists, dropping duplicates while preserving
// first-seen order.
func unionStems(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var union []string
	for _, list := range lists {
		for _, stem := range list {
			if _, ok := seen[stem]; ok {
				continue
			}
			seen[stem] = struct{}{}
			union = append(union, stem)
		}
	}
	return union
}
