// Package pitchnet wraps the TensorFlow Lite pitch model behind an explicit
// handle. The handle satisfies both inference capabilities the evaluation
// engine uses: batch logits for windowed inference and stateful per-frame
// classification for autoregressive decoding.
package pitchnet

import (
	"math"
	"runtime"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"

	"github.com/CameronChurchwell/penn/internal/conf"
	"github.com/CameronChurchwell/penn/internal/convert"
	"github.com/CameronChurchwell/penn/internal/errors"
	"github.com/CameronChurchwell/penn/internal/observability"
)

// PitchNet represents the pitch model with its interpreter and configuration.
type PitchNet struct {
	model       *tflite.Model
	interpreter *tflite.Interpreter
	name        string
	metrics     *observability.EvaluationMetrics

	// The interpreter is not safe for concurrent invocation.
	mu sync.Mutex
}

// New loads the TFLite model named by the settings and prepares an
// interpreter for it.
func New(settings *conf.Settings) (*PitchNet, error) {
	model := tflite.NewModelFromFile(settings.Model.Path)
	if model == nil {
		return nil, errors.Newf("cannot load model from path: %s", settings.Model.Path).
			Component("pitchnet").
			Category(errors.CategoryModelLoad).
			Context("model_path", settings.Model.Path).
			Build()
	}

	threads := settings.Model.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.Newf("cannot create interpreter for model %s", settings.Model.Path).
			Component("pitchnet").
			Category(errors.CategoryModelInit).
			Build()
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Component("pitchnet").
			Category(errors.CategoryModelInit).
			Build()
	}

	return &PitchNet{
		model:       model,
		interpreter: interpreter,
		name:        settings.Model.Name,
	}, nil
}

// Name returns the model name used for cache keys and artifact naming.
func (pn *PitchNet) Name() string {
	return pn.name
}

// SetMetrics attaches evaluation collectors; nil disables instrumentation.
func (pn *PitchNet) SetMetrics(m *observability.EvaluationMetrics) {
	pn.metrics = m
}

// Close releases the interpreter and model.
func (pn *PitchNet) Close() {
	pn.mu.Lock()
	defer pn.mu.Unlock()
	if pn.interpreter != nil {
		pn.interpreter.Delete()
		pn.interpreter = nil
	}
	if pn.model != nil {
		pn.model.Delete()
		pn.model = nil
	}
}

// Infer runs the model over a batch of frames and returns one posterior
// distribution over the pitch bins per frame.
func (pn *PitchNet) Infer(frames [][]float32) ([][]float32, error) {
	pn.mu.Lock()
	defer pn.mu.Unlock()

	posteriors := make([][]float32, 0, len(frames))
	for _, frame := range frames {
		posterior, err := pn.invoke(frame, decodeNoPrior)
		if err != nil {
			return nil, err
		}
		posteriors = append(posteriors, posterior)
	}
	return posteriors, nil
}

// Classify runs one autoregressive step: the frame plus the previously
// decoded bin (or the sentinel prior for the first frame) map to a posterior
// distribution over the pitch bins.
func (pn *PitchNet) Classify(frame []float32, priorBin int) ([]float32, error) {
	pn.mu.Lock()
	defer pn.mu.Unlock()
	return pn.invoke(frame, priorBin)
}

// decodeNoPrior mirrors the decoder's sentinel without importing it.
const decodeNoPrior = -1

// invoke copies one frame (and the prior bin, when the model takes one) into
// the input tensors, runs the interpreter, and returns the softmaxed output.
// Callers must hold mu.
func (pn *PitchNet) invoke(frame []float32, priorBin int) ([]float32, error) {
	start := time.Now()

	inputTensor := pn.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component("pitchnet").
			Category(errors.CategoryInference).
			Build()
	}
	copy(inputTensor.Float32s(), frame)

	// Autoregressive model variants take the prior bin as a second input.
	if pn.interpreter.GetInputTensorCount() > 1 {
		priorTensor := pn.interpreter.GetInputTensor(1)
		if priorTensor == nil {
			return nil, errors.Newf("cannot get prior-bin input tensor").
				Component("pitchnet").
				Category(errors.CategoryInference).
				Build()
		}
		writePrior(priorTensor.Float32s(), priorBin)
	}

	if status := pn.interpreter.Invoke(); status != tflite.OK {
		if pn.metrics != nil {
			pn.metrics.InferenceErrors.WithLabelValues(pn.name).Inc()
		}
		return nil, errors.Newf("tensor invoke failed: %v", status).
			Component("pitchnet").
			Category(errors.CategoryInference).
			Build()
	}

	outputTensor := pn.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, errors.Newf("cannot get output tensor").
			Component("pitchnet").
			Category(errors.CategoryInference).
			Build()
	}
	logits := extractLogits(outputTensor)

	if pn.metrics != nil {
		pn.metrics.InferenceTotal.WithLabelValues(pn.name).Inc()
		pn.metrics.InferenceDuration.WithLabelValues(pn.name).Observe(time.Since(start).Seconds())
	}
	return softmax(logits), nil
}

// writePrior encodes the prior bin into the model's prior input. A one-hot
// layout gets the decoded bin set to one; a scalar layout gets the bin index
// directly, with the sentinel passed through as -1.
func writePrior(dst []float32, priorBin int) {
	if len(dst) >= convert.PitchBins {
		for i := range dst {
			dst[i] = 0
		}
		if priorBin >= 0 && priorBin < len(dst) {
			dst[priorBin] = 1
		}
		return
	}
	for i := range dst {
		dst[i] = float32(priorBin)
	}
}

// extractLogits copies the model output out of the tensor.
func extractLogits(tensor *tflite.Tensor) []float32 {
	size := tensor.Dim(tensor.NumDims() - 1)
	logits := make([]float32, size)
	copy(logits, tensor.Float32s())
	return logits
}

// softmax converts logits to a probability distribution, numerically
// stabilized by subtracting the maximum logit.
func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var total float64
	exps := make([]float64, len(logits))
	for i, l := range logits {
		exps[i] = math.Exp(float64(l - maxLogit))
		total += exps[i]
	}
	posterior := make([]float32, len(logits))
	for i, e := range exps {
		posterior[i] = float32(e / total)
	}
	return posterior
}
