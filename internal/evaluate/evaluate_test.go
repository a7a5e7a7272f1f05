package evaluate

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronChurchwell/penn/internal/cache"
	"github.com/CameronChurchwell/penn/internal/conf"
	"github.com/CameronChurchwell/penn/internal/convert"
	"github.com/CameronChurchwell/penn/internal/dataset"
	"github.com/CameronChurchwell/penn/internal/errors"
)

func TestAlignLengthsTruncatesExtraTrailingFrame(t *testing.T) {
	t.Parallel()

	frequency := make([]float64, 101)
	periodicity := make([]float64, 101)
	reference := make([]float64, 100)

	gotFrequency, gotPeriodicity, err := alignLengths(dataset.PTDB, "stem", frequency, periodicity, reference)
	require.NoError(t, err)
	assert.Len(t, gotFrequency, 100)
	assert.Len(t, gotPeriodicity, 100)
}

func TestAlignLengthsNeverTruncatesReference(t *testing.T) {
	t.Parallel()

	// Prediction shorter than reference is always a shape error, even for
	// the dataset with the extra-frame quirk.
	frequency := make([]float64, 100)
	periodicity := make([]float64, 100)
	reference := make([]float64, 101)

	_, _, err := alignLengths(dataset.PTDB, "stem", frequency, periodicity, reference)
	require.Error(t, err)
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestAlignLengthsRejectsExtraFrameForOtherDatasets(t *testing.T) {
	t.Parallel()

	frequency := make([]float64, 101)
	periodicity := make([]float64, 101)
	reference := make([]float64, 100)

	_, _, err := alignLengths(dataset.MDB, "stem", frequency, periodicity, reference)
	require.Error(t, err)
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestUnionStemsPreservesOrderAndDeduplicates(t *testing.T) {
	t.Parallel()

	union := unionStems([]string{"a", "b"}, []string{"b", "c", "a"})
	assert.Equal(t, []string{"a", "b", "c"}, union)
}

// fakeModel is a deterministic Model whose posterior always peaks at one bin.
type fakeModel struct {
	bin          int
	failClassify bool
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) posterior() []float32 {
	distribution := make([]float32, convert.PitchBins)
	distribution[m.bin] = 1
	return distribution
}

func (m *fakeModel) Infer(frames [][]float32) ([][]float32, error) {
	posteriors := make([][]float32, len(frames))
	for i := range frames {
		posteriors[i] = m.posterior()
	}
	return posteriors, nil
}

func (m *fakeModel) Classify(frame []float32, priorBin int) ([]float32, error) {
	if m.failClassify {
		return nil, errors.Newf("model unavailable").Category(errors.CategoryInference).Build()
	}
	return m.posterior(), nil
}

// writeTestDataset lays out a one-stem MDB-style dataset with nFrames frames
// whose annotation matches the fake model's fixed bin.
func writeTestDataset(t *testing.T, dataDir string, bin, nFrames int) {
	t.Helper()

	root := filepath.Join(dataDir, "MDB")
	for _, sub := range []string{"annotation", "frames"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, sub), 0o755))
	}

	partition := map[string][]string{
		"train": {"a", "b", "c", "d", "e"},
		"test":  {"a"},
	}
	data, err := json.Marshal(partition)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "partition.json"), data, 0o644))

	// Frame file: flat little-endian float32, one window per frame.
	frames := make([]byte, 4*nFrames*convert.WindowSize)
	for i := 0; i < nFrames*convert.WindowSize; i++ {
		binary.LittleEndian.PutUint32(frames[4*i:], math.Float32bits(float32(i%7)-3))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "frames", "a.f32"), frames, 0o644))

	// Annotation: every frame voiced at the fake model's pitch.
	frequency := convert.BinsToFrequency(bin)
	var rows strings.Builder
	for i := 0; i < nFrames; i++ {
		fmt.Fprintf(&rows, "%.3f,%.9f\n", float64(i)*0.01, frequency)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "annotation", "a.csv"), []byte(rows.String()), 0o644))
}

func testSettings(dir string) *conf.Settings {
	settings := &conf.Settings{}
	settings.Data.Dir = filepath.Join(dir, "data")
	settings.Eval.Dir = filepath.Join(dir, "eval")
	settings.Eval.CachePath = filepath.Join(dir, "eval", "predictions.db")
	settings.Model.Name = "fake"
	settings.Model.BatchSize = 1024
	settings.Model.AutoRegressive = true
	return settings
}

func TestDatasetEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := testSettings(dir)
	const bin, nFrames = 120, 4
	writeTestDataset(t, settings.Data.Dir, bin, nFrames)

	store, err := cache.Open(settings.Eval.CachePath)
	require.NoError(t, err)
	defer store.Close()

	evaluator := New(settings, dataset.MDB, &fakeModel{bin: bin}, store)
	result, err := evaluator.Dataset(context.Background(), "test")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.Precision, 1e-12)
	assert.InDelta(t, 1.0, result.Recall, 1e-12)
	assert.InDelta(t, 1.0, result.F1, 1e-12)
	assert.InDelta(t, 1.0, result.RPA, 1e-12)
	assert.InDelta(t, 1.0, result.RCA, 1e-12)
	assert.InDelta(t, 0.0, result.WRMSE, 1e-3)
	assert.Equal(t, nFrames, result.Frames)
	assert.Equal(t, nFrames, result.Infers)
	assert.InDelta(t, convert.Seconds(nFrames), result.Seconds, 1e-12)
	assert.NotEmpty(t, result.RunID)

	// All three artifacts are persisted.
	artifactDir := filepath.Join(settings.Eval.Dir, "MDB", "fake")
	for _, name := range []string{
		"fake_on_MDB.json",
		"hparam_fake_on_MDB.json",
		"per_stem_fake_on_MDB.json",
	} {
		data, err := os.ReadFile(filepath.Join(artifactDir, name))
		require.NoError(t, err, name)
		assert.True(t, json.Valid(data), name)
	}

	// The aggregate artifact round-trips to the returned record.
	data, err := os.ReadFile(filepath.Join(artifactDir, "fake_on_MDB.json"))
	require.NoError(t, err)
	var persisted Result
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, result.F1, persisted.F1)
	assert.Equal(t, result.RunID, persisted.RunID)
}

func TestDatasetReusesCachedPredictions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := testSettings(dir)
	const bin, nFrames = 120, 4
	writeTestDataset(t, settings.Data.Dir, bin, nFrames)

	store, err := cache.Open(settings.Eval.CachePath)
	require.NoError(t, err)
	defer store.Close()

	// First run populates the cache.
	evaluator := New(settings, dataset.MDB, &fakeModel{bin: bin}, store)
	_, err = evaluator.Dataset(context.Background(), "test")
	require.NoError(t, err)

	// Second run must not touch the model at all.
	settings.Eval.SkipPredictions = true
	rerun := New(settings, dataset.MDB, &fakeModel{bin: bin, failClassify: true}, store)
	result, err := rerun.Dataset(context.Background(), "test")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.F1, 1e-12)
	assert.Zero(t, result.Frames, "throughput counters stay zero when inference is skipped")
}

func TestDatasetFailsOnMissingPartition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := testSettings(dir)
	writeTestDataset(t, settings.Data.Dir, 120, 4)

	store, err := cache.Open(settings.Eval.CachePath)
	require.NoError(t, err)
	defer store.Close()

	evaluator := New(settings, dataset.MDB, &fakeModel{bin: 120}, store)
	_, err = evaluator.Dataset(context.Background(), "validation")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDatasetAbortsWhenInferenceFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := testSettings(dir)
	writeTestDataset(t, settings.Data.Dir, 120, 4)

	store, err := cache.Open(settings.Eval.CachePath)
	require.NoError(t, err)
	defer store.Close()

	evaluator := New(settings, dataset.MDB, &fakeModel{bin: 120, failClassify: true}, store)
	_, err = evaluator.Dataset(context.Background(), "test")
	require.Error(t, err)
	assert.True(t, errors.IsInference(err))

	// No artifacts may exist after a failed run.
	_, statErr := os.Stat(filepath.Join(settings.Eval.Dir, "MDB", "fake", "fake_on_MDB.json"))
	assert.True(t, os.IsNotExist(statErr))
}
