package annotation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronChurchwell/penn/internal/dataset"
	"github.com/CameronChurchwell/penn/internal/errors"
)

func writeAnnotation(t *testing.T, dataDir string, v dataset.Variant, stem, content string) {
	t.Helper()
	dir := filepath.Join(dataDir, v.Name, "annotation")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, stem+v.AnnotationExt), []byte(content), 0o644))
}

func TestPitchParsesCSVAnnotations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAnnotation(t, dir, dataset.MDB, "song",
		"0.000,220.0\n0.010,0.0\n0.020, 440.5\n")

	pitch, err := NewLoader(dir).Pitch(dataset.MDB, "song")
	require.NoError(t, err)
	assert.Equal(t, []float64{220.0, 0.0, 440.5}, pitch)
}

func TestPitchParsesWhitespaceAnnotations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// PTDB f0 rows carry trailing fields after the frequency.
	writeAnnotation(t, dir, dataset.PTDB, "utt",
		"120.5 0.9 14.2\n0.0 0.0 0.0\n\n130.25 0.8 12.1\n")

	pitch, err := NewLoader(dir).Pitch(dataset.PTDB, "utt")
	require.NoError(t, err)
	assert.Equal(t, []float64{120.5, 0.0, 130.25}, pitch)
}

func TestPitchClampsNegativeFrequenciesToUnvoiced(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAnnotation(t, dir, dataset.PTDB, "utt", "-1.0\n100.0\n")

	pitch, err := NewLoader(dir).Pitch(dataset.PTDB, "utt")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 100.0}, pitch)
}

func TestPitchMissingStem(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(t.TempDir()).Pitch(dataset.MDB, "absent")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestPitchMalformedRow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAnnotation(t, dir, dataset.MDB, "song", "0.000,not-a-number\n")

	_, err := NewLoader(dir).Pitch(dataset.MDB, "song")
	require.Error(t, err)
}

func TestPitchMemoizesAcrossCalls(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAnnotation(t, dir, dataset.MDB, "song", "0.000,220.0\n")

	loader := NewLoader(dir)
	first, err := loader.Pitch(dataset.MDB, "song")
	require.NoError(t, err)

	// Deleting the file must not matter once the annotation is memoized.
	require.NoError(t, os.Remove(dataset.MDB.StemToAnnotation(dir, "song")))
	second, err := loader.Pitch(dataset.MDB, "song")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPitchMemoKeysIncludeDataset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAnnotation(t, dir, dataset.MDB, "stem", "0.000,220.0\n")
	writeAnnotation(t, dir, dataset.PTDB, "stem", "330.0\n")

	loader := NewLoader(dir)
	mdb, err := loader.Pitch(dataset.MDB, "stem")
	require.NoError(t, err)
	ptdb, err := loader.Pitch(dataset.PTDB, "stem")
	require.NoError(t, err)
	assert.Equal(t, []float64{220.0}, mdb)
	assert.Equal(t, []float64{330.0}, ptdb)
}
