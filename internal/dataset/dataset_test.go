package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronChurchwell/penn/internal/errors"
)

func TestByName(t *testing.T) {
	t.Parallel()

	variant, err := ByName("MDB")
	require.NoError(t, err)
	assert.Equal(t, MDB, variant)

	// Lookup is case-insensitive.
	variant, err = ByName("ptdb")
	require.NoError(t, err)
	assert.Equal(t, PTDB, variant)

	_, err = ByName("NSYNTH")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestVariantConstants(t *testing.T) {
	t.Parallel()

	assert.True(t, MDB.Pad)
	assert.False(t, MDB.TruncateExtraFrame)
	assert.False(t, PTDB.Pad)
	assert.True(t, PTDB.TruncateExtraFrame)
	assert.InDelta(t, 550.0, PTDB.Fmax, 1e-12)
	assert.Greater(t, MDB.Fmax, PTDB.Fmax)
}

func TestNamesCoversAllVariants(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []string{"MDB", "PTDB"}, Names())
}

func TestPartitions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := filepath.Join(dir, "MDB")
	require.NoError(t, os.MkdirAll(root, 0o755))
	content := `{"train": ["t1", "t2"], "test": ["s1"]}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "partition.json"), []byte(content), 0o644))

	partitions, err := MDB.Partitions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, partitions["train"])
	assert.Equal(t, []string{"s1"}, partitions["test"])
}

func TestPartitionsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := MDB.Partitions(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestHyperparameterIsFirstFifthOfTrain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		train []string
		want  []string
	}{
		{"ten stems", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, []string{"a", "b"}},
		{"five stems", []string{"a", "b", "c", "d", "e"}, []string{"a"}},
		{"rounds down", []string{"a", "b", "c", "d", "e", "f"}, []string{"a"}},
		{"too few for a fifth", []string{"a", "b"}, nil},
		{"empty train", nil, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Partitions{"train": tt.train}.Hyperparameter()
			assert.Equal(t, tt.want, normalizeEmpty(got))
		})
	}
}

func normalizeEmpty(stems []string) []string {
	if len(stems) == 0 {
		return nil
	}
	return stems
}

func TestStemPaths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("data", "MDB", "audio", "x.wav"), MDB.StemToAudio("data", "x"))
	assert.Equal(t, filepath.Join("data", "MDB", "annotation", "x.csv"), MDB.StemToAnnotation("data", "x"))
	assert.Equal(t, filepath.Join("data", "PTDB", "annotation", "x.f0"), PTDB.StemToAnnotation("data", "x"))
	assert.Equal(t, filepath.Join("data", "PTDB", "frames", "x.f32"), PTDB.StemToFrames("data", "x"))
}
