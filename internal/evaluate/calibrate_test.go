package evaluate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronChurchwell/penn/internal/errors"
)

func TestSearchConvergesOnUnimodalPeak(t *testing.T) {
	t.Parallel()

	// Unimodal F1 curve with its single maximum at t = 0.3.
	calls := 0
	best, table, err := searchThreshold(func(thresholdValue float64) (Bundle, error) {
		calls++
		return Bundle{F1: 1 - math.Abs(thresholdValue-0.3)}, nil
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.3, best, searchWidth)
	assert.Len(t, table, calls, "every distinct threshold is scored exactly once")
	// The narrowing halves the interval each step, so the whole search takes
	// on the order of log2(1/0.005) passes.
	assert.LessOrEqual(t, calls, 12)
}

func TestSearchMemoizesBoundEvaluations(t *testing.T) {
	t.Parallel()

	seen := make(map[float64]int)
	_, _, err := searchThreshold(func(thresholdValue float64) (Bundle, error) {
		seen[thresholdValue]++
		return Bundle{F1: thresholdValue}, nil
	})
	require.NoError(t, err)

	for thresholdValue, count := range seen {
		assert.Equal(t, 1, count, "threshold %v re-evaluated", thresholdValue)
	}
}

func TestSearchPicksArgmaxOverWholeTable(t *testing.T) {
	t.Parallel()

	// A curve whose best scored point is an early bound, not the final
	// interval: decreasing from t=0.
	best, table, err := searchThreshold(func(thresholdValue float64) (Bundle, error) {
		return Bundle{F1: 1 - thresholdValue}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, best)
	wantF1 := table[best].F1
	for _, bundle := range table {
		assert.LessOrEqual(t, bundle.F1, wantF1)
	}
}

func TestSearchTerminatesOnFlatZeroCurve(t *testing.T) {
	t.Parallel()

	// An empty hyperparameter subset scores zero at every threshold; the
	// search must still terminate, favoring the left edge.
	best, table, err := searchThreshold(func(float64) (Bundle, error) {
		return Bundle{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, best)
	assert.NotEmpty(t, table)
}

func TestSearchPropagatesScoringErrors(t *testing.T) {
	t.Parallel()

	wantErr := errors.Newf("stem missing").Category(errors.CategoryNotFound).Build()
	_, _, err := searchThreshold(func(float64) (Bundle, error) {
		return Bundle{}, wantErr
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
