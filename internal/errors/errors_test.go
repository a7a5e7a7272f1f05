package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCarriesMetadata(t *testing.T) {
	t.Parallel()

	base := NewStd("model file missing")
	err := New(base).
		Component("pitchnet").
		Category(CategoryModelLoad).
		Context("path", "/models/fcnf0.tflite").
		Build()

	assert.Equal(t, "model file missing", err.Error())
	assert.Equal(t, "pitchnet", err.Component)
	assert.Equal(t, CategoryModelLoad, err.Category)
	assert.Equal(t, "/models/fcnf0.tflite", err.Context["path"])
	assert.WithinDuration(t, time.Now(), err.Timestamp, time.Minute)
	assert.True(t, Is(err, base), "enhanced error must match its wrapped error")
}

func TestBuilderDefaultsToGenericCategory(t *testing.T) {
	t.Parallel()

	err := Newf("something went %s", "sideways").Build()
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.Equal(t, "something went sideways", err.Error())
}

func TestHasCategoryMatchesThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := Newf("no cached prediction").Category(CategoryNotFound).Build()
	wrapped := fmt.Errorf("loading stem: %w", inner)

	assert.True(t, HasCategory(wrapped, CategoryNotFound))
	assert.False(t, HasCategory(wrapped, CategoryDatabase))
	assert.False(t, HasCategory(NewStd("plain"), CategoryNotFound))
}

func TestCategoryPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category  ErrorCategory
		predicate func(error) bool
	}{
		{CategoryNotFound, IsNotFound},
		{CategoryShapeMismatch, IsShapeMismatch},
		{CategoryInference, IsInference},
	}
	for _, tt := range tests {
		err := Newf("boom").Category(tt.category).Build()
		assert.True(t, tt.predicate(err), string(tt.category))
		for _, other := range tests {
			if other.category != tt.category {
				assert.False(t, other.predicate(err), string(other.category))
			}
		}
	}
}

func TestEnhancedErrorIsComparesCategories(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryCache).Build()
	b := Newf("second").Category(CategoryCache).Build()
	c := Newf("third").Category(CategoryDecode).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestGetContextReturnsACopy(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Context("stem", "a").Build()
	ctx := err.GetContext()
	require.NotNil(t, ctx)
	ctx["stem"] = "tampered"
	assert.Equal(t, "a", err.Context["stem"])
}

func TestTimingAddsOperationContext(t *testing.T) {
	t.Parallel()

	err := Newf("slow").Timing("inference", 1500*time.Millisecond).Build()
	assert.Equal(t, "inference", err.Context["operation"])
	assert.Equal(t, int64(1500), err.Context["duration_ms"])
}
