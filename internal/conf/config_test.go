package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronChurchwell/penn/internal/errors"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Model.BatchSize = 1024
	s.Model.Threads = 0
	s.Data.Dir = "/data"
	s.Eval.Dir = "/eval"
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero batch size", func(s *Settings) { s.Model.BatchSize = 0 }},
		{"negative threads", func(s *Settings) { s.Model.Threads = -1 }},
		{"missing data dir", func(s *Settings) { s.Data.Dir = "" }},
		{"missing eval dir", func(s *Settings) { s.Eval.Dir = "" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}
