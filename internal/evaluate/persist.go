package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/CameronChurchwell/penn/internal/errors"
)

// artifactDir returns the output directory for this (dataset, model) pair.
func (e *Evaluator) artifactDir() string {
	return filepath.Join(e.settings.Eval.Dir, e.variant.Name, e.model.Name())
}

// persistResult writes the aggregate result record.
func (e *Evaluator) persistResult(result *Result) error {
	name := fmt.Sprintf("%s_on_%s.json", e.model.Name(), e.variant.Name)
	return writeJSON(filepath.Join(e.artifactDir(), name), result)
}

// persistTable writes the full calibration result table, keyed by threshold.
func (e *Evaluator) persistTable(table Table) error {
	keyed := make(map[string]Bundle, len(table))
	for thresholdValue, bundle := range table {
		keyed[strconv.FormatFloat(thresholdValue, 'g', -1, 64)] = bundle
	}
	name := fmt.Sprintf("hparam_%s_on_%s.json", e.model.Name(), e.variant.Name)
	return writeJSON(filepath.Join(e.artifactDir(), name), keyed)
}

// persistPerStem writes the per-stem metric breakdown.
func (e *Evaluator) persistPerStem(perStem map[string]Bundle) error {
	name := fmt.Sprintf("per_stem_%s_on_%s.json", e.model.Name(), e.variant.Name)
	return writeJSON(filepath.Join(e.artifactDir(), name), perStem)
}

// writeJSON persists v to path atomically: the document is written to a
// temporary file in the target directory and renamed into place, so a failed
// write never leaves a partial artifact on disk.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Component("evaluate").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.New(err).
			Component("evaluate").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return errors.New(err).
			Component("evaluate").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.New(err).
			Component("evaluate").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.New(err).
			Component("evaluate").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.New(err).
			Component("evaluate").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
