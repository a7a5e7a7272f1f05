// Package dataset describes the supported reference datasets and resolves
// stems to their on-disk locations.
package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/CameronChurchwell/penn/internal/convert"
	"github.com/CameronChurchwell/penn/internal/errors"
)

// Variant is one supported dataset together with its constants and quirks.
// The set of variants is closed; dataset-specific behavior lives here rather
// than in string comparisons scattered through scoring logic.
type Variant struct {
	// Name identifies the dataset and names its directory under the data dir.
	Name string

	// Fmax is the upper frequency limit applied when decoding predictions.
	Fmax float64

	// Pad centers analysis frames by zero-padding the audio by half a window.
	Pad bool

	// TruncateExtraFrame marks datasets whose framing produces one extra
	// trailing frame versus the reference annotation. Predictions longer than
	// the reference are truncated to the reference length before scoring.
	TruncateExtraFrame bool

	// AnnotationExt is the file extension of the reference annotation files.
	AnnotationExt string
}

// The closed set of supported datasets.
var (
	MDB = Variant{
		Name:          "MDB",
		Fmax:          convert.MaxFmax,
		Pad:           true,
		AnnotationExt: ".csv",
	}

	PTDB = Variant{
		Name:               "PTDB",
		Fmax:               550.0,
		Pad:                false,
		TruncateExtraFrame: true,
		AnnotationExt:      ".f0",
	}
)

var variants = map[string]Variant{
	MDB.Name:  MDB,
	PTDB.Name: PTDB,
}

// ByName resolves a dataset name to its variant. Unknown names fail with a
// not-found error.
func ByName(name string) (Variant, error) {
	variant, ok := variants[strings.ToUpper(name)]
	if !ok {
		return Variant{}, errors.Newf("unknown dataset %q", name).
			Component("dataset").
			Category(errors.CategoryNotFound).
			Context("dataset", name).
			Build()
	}
	return variant, nil
}

// Names lists the supported dataset names.
func Names() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	return names
}

// Partitions maps a partition name to its ordered list of stem ids.
type Partitions map[string][]string

// Partitions reads the dataset's partition file from the data directory.
func (v Variant) Partitions(dataDir string) (Partitions, error) {
	path := filepath.Join(dataDir, v.Name, "partition.json")
	data, err := os.ReadFile(path)
	if err != nil {
		category := errors.CategoryFileIO
		if os.IsNotExist(err) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("dataset").
			Category(category).
			Context("path", path).
			Build()
	}

	var partitions Partitions
	if err := json.Unmarshal(data, &partitions); err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return partitions, nil
}

// Hyperparameter returns the subset of training stems reserved for threshold
// calibration: the contiguous first fifth of the train partition, in order.
func (p Partitions) Hyperparameter() []string {
	train := p["train"]
	return train[:len(train)/5]
}

// StemToAudio resolves a stem id to its audio file.
func (v Variant) StemToAudio(dataDir, stem string) string {
	return filepath.Join(dataDir, v.Name, "audio", stem+".wav")
}

// StemToAnnotation resolves a stem id to its reference annotation file.
func (v Variant) StemToAnnotation(dataDir, stem string) string {
	return filepath.Join(dataDir, v.Name, "annotation", stem+v.AnnotationExt)
}

// StemToFrames resolves a stem id to its preprocessed frame file, used by
// autoregressive inference.
func (v Variant) StemToFrames(dataDir, stem string) string {
	return filepath.Join(dataDir, v.Name, "frames", stem+".f32")
}
