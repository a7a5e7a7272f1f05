// Package annotation loads reference pitch annotations for scoring.
package annotation

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/CameronChurchwell/penn/internal/dataset"
	"github.com/CameronChurchwell/penn/internal/errors"
)

// Loader reads per-stem reference frequency sequences. Parsed annotations are
// memoized so the repeated passes of the threshold calibration search do not
// re-parse the same files. Annotations are immutable once loaded; callers
// must not mutate the returned slices.
type Loader struct {
	dataDir string
	memo    *gocache.Cache
}

// NewLoader creates a Loader rooted at the given data directory.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir: dataDir,
		memo:    gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// Pitch returns the reference frequency sequence for one stem, one value per
// frame, with 0 marking unvoiced frames.
func (l *Loader) Pitch(v dataset.Variant, stem string) ([]float64, error) {
	key := v.Name + "/" + stem
	if cached, ok := l.memo.Get(key); ok {
		return cached.([]float64), nil
	}

	path := v.StemToAnnotation(l.dataDir, stem)
	file, err := os.Open(path)
	if err != nil {
		category := errors.CategoryFileIO
		if os.IsNotExist(err) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("annotation").
			Category(category).
			Context("stem", stem).
			Context("path", path).
			Build()
	}
	defer file.Close()

	var pitch []float64
	var parseErr error
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var value float64
		value, parseErr = parseLine(v, text)
		if parseErr != nil {
			return nil, errors.New(parseErr).
				Component("annotation").
				Category(errors.CategoryFileIO).
				Context("stem", stem).
				Context("path", path).
				Context("line", line).
				Build()
		}
		// Negative or sentinel frequencies mean unvoiced.
		if value < 0 {
			value = 0
		}
		pitch = append(pitch, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("annotation").
			Category(errors.CategoryFileIO).
			Context("stem", stem).
			Context("path", path).
			Build()
	}

	l.memo.Set(key, pitch, gocache.DefaultExpiration)
	return pitch, nil
}

// parseLine extracts the frequency value from one annotation line. MDB
// annotations are CSV rows of (time, frequency); PTDB f0 files carry the
// frequency as the first whitespace-separated field.
func parseLine(v dataset.Variant, text string) (float64, error) {
	switch v.AnnotationExt {
	case ".csv":
		fields := strings.Split(text, ",")
		if len(fields) < 2 {
			return 0, errors.Newf("malformed annotation row %q", text).Build()
		}
		return strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	default:
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return 0, errors.Newf("malformed annotation row %q", text).Build()
		}
		return strconv.ParseFloat(fields[0], 64)
	}
}
