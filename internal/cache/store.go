// Package cache persists per-stem pitch predictions between evaluation runs.
package cache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CameronChurchwell/penn/internal/errors"
)

// Store persists (frequency, periodicity) sequences keyed by
// (dataset, model, stem), backed by SQLite. Each Store call is a single
// transaction, so readers never observe a partially written entry.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    dataset     TEXT NOT NULL,
    model       TEXT NOT NULL,
    stem        TEXT NOT NULL,
    frames      INTEGER NOT NULL,
    frequency   BLOB NOT NULL,
    periodicity BLOB NOT NULL,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (dataset, model, stem)
)`

// Open initializes or connects to the prediction database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	// Pragmas go in the DSN so every pooled connection carries them; a plain
	// Exec would configure only the one connection that served it, leaving
	// concurrent writers on fresh connections with busy_timeout=0.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Store writes one stem's prediction, replacing any prior entry for the same
// key. The frequency and periodicity sequences must be equal length.
func (s *Store) Store(ctx context.Context, dataset, model, stem string, frequency, periodicity []float64) error {
	if len(frequency) != len(periodicity) {
		return errors.Newf("frequency and periodicity length mismatch: %d vs %d",
			len(frequency), len(periodicity)).
			Component("cache").
			Category(errors.CategoryValidation).
			Context("stem", stem).
			Build()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO predictions (
            dataset, model, stem, frames, frequency, periodicity, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dataset,
		model,
		stem,
		len(frequency),
		encodeSequence(frequency),
		encodeSequence(periodicity),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("dataset", dataset).
			Context("model", model).
			Context("stem", stem).
			Build()
	}
	return nil
}

// Load reads back one stem's prediction. It fails with a not-found error when
// the stem was never stored for the (dataset, model) pair.
func (s *Store) Load(ctx context.Context, dataset, model, stem string) (frequency, periodicity []float64, err error) {
	var frames int
	var frequencyBlob, periodicityBlob []byte
	row := s.db.QueryRowContext(
		ctx,
		`SELECT frames, frequency, periodicity FROM predictions
         WHERE dataset = ? AND model = ? AND stem = ?`,
		dataset, model, stem,
	)
	if scanErr := row.Scan(&frames, &frequencyBlob, &periodicityBlob); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, nil, errors.Newf("no cached prediction for stem %q", stem).
				Component("cache").
				Category(errors.CategoryNotFound).
				Context("dataset", dataset).
				Context("model", model).
				Context("stem", stem).
				Build()
		}
		return nil, nil, errors.New(scanErr).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("stem", stem).
			Build()
	}

	frequency = decodeSequence(frequencyBlob)
	periodicity = decodeSequence(periodicityBlob)
	if len(frequency) != frames || len(periodicity) != frames {
		return nil, nil, errors.Newf("corrupt cache entry for stem %q: expected %d frames, got %d/%d",
			stem, frames, len(frequency), len(periodicity)).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("stem", stem).
			Build()
	}
	return frequency, periodicity, nil
}

// Has reports whether a prediction exists for the given key.
func (s *Store) Has(ctx context.Context, dataset, model, stem string) (bool, error) {
	var one int
	row := s.db.QueryRowContext(
		ctx,
		`SELECT 1 FROM predictions WHERE dataset = ? AND model = ? AND stem = ?`,
		dataset, model, stem,
	)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("stem", stem).
			Build()
	}
	return true, nil
}

// encodeSequence packs a float64 sequence as little-endian bytes.
func encodeSequence(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

// decodeSequence unpacks a little-endian byte blob into float64 values.
func decodeSequence(buf []byte) []float64 {
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return values
}
