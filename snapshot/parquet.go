// Package snapshot stores the aggregate populations as Parquet files so
// reports can be recomputed without a database, and streams the raw
// spending CSV for loading.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/COG-GTM/devin-hhs/analysis"
)

const flushInterval = 100_000

// Snapshot file names inside a snapshot directory.
const (
	ProvidersFile  = "providers.parquet"
	HCPCSFile      = "hcpcs.parquet"
	MismatchesFile = "mismatches.parquet"
	PricesFile     = "prices.parquet"
)

// Writer writes rows of T to a Parquet file.
type Writer[T any] struct {
	file   *os.File
	writer *parquet.GenericWriter[T]
	count  int
}

// NewWriter creates path and a zstd-compressed Parquet writer on it.
func NewWriter[T any](path string) (*Writer[T], error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet %s: %w", path, err)
	}
	writer := parquet.NewGenericWriter[T](file,
		parquet.Compression(&parquet.Zstd),
	)
	return &Writer[T]{file: file, writer: writer}, nil
}

// Write appends rows, flushing a row group every flushInterval rows.
func (w *Writer[T]) Write(rows ...T) error {
	for _, row := range rows {
		if _, err := w.writer.Write([]T{row}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		w.count++
		if w.count%flushInterval == 0 {
			if err := w.writer.Flush(); err != nil {
				return fmt.Errorf("flush rows: %w", err)
			}
		}
	}
	return nil
}

// Close flushes and closes the writer.
func (w *Writer[T]) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of rows written.
func (w *Writer[T]) Count() int { return w.count }

// WriteFile writes rows to path in one call.
func WriteFile[T any](path string, rows []T) (err error) {
	w, err := NewWriter[T](path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return w.Write(rows...)
}

// ReadFile reads every row of a Parquet file.
func ReadFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

// Save writes the aggregate populations and code prices into dir, creating it if
// needed.
func Save(dir string, in analysis.Inputs) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := WriteFile(filepath.Join(dir, ProvidersFile), in.Providers); err != nil {
		return fmt.Errorf("save providers: %w", err)
	}
	if err := WriteFile(filepath.Join(dir, HCPCSFile), in.HCPCS); err != nil {
		return fmt.Errorf("save hcpcs: %w", err)
	}
	if err := WriteFile(filepath.Join(dir, MismatchesFile), in.Mismatches); err != nil {
		return fmt.Errorf("save mismatches: %w", err)
	}
	if err := WriteFile(filepath.Join(dir, PricesFile), in.Prices); err != nil {
		return fmt.Errorf("save prices: %w", err)
	}
	return nil
}

// Load reads a snapshot directory written by Save. A missing file is an
// error; an empty one yields an empty population.
func Load(dir string) (analysis.Inputs, error) {
	var in analysis.Inputs
	var err error
	if in.Providers, err = ReadFile[analysis.ProviderAggregate](filepath.Join(dir, ProvidersFile)); err != nil {
		return analysis.Inputs{}, err
	}
	if in.HCPCS, err = ReadFile[analysis.HCPCSAggregate](filepath.Join(dir, HCPCSFile)); err != nil {
		return analysis.Inputs{}, err
	}
	if in.Mismatches, err = ReadFile[analysis.MismatchAggregate](filepath.Join(dir, MismatchesFile)); err != nil {
		return analysis.Inputs{}, err
	}
	if in.Prices, err = ReadFile[analysis.HCPCSPriceAggregate](filepath.Join(dir, PricesFile)); err != nil {
		return analysis.Inputs{}, err
	}
	return in, nil
}

// Exists reports whether dir holds all snapshot files.
func Exists(dir string) bool {
	for _, name := range []string{ProvidersFile, HCPCSFile, MismatchesFile, PricesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); errors.Is(err, os.ErrNotExist) {
			return false
		}
	}
	return true
}
