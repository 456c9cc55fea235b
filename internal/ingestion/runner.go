package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// Source provides normalized purchase records for loading.
type Source interface {
	// Records returns all records the source holds. Ordering is not
	// significant; stores and the engine sort chronologically themselves.
	Records(ctx context.Context) ([]*Record, error)
}

// FileSource reads records from a JSON or CSV export on disk, selected by
// file extension.
type FileSource struct {
	Path string
}

// Compile-time interface check.
var _ Source = (*FileSource)(nil)

// Records reads and decodes the file.
func (s *FileSource) Records(_ context.Context) ([]*Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported source file extension %q", filepath.Ext(s.Path))
	}
}

// Stats summarizes one ingestion run.
type Stats struct {
	Read       int // records decoded from the source
	Inserted   int // purchases stored
	Duplicates int // skipped: already stored
	Invalid    int // skipped: failed conversion
	Warnings   int // coercion/validation warnings across all records
}

// Runner loads a record source into a purchase store. Duplicates are
// skipped, not errors: re-running an import is expected to be idempotent.
type Runner struct {
	source Source
	store  storage.PurchaseStore
	logger *log.Logger
}

// NewRunner creates an ingestion runner.
func NewRunner(source Source, store storage.PurchaseStore, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{source: source, store: store, logger: logger}
}

// Run converts and stores every record. Individual bad records are logged
// and counted, not fatal; only source or storage failures abort the run.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	records, err := r.source.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	stats := &Stats{Read: len(records)}
	for i, rec := range records {
		p, warnings, err := rec.ToPurchase()
		if err != nil {
			stats.Invalid++
			r.logger.Printf("record %d skipped: %v", i, err)
			continue
		}
		for _, w := range warnings {
			stats.Warnings++
			r.logger.Printf("record %d: %s", i, w)
		}

		if err := r.store.Insert(ctx, p); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				stats.Duplicates++
				continue
			}
			return stats, fmt.Errorf("store record %d: %w", i, err)
		}
		stats.Inserted++
	}

	r.logger.Printf("ingestion done: read=%d inserted=%d duplicates=%d invalid=%d warnings=%d",
		stats.Read, stats.Inserted, stats.Duplicates, stats.Invalid, stats.Warnings)
	return stats, nil
}
