// Package session holds the accumulation layer: measurement records merged
// from one or many import batches, keyed by measurement item.
//
// A Store is an explicit session object; independent sessions (and tests)
// can coexist in one process. Accumulation is append-only: importing the
// same folder twice duplicates its records unless the caller resets first.
package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	apperrors "mdacli/internal/errors"
	"mdacli/internal/stats"
	"mdacli/pkg/contracts/domain"
)

// itemSeries is the per-item unit: the ordered records (insertion order =
// arrival order across batches) plus the cached derived statistics. The
// cache is recomputed eagerly on every merge so readers never see a stale
// value; it is never the source of truth.
type itemSeries struct {
	records []domain.MeasurementRecord
	stats   domain.ItemStatistics
}

// Store accumulates records across import batches. A single coarse RWMutex
// serializes writers against readers; batch imports are infrequent enough
// that per-item locking buys nothing. Readers never observe a partially
// appended series.
type Store struct {
	mu sync.RWMutex

	engine      *stats.Engine
	logger      *slog.Logger
	series      map[string]*itemSeries
	batches     []domain.ImportBatch
	nextBatchID int64
}

// NewStore creates an empty session store.
func NewStore(engine *stats.Engine, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		engine:      engine,
		logger:      logger,
		series:      make(map[string]*itemSeries),
		nextBatchID: 1,
	}
}

// BeginBatch allocates the next monotonic batch ID and registers the
// batch's metadata for traceability.
func (s *Store) BeginBatch(sourcePath string, fileCount int) domain.ImportBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := domain.ImportBatch{
		BatchID:    s.nextBatchID,
		SourcePath: sourcePath,
		FileCount:  fileCount,
		ImportedAt: time.Now(),
	}
	s.nextBatchID++
	s.batches = append(s.batches, batch)
	return batch
}

// Merge appends records to their item series in the given order, creating
// series as needed, and recomputes the cached statistics of every touched
// item. The whole merge is atomic from a concurrent reader's point of
// view. Returns the number of records merged.
func (s *Store) Merge(batch domain.ImportBatch, records []domain.MeasurementRecord) int {
	if len(records) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, record := range records {
		record.SourceBatchID = batch.BatchID
		series, ok := s.series[record.ItemName]
		if !ok {
			series = &itemSeries{}
			s.series[record.ItemName] = series
		}
		series.records = append(series.records, record)
		touched[record.ItemName] = struct{}{}
	}

	for name := range touched {
		series := s.series[name]
		series.stats = s.engine.Compute(name, series.records)
	}

	s.logger.Debug("batch records merged",
		slog.Int64("batch_id", batch.BatchID),
		slog.Int("record_count", len(records)),
		slog.Int("items_touched", len(touched)))

	return len(records)
}

// Reset clears all series and batches for a fresh, non-accumulating
// analysis. Batch IDs keep climbing so old results stay distinguishable.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = make(map[string]*itemSeries)
	s.batches = nil
	s.logger.Info("session store reset")
}

// ListItems returns all item names in natural sort order ("2" before
// "10", "A2" before "A10"), matching how inspection plans number items.
func (s *Store) ListItems() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
	return names
}

// GetStatistics returns the cached statistics for one item.
func (s *Store) GetStatistics(itemName string) (domain.ItemStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[itemName]
	if !ok {
		return domain.ItemStatistics{}, apperrors.NewNotFoundError("measurement item").
			WithContext("item", itemName)
	}
	return series.stats, nil
}

// GetRecords returns a copy of one item's accumulated records in arrival
// order, for trend and histogram rendering.
func (s *Store) GetRecords(itemName string) ([]domain.MeasurementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[itemName]
	if !ok {
		return nil, apperrors.NewNotFoundError("measurement item").
			WithContext("item", itemName)
	}
	out := make([]domain.MeasurementRecord, len(series.records))
	copy(out, series.records)
	return out, nil
}

// Snapshot returns the statistics of every item under one consistent read,
// in natural item order. Export derives deterministically from this.
func (s *Store) Snapshot() []domain.ItemStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})

	out := make([]domain.ItemStatistics, len(names))
	for i, name := range names {
		out[i] = s.series[name].stats
	}
	return out
}

// Batches returns the metadata of every import batch in this session.
func (s *Store) Batches() []domain.ImportBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ImportBatch, len(s.batches))
	copy(out, s.batches)
	return out
}
