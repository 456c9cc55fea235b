package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// PerformanceStore is an in-memory implementation of
// storage.PerformanceStore.
type PerformanceStore struct {
	mu     sync.RWMutex
	series map[string][]*domain.PerformancePoint
}

// NewPerformanceStore creates a new in-memory performance archive.
func NewPerformanceStore() *PerformanceStore {
	return &PerformanceStore{series: make(map[string][]*domain.PerformancePoint)}
}

// Compile-time interface check.
var _ storage.PerformanceStore = (*PerformanceStore)(nil)

// InsertSeries appends every point of one computed series.
func (s *PerformanceStore) InsertSeries(_ context.Context, seriesID string, _ time.Time, points []*domain.PerformancePoint) error {
	if seriesID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.series[seriesID]; exists {
		return storage.ErrDuplicateKey
	}

	copies := make([]*domain.PerformancePoint, len(points))
	for i, pt := range points {
		row := *pt
		copies[i] = &row
	}
	s.series[seriesID] = copies
	return nil
}

// GetSeries retrieves a series ordered by purchase index ASC.
func (s *PerformanceStore) GetSeries(_ context.Context, seriesID string) ([]*domain.PerformancePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, exists := s.series[seriesID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := make([]*domain.PerformancePoint, len(points))
	for i, pt := range points {
		row := *pt
		out[i] = &row
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PurchaseIndex < out[j].PurchaseIndex
	})
	return out, nil
}
