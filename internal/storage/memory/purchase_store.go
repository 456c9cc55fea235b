package memory

import (
	"context"
	"sync"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/idhash"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// PurchaseStore is an in-memory implementation of storage.PurchaseStore.
type PurchaseStore struct {
	mu   sync.RWMutex
	ids  map[string]struct{}
	rows []*domain.Purchase // insertion order
}

// NewPurchaseStore creates a new in-memory purchase store.
func NewPurchaseStore() *PurchaseStore {
	return &PurchaseStore{ids: make(map[string]struct{})}
}

// Compile-time interface check.
var _ storage.PurchaseStore = (*PurchaseStore)(nil)

// Insert adds a purchase. Returns ErrDuplicateKey if the ID exists.
func (s *PurchaseStore) Insert(_ context.Context, p *domain.Purchase) error {
	if p == nil || p.Date == "" || p.AmountBTC <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := idhash.PurchaseID(p)
	if _, exists := s.ids[id]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation.
	row := *p
	s.ids[id] = struct{}{}
	s.rows = append(s.rows, &row)
	return nil
}

// InsertBulk adds multiple purchases atomically.
func (s *PurchaseStore) InsertBulk(_ context.Context, purchases []*domain.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(purchases))
	for i, p := range purchases {
		if p == nil || p.Date == "" || p.AmountBTC <= 0 {
			return storage.ErrInvalidInput
		}
		ids[i] = idhash.PurchaseID(p)
		if _, exists := s.ids[ids[i]]; exists {
			return storage.ErrDuplicateKey
		}
	}
	// Reject intra-batch duplicates before committing anything.
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return storage.ErrDuplicateKey
		}
		seen[id] = struct{}{}
	}

	for i, p := range purchases {
		row := *p
		s.ids[ids[i]] = struct{}{}
		s.rows = append(s.rows, &row)
	}
	return nil
}

// GetAll retrieves every purchase, date ASC, insertion order on ties.
func (s *PurchaseStore) GetAll(_ context.Context) ([]*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedCopies(s.rows, nil), nil
}

// GetByExchange retrieves purchases for one exchange, same ordering.
func (s *PurchaseStore) GetByExchange(_ context.Context, exchange string) ([]*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedCopies(s.rows, func(p *domain.Purchase) bool {
		return p.Exchange == exchange
	}), nil
}

// Count returns the number of stored purchases.
func (s *PurchaseStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// sortedCopies filters, copies and date-sorts rows. The insertion slice is
// already in arrival order, so the stable sort preserves it on date ties.
func sortedCopies(rows []*domain.Purchase, keep func(*domain.Purchase) bool) []*domain.Purchase {
	var filtered []*domain.Purchase
	for _, p := range rows {
		if keep == nil || keep(p) {
			row := *p
			filtered = append(filtered, &row)
		}
	}
	return domain.SortChronological(filtered)
}
