package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// RateStore is an in-memory implementation of storage.RateStore.
type RateStore struct {
	mu   sync.RWMutex
	data map[rateKey]*domain.FXRate
}

type rateKey struct {
	from string
	to   string
	date string
}

// NewRateStore creates a new in-memory FX-rate store.
func NewRateStore() *RateStore {
	return &RateStore{data: make(map[rateKey]*domain.FXRate)}
}

// Compile-time interface check.
var _ storage.RateStore = (*RateStore)(nil)

// Insert adds a rate observation. Returns ErrDuplicateKey if the
// (from, to, date) key exists.
func (s *RateStore) Insert(_ context.Context, r *domain.FXRate) error {
	if r == nil || r.FromCurrency == "" || r.ToCurrency == "" || r.Rate <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(r)
}

// InsertBulk adds multiple rate observations atomically.
func (s *RateStore) InsertBulk(_ context.Context, rates []*domain.FXRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rates {
		if r == nil || r.FromCurrency == "" || r.ToCurrency == "" || r.Rate <= 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[keyOf(r)]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, r := range rates {
		if err := s.insertLocked(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *RateStore) insertLocked(r *domain.FXRate) error {
	key := keyOf(r)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	row := *r
	s.data[key] = &row
	return nil
}

// GetAll retrieves every stored rate, ordered by (from, to, date).
func (s *RateStore) GetAll(_ context.Context) ([]*domain.FXRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.FXRate, 0, len(s.data))
	for _, r := range s.data {
		row := *r
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromCurrency != out[j].FromCurrency {
			return out[i].FromCurrency < out[j].FromCurrency
		}
		if out[i].ToCurrency != out[j].ToCurrency {
			return out[i].ToCurrency < out[j].ToCurrency
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

func keyOf(r *domain.FXRate) rateKey {
	return rateKey{from: r.FromCurrency, to: r.ToCurrency, date: r.Date}
}
