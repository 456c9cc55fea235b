package storage

import (
	"context"
	"time"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// PurchaseStore provides access to purchase-record storage. Records are
// keyed by their deterministic idhash ID; history is append-only.
type PurchaseStore interface {
	// Insert adds a purchase. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, p *domain.Purchase) error

	// InsertBulk adds multiple purchases atomically. Fails the entire
	// batch on any duplicate.
	InsertBulk(ctx context.Context, purchases []*domain.Purchase) error

	// GetAll retrieves every purchase, ordered by date ASC then by
	// insertion order.
	GetAll(ctx context.Context) ([]*domain.Purchase, error)

	// GetByExchange retrieves purchases for one exchange, same ordering.
	GetByExchange(ctx context.Context, exchange string) ([]*domain.Purchase, error)

	// Count returns the number of stored purchases.
	Count(ctx context.Context) (int, error)
}

// RateStore provides access to FX-rate storage.
type RateStore interface {
	// Insert adds a rate observation. Returns ErrDuplicateKey if the
	// (from, to, date) key exists.
	Insert(ctx context.Context, r *domain.FXRate) error

	// InsertBulk adds multiple rate observations atomically.
	InsertBulk(ctx context.Context, rates []*domain.FXRate) error

	// GetAll retrieves every stored rate, ordered by (from, to, date).
	// Callers build an in-memory fx.Table from the result so the engine
	// stays synchronous.
	GetAll(ctx context.Context) ([]*domain.FXRate, error)
}

// PerformanceStore archives computed performance series. Series are
// identified by an opaque ID (one per computation run).
type PerformanceStore interface {
	// InsertSeries appends every point of one computed series.
	InsertSeries(ctx context.Context, seriesID string, computedAt time.Time, points []*domain.PerformancePoint) error

	// GetSeries retrieves a series ordered by purchase index ASC.
	// Returns ErrNotFound when the series does not exist.
	GetSeries(ctx context.Context, seriesID string) ([]*domain.PerformancePoint, error)
}
