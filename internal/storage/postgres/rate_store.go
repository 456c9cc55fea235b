package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// RateStore implements storage.RateStore using PostgreSQL.
type RateStore struct {
	pool *Pool
}

// NewRateStore creates a new RateStore.
func NewRateStore(pool *Pool) *RateStore {
	return &RateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RateStore = (*RateStore)(nil)

const rateInsertQuery = `
	INSERT INTO fx_rates (from_currency, to_currency, rate_date, rate)
	VALUES ($1, $2, $3, $4)
`

// Insert adds a rate observation. Returns ErrDuplicateKey if the
// (from, to, date) key exists.
func (s *RateStore) Insert(ctx context.Context, r *domain.FXRate) error {
	if r == nil || r.FromCurrency == "" || r.ToCurrency == "" || r.Rate <= 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, rateInsertQuery, r.FromCurrency, r.ToCurrency, r.Date, r.Rate)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert fx rate: %w", err)
	}
	return nil
}

// InsertBulk adds multiple rate observations atomically.
func (s *RateStore) InsertBulk(ctx context.Context, rates []*domain.FXRate) error {
	if len(rates) == 0 {
		return nil
	}

	for _, r := range rates {
		if r == nil || r.FromCurrency == "" || r.ToCurrency == "" || r.Rate <= 0 {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range rates {
		_, err := tx.Exec(ctx, rateInsertQuery, r.FromCurrency, r.ToCurrency, r.Date, r.Rate)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert fx rate in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves every stored rate, ordered by (from, to, date).
func (s *RateStore) GetAll(ctx context.Context) ([]*domain.FXRate, error) {
	query := `
		SELECT from_currency, to_currency, rate_date, rate
		FROM fx_rates
		ORDER BY from_currency ASC, to_currency ASC, rate_date ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all fx rates: %w", err)
	}
	defer rows.Close()

	return scanRates(rows)
}

// scanRates scans multiple rows into a slice of FXRate.
func scanRates(rows pgx.Rows) ([]*domain.FXRate, error) {
	var rates []*domain.FXRate

	for rows.Next() {
		var r domain.FXRate

		err := rows.Scan(&r.FromCurrency, &r.ToCurrency, &r.Date, &r.Rate)
		if err != nil {
			return nil, fmt.Errorf("scan fx rate row: %w", err)
		}

		rates = append(rates, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fx rate rows: %w", err)
	}

	return rates, nil
}
