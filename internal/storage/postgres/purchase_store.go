package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/idhash"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// PurchaseStore implements storage.PurchaseStore using PostgreSQL.
type PurchaseStore struct {
	pool *Pool
}

// NewPurchaseStore creates a new PurchaseStore.
func NewPurchaseStore(pool *Pool) *PurchaseStore {
	return &PurchaseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PurchaseStore = (*PurchaseStore)(nil)

const purchaseInsertQuery = `
	INSERT INTO purchases (
		purchase_id, date, amount_btc, price_usd, fee_usd,
		exchange, notes, type, timezone,
		amount_received, currency_received, amount_sent, currency_sent,
		fee_amount, fee_currency, fee_token_price,
		description, address, transaction_hash, external_id,
		fiat_amount, fiat_currency, price_fiat, fee_fiat, effective_price
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16,
		$17, $18, $19, $20,
		$21, $22, $23, $24, $25
	)
`

const purchaseSelectColumns = `
	date, amount_btc, price_usd, fee_usd,
	exchange, notes, type, timezone,
	amount_received, currency_received, amount_sent, currency_sent,
	fee_amount, fee_currency, fee_token_price,
	description, address, transaction_hash, external_id,
	fiat_amount, fiat_currency, price_fiat, fee_fiat, effective_price
`

func purchaseInsertArgs(p *domain.Purchase) []any {
	return []any{
		idhash.PurchaseID(p), p.Date, p.AmountBTC, p.PriceUSD, p.FeeUSD,
		p.Exchange, p.Notes, p.Type, p.Timezone,
		p.AmountReceived, p.CurrencyReceived, p.AmountSent, p.CurrencySent,
		p.FeeAmount, p.FeeCurrency, p.FeeTokenPrice,
		p.Description, p.Address, p.TransactionHash, p.ExternalID,
		p.FiatAmount, p.FiatCurrency, p.PriceFiat, p.FeeFiat, p.EffectivePrice,
	}
}

// Insert adds a purchase. Returns ErrDuplicateKey if the ID exists.
func (s *PurchaseStore) Insert(ctx context.Context, p *domain.Purchase) error {
	if p == nil || p.Date == "" || p.AmountBTC <= 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, purchaseInsertQuery, purchaseInsertArgs(p)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// InsertBulk adds multiple purchases atomically. Fails entire batch on any duplicate.
func (s *PurchaseStore) InsertBulk(ctx context.Context, purchases []*domain.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}

	for _, p := range purchases {
		if p == nil || p.Date == "" || p.AmountBTC <= 0 {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range purchases {
		_, err := tx.Exec(ctx, purchaseInsertQuery, purchaseInsertArgs(p)...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert purchase in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves every purchase, ordered by date ASC then by insertion
// order. Dates are free-form strings, so rows come back in insertion order
// and the chronological sort happens in Go.
func (s *PurchaseStore) GetAll(ctx context.Context) ([]*domain.Purchase, error) {
	query := `SELECT ` + purchaseSelectColumns + ` FROM purchases ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all purchases: %w", err)
	}
	defer rows.Close()

	purchases, err := scanPurchases(rows)
	if err != nil {
		return nil, err
	}
	return domain.SortChronological(purchases), nil
}

// GetByExchange retrieves purchases for one exchange, same ordering.
func (s *PurchaseStore) GetByExchange(ctx context.Context, exchange string) ([]*domain.Purchase, error) {
	query := `SELECT ` + purchaseSelectColumns + ` FROM purchases WHERE exchange = $1 ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, exchange)
	if err != nil {
		return nil, fmt.Errorf("get purchases by exchange: %w", err)
	}
	defer rows.Close()

	purchases, err := scanPurchases(rows)
	if err != nil {
		return nil, err
	}
	return domain.SortChronological(purchases), nil
}

// Count returns the number of stored purchases.
func (s *PurchaseStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM purchases`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count purchases: %w", err)
	}
	return count, nil
}

// scanPurchases scans multiple rows into a slice of Purchase.
func scanPurchases(rows pgx.Rows) ([]*domain.Purchase, error) {
	var purchases []*domain.Purchase

	for rows.Next() {
		var p domain.Purchase

		err := rows.Scan(
			&p.Date, &p.AmountBTC, &p.PriceUSD, &p.FeeUSD,
			&p.Exchange, &p.Notes, &p.Type, &p.Timezone,
			&p.AmountReceived, &p.CurrencyReceived, &p.AmountSent, &p.CurrencySent,
			&p.FeeAmount, &p.FeeCurrency, &p.FeeTokenPrice,
			&p.Description, &p.Address, &p.TransactionHash, &p.ExternalID,
			&p.FiatAmount, &p.FiatCurrency, &p.PriceFiat, &p.FeeFiat, &p.EffectivePrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}

		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}

	return purchases, nil
}
