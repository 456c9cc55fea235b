package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// PerformanceStore implements storage.PerformanceStore using ClickHouse.
// MergeTree does not enforce uniqueness, so series identity is checked
// explicitly before inserting.
type PerformanceStore struct {
	conn *Conn
}

// NewPerformanceStore creates a new PerformanceStore.
func NewPerformanceStore(conn *Conn) *PerformanceStore {
	return &PerformanceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PerformanceStore = (*PerformanceStore)(nil)

// InsertSeries appends every point of one computed series.
func (s *PerformanceStore) InsertSeries(ctx context.Context, seriesID string, computedAt time.Time, points []*domain.PerformancePoint) error {
	if seriesID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, seriesID)
	if err != nil {
		return fmt.Errorf("check series exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO performance_points (
			series_id, computed_at, purchase_index, date,
			amount_btc, price_at_buy,
			running_btc, running_invested, running_fees,
			mark_to_market_price, mark_to_market_value, mark_to_market_pnl, mark_to_market_pnl_percent,
			to_date_price, to_date_value, to_date_pnl, to_date_pnl_percent
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			seriesID, computedAt, uint32(p.PurchaseIndex), p.Date,
			p.AmountBTC, p.PriceAtBuy,
			p.RunningBTC, p.RunningInvested, p.RunningFees,
			p.MarkToMarketPrice, p.MarkToMarketValue, p.MarkToMarketPnL, p.MarkToMarketPnLPercent,
			p.ToDatePrice, p.ToDateValue, p.ToDatePnL, p.ToDatePnLPercent,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetSeries retrieves a series ordered by purchase index ASC.
func (s *PerformanceStore) GetSeries(ctx context.Context, seriesID string) ([]*domain.PerformancePoint, error) {
	query := `
		SELECT purchase_index, date,
			amount_btc, price_at_buy,
			running_btc, running_invested, running_fees,
			mark_to_market_price, mark_to_market_value, mark_to_market_pnl, mark_to_market_pnl_percent,
			to_date_price, to_date_value, to_date_pnl, to_date_pnl_percent
		FROM performance_points
		WHERE series_id = ?
		ORDER BY purchase_index ASC
	`

	rows, err := s.conn.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var points []*domain.PerformancePoint
	for rows.Next() {
		var p domain.PerformancePoint
		var purchaseIndex uint32

		err := rows.Scan(
			&purchaseIndex, &p.Date,
			&p.AmountBTC, &p.PriceAtBuy,
			&p.RunningBTC, &p.RunningInvested, &p.RunningFees,
			&p.MarkToMarketPrice, &p.MarkToMarketValue, &p.MarkToMarketPnL, &p.MarkToMarketPnLPercent,
			&p.ToDatePrice, &p.ToDateValue, &p.ToDatePnL, &p.ToDatePnLPercent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan performance point row: %w", err)
		}

		p.PurchaseIndex = int(purchaseIndex)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance point rows: %w", err)
	}

	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}

	return points, nil
}

// exists checks whether any row carries the series ID.
func (s *PerformanceStore) exists(ctx context.Context, seriesID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM performance_points WHERE series_id = ?`, seriesID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
