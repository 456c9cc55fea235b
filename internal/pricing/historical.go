package pricing

import (
	"errors"
	"sort"

	"github.com/bastian110/bitcoin-dca-tracker/internal/performance"
)

// ErrNoPriceData is returned when a lookup hits an empty table.
var ErrNoPriceData = errors.New("no price data available")

// pricePoint is one dated observation, date in YYYY-MM-DD form.
type pricePoint struct {
	date  string
	price float64
}

// PriceTable answers "what did BTC cost on this day" from a fixed set of
// daily closes. Lookups find the closest observation at or before the
// target day; a target before the first observation gets the first one.
type PriceTable struct {
	points []pricePoint // sorted by date ASC
}

// NewPriceTable builds a table from daily closes keyed by YYYY-MM-DD.
// Non-positive prices are skipped.
func NewPriceTable(daily map[string]float64) *PriceTable {
	points := make([]pricePoint, 0, len(daily))
	for date, price := range daily {
		if len(date) < 10 || price <= 0 {
			continue
		}
		points = append(points, pricePoint{date: date[:10], price: price})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].date < points[j].date
	})
	return &PriceTable{points: points}
}

// At returns the price at or before the target date. Timestamps are
// truncated to their day. Returns ErrNoPriceData when the table is empty.
func (t *PriceTable) At(date string) (float64, error) {
	if len(t.points) == 0 {
		return 0, ErrNoPriceData
	}
	if len(date) >= 10 {
		date = date[:10]
	}

	for i := len(t.points) - 1; i >= 0; i-- {
		if t.points[i].date <= date {
			return t.points[i].price, nil
		}
	}

	// No observation before target: use first available.
	return t.points[0].price, nil
}

// Func adapts the table to the engine's historical lookup signature.
// Lookup failures yield 0, which the engine treats as no-data.
func (t *PriceTable) Func() performance.HistoricalPriceFunc {
	return func(date string) float64 {
		price, err := t.At(date)
		if err != nil {
			return 0
		}
		return price
	}
}
