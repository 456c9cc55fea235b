// Package performance walks a chronologically sorted purchase sequence
// once and emits one performance point per purchase, carrying running
// totals and two valuation perspectives (mark-to-market and to-date).
package performance

import (
	"errors"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/fx"
)

// HistoricalPriceFunc returns the market price that prevailed on an ISO
// date string. Must be synchronous; any fetching happens before the engine
// is invoked.
type HistoricalPriceFunc func(date string) float64

// ErrHistoricalPriceRequired is returned when mark-to-market mode is
// requested without a historical price function. There is no numerically
// sensible fallback, so this fails fast instead of degrading.
var ErrHistoricalPriceRequired = errors.New("mark-to-market mode requires a historical price function")

// Options configures a performance computation.
type Options struct {
	FX    fx.Options
	Basis domain.Basis
	// Mode selects the primary valuation perspective. Defaults to to-date.
	Mode domain.ValuationMode
	// HistoricalPrice drives the mark-to-market perspective. Required when
	// Mode is mark-to-market; otherwise optional, with the row's own
	// execution price standing in when absent.
	HistoricalPrice HistoricalPriceFunc
}

// accumulator is the running state threaded through the fold.
type accumulator struct {
	btc          float64
	costExclFees float64
	fees         float64
}

// Compute emits the ordered performance series for a purchase sequence.
// Output order equals chronological input order; purchase indexes are
// 1-based. Empty input yields an empty sequence, not an error.
func Compute(purchases []*domain.Purchase, currentPrice float64, currentPriceCurrency string, opts Options) ([]*domain.PerformancePoint, error) {
	mode := opts.Mode.Normalize()
	if mode == domain.ModeMarkToMarket && opts.HistoricalPrice == nil {
		return nil, ErrHistoricalPriceRequired
	}

	points := make([]*domain.PerformancePoint, 0, len(purchases))
	if len(purchases) == 0 {
		return points, nil
	}

	basis := opts.Basis.Normalize()
	sorted := domain.SortChronological(purchases)

	// The current price converts into target fiat once and applies
	// uniformly to every point's running BTC.
	toDatePrice, _ := fx.TryConvertPrice(currentPrice, currentPriceCurrency, opts.FX)

	var acc accumulator
	for i, p := range sorted {
		cost, _ := fx.TryResolveCost(p, opts.FX)
		fee, _ := fx.TryResolveFee(p, opts.FX)
		amount := fx.FiniteOr(p.AmountBTC, 0)

		acc.btc += amount
		acc.costExclFees += cost
		acc.fees += fee

		invested := acc.costExclFees
		if basis == domain.BasisEffective {
			invested += acc.fees
		}

		// The row's own execution price: fee-excluded, in target fiat,
		// independent of the selected basis.
		priceAtBuy := 0.0
		if amount > 0 {
			priceAtBuy = cost / amount
		}

		mtmPrice := priceAtBuy
		if opts.HistoricalPrice != nil {
			mtmPrice = fx.FiniteOr(opts.HistoricalPrice(p.Date), 0)
		}

		mtmValue := acc.btc * mtmPrice
		toDateValue := acc.btc * toDatePrice

		points = append(points, &domain.PerformancePoint{
			PurchaseIndex: i + 1,
			Date:          p.Date,
			AmountBTC:     amount,
			PriceAtBuy:    priceAtBuy,

			RunningBTC:      acc.btc,
			RunningInvested: invested,
			RunningFees:     acc.fees,

			MarkToMarketPrice:      mtmPrice,
			MarkToMarketValue:      mtmValue,
			MarkToMarketPnL:        mtmValue - invested,
			MarkToMarketPnLPercent: percentOf(mtmValue-invested, invested),

			ToDatePrice:      toDatePrice,
			ToDateValue:      toDateValue,
			ToDatePnL:        toDateValue - invested,
			ToDatePnLPercent: percentOf(toDateValue-invested, invested),
		})
	}

	return points, nil
}

// percentOf returns pnl/base*100, guarded against division by zero.
func percentOf(pnl, base float64) float64 {
	if base == 0 {
		return 0
	}
	return pnl / base * 100
}
