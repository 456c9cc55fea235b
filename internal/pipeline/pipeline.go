// Package pipeline orchestrates one full snapshot run: load stored
// purchases and FX rates, compute portfolio metrics and the performance
// series, detect the currencies present, and optionally archive the
// series to a performance store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/fx"
	"github.com/bastian110/bitcoin-dca-tracker/internal/performance"
	"github.com/bastian110/bitcoin-dca-tracker/internal/portfolio"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// Result is the output of one snapshot run.
type Result struct {
	SeriesID   string    `json:"series_id"`
	ComputedAt time.Time `json:"computed_at"`

	Metrics    *domain.PortfolioMetrics   `json:"metrics"`
	Points     []*domain.PerformancePoint `json:"points"`
	Currencies []string                   `json:"currencies"`

	PurchaseCount int  `json:"purchase_count"`
	Archived      bool `json:"archived"`
}

// Snapshot computes portfolio metrics and the performance series from
// stored data. All inputs load up front; the computations themselves are
// synchronous and pure.
type Snapshot struct {
	purchaseStore    storage.PurchaseStore
	rateStore        storage.RateStore
	performanceStore storage.PerformanceStore // optional, enables archiving

	targetFiat      string
	basis           domain.Basis
	mode            domain.ValuationMode
	historicalPrice performance.HistoricalPriceFunc
	fallbackRates   fx.RateProvider

	clock func() time.Time // Injectable clock for deterministic output
}

// NewSnapshot creates a snapshot runner over the given stores.
func NewSnapshot(purchaseStore storage.PurchaseStore, rateStore storage.RateStore) *Snapshot {
	return &Snapshot{
		purchaseStore: purchaseStore,
		rateStore:     rateStore,
		targetFiat:    "USD",
		clock:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (s *Snapshot) WithClock(now func() time.Time) *Snapshot {
	s.clock = now
	return s
}

// WithPerformanceStore enables archiving of the computed series.
func (s *Snapshot) WithPerformanceStore(store storage.PerformanceStore) *Snapshot {
	s.performanceStore = store
	return s
}

// WithTargetFiat sets the currency every amount normalizes into.
func (s *Snapshot) WithTargetFiat(currency string) *Snapshot {
	s.targetFiat = currency
	return s
}

// WithBasis selects whether fees count toward invested cost.
func (s *Snapshot) WithBasis(basis domain.Basis) *Snapshot {
	s.basis = basis
	return s
}

// WithValuationMode selects the primary valuation perspective.
func (s *Snapshot) WithValuationMode(mode domain.ValuationMode) *Snapshot {
	s.mode = mode
	return s
}

// WithHistoricalPrices supplies the lookup that drives the mark-to-market
// perspective. Required when the mode is mark-to-market.
func (s *Snapshot) WithHistoricalPrices(fn performance.HistoricalPriceFunc) *Snapshot {
	s.historicalPrice = fn
	return s
}

// WithFallbackRates chains an extra rate provider behind the stored table,
// typically a static approximate-rate table.
func (s *Snapshot) WithFallbackRates(provider fx.RateProvider) *Snapshot {
	s.fallbackRates = provider
	return s
}

// Run executes one snapshot against the current price. currentPriceCurrency
// names the currency the price is quoted in; it converts into the target
// fiat through the stored rate table.
func (s *Snapshot) Run(ctx context.Context, currentPrice float64, currentPriceCurrency string) (*Result, error) {
	purchases, err := s.purchaseStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}

	rates, err := s.rateStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}

	provider := fx.RateProvider(fx.NewTable(rates))
	if s.fallbackRates != nil {
		provider = fx.Chain(provider, s.fallbackRates)
	}
	fxOpts := fx.Options{TargetFiat: s.targetFiat, Provider: provider}

	metrics := portfolio.Compute(purchases, currentPrice, currentPriceCurrency, portfolio.Options{
		FX:    fxOpts,
		Basis: s.basis,
	})

	points, err := performance.Compute(purchases, currentPrice, currentPriceCurrency, performance.Options{
		FX:              fxOpts,
		Basis:           s.basis,
		Mode:            s.mode,
		HistoricalPrice: s.historicalPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("compute performance: %w", err)
	}

	computedAt := s.clock()
	result := &Result{
		SeriesID:      seriesID(computedAt),
		ComputedAt:    computedAt,
		Metrics:       metrics,
		Points:        points,
		Currencies:    fx.DetectCurrencies(purchases),
		PurchaseCount: len(purchases),
	}

	if s.performanceStore != nil && len(points) > 0 {
		if err := s.performanceStore.InsertSeries(ctx, result.SeriesID, computedAt, points); err != nil {
			return nil, fmt.Errorf("archive series: %w", err)
		}
		result.Archived = true
	}

	return result, nil
}

// seriesID derives a series identifier from the computation time. One run
// per second is enough granularity for snapshot scheduling.
func seriesID(computedAt time.Time) string {
	return "run-" + computedAt.UTC().Format("20060102T150405Z")
}
