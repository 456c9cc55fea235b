// Package portfolio reduces a purchase set and a current price into a
// portfolio metrics snapshot. The computation is pure: it performs no I/O,
// raises no errors for malformed optional fields, and recomputes from
// scratch on every call.
package portfolio

import (
	"sort"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/fx"
)

// Options configures a metrics computation.
type Options struct {
	FX    fx.Options
	Basis domain.Basis
}

// Compute builds a PortfolioMetrics snapshot from purchases and a current
// price denominated in currentPriceCurrency. Empty input yields the defined
// zero snapshot. Rows with missing FX data degrade to the legacy USD basis
// individually; a single bad rate never aborts the computation.
func Compute(purchases []*domain.Purchase, currentPrice float64, currentPriceCurrency string, opts Options) *domain.PortfolioMetrics {
	basis := opts.Basis.Normalize()
	target := opts.FX.Target()

	m := &domain.PortfolioMetrics{
		TargetFiat:          target,
		Basis:               basis,
		ByExchange:          make(map[string]*domain.ExchangeBreakdown),
		ByType:              make(map[string]int),
		ByCurrency:          make(map[string]*domain.CurrencyBreakdown),
		PrimaryFiatCurrency: target,
	}
	if len(purchases) == 0 {
		return m
	}

	sorted := domain.SortChronological(purchases)

	var warnings []string
	timezones := make(map[string]int)
	var extremes extremeTracker

	for _, p := range sorted {
		cost, w := fx.TryResolveCost(p, opts.FX)
		warnings = append(warnings, w...)
		fee, w := fx.TryResolveFee(p, opts.FX)
		warnings = append(warnings, w...)

		amount := fx.FiniteOr(p.AmountBTC, 0)
		m.TotalBTC += amount
		m.TotalCostExclFees += cost
		m.TotalFees += fee

		exchange := p.Exchange
		if exchange == "" {
			exchange = p.Description
		}
		if exchange == "" {
			exchange = "Unknown"
		}
		eb := m.ByExchange[exchange]
		if eb == nil {
			eb = &domain.ExchangeBreakdown{}
			m.ByExchange[exchange] = eb
		}
		eb.Count++
		eb.TotalBTC += amount
		eb.TotalFiat += cost

		txType := p.Type
		if txType == "" {
			txType = "Purchase"
		}
		m.ByType[txType]++

		currency := fx.NormalizeCurrency(p.FiatCurrency)
		if currency == "" {
			currency = fx.NormalizeCurrency(p.CurrencySent)
		}
		if currency == "" {
			currency = "USD"
		}
		cb := m.ByCurrency[currency]
		if cb == nil {
			cb = &domain.CurrencyBreakdown{}
			m.ByCurrency[currency] = cb
		}
		cb.Count++
		cb.TotalFiat += cost

		if p.TransactionHash != "" {
			m.HasTransactionHashes = true
		}
		if p.Address != "" {
			m.HasAddresses = true
		}
		if p.Timezone != "" {
			timezones[p.Timezone]++
		}

		extremes.observe(p, amount, cost)
	}

	for _, eb := range m.ByExchange {
		if eb.TotalBTC > 0 {
			eb.AvgPrice = eb.TotalFiat / eb.TotalBTC
		}
	}

	m.PurchaseCount = len(sorted)
	m.FirstPurchaseDate = sorted[0].Date
	m.LastPurchaseDate = sorted[len(sorted)-1].Date

	m.TotalInvested = m.TotalCostExclFees
	if basis == domain.BasisEffective {
		m.TotalInvested += m.TotalFees
	}
	if m.TotalBTC > 0 {
		m.AvgCostExecution = m.TotalCostExclFees / m.TotalBTC
		m.AvgCostEffective = (m.TotalCostExclFees + m.TotalFees) / m.TotalBTC
	}
	if basis == domain.BasisEffective {
		m.AvgCost = m.AvgCostEffective
	} else {
		m.AvgCost = m.AvgCostExecution
	}

	price, w := fx.TryConvertPrice(currentPrice, currentPriceCurrency, opts.FX)
	warnings = append(warnings, w...)
	m.CurrentPrice = price
	m.CurrentValue = m.TotalBTC * price
	m.UnrealizedPnL = m.CurrentValue - m.TotalInvested
	m.UnrealizedPnLPercent = percentOf(m.UnrealizedPnL, m.TotalInvested)

	m.PrimaryFiatCurrency = primaryCurrency(m.ByCurrency, target)
	m.MostUsedTimezone = mostUsed(timezones)
	m.LargestByBTC = extremes.largestBTC
	m.SmallestByBTC = extremes.smallestBTC
	m.LargestByFiat = extremes.largestFiat
	m.SmallestByFiat = extremes.smallestFiat
	m.Warnings = dedupe(warnings)

	return m
}

// percentOf returns pnl/base*100, guarded against division by zero.
func percentOf(pnl, base float64) float64 {
	if base == 0 {
		return 0
	}
	return pnl / base * 100
}

// extremeTracker keeps the largest/smallest purchase by BTC amount and by
// resolved fiat cost. Strict comparisons keep the first occurrence in
// chronological order on ties.
type extremeTracker struct {
	largestBTC   *domain.PurchaseExtreme
	smallestBTC  *domain.PurchaseExtreme
	largestFiat  *domain.PurchaseExtreme
	smallestFiat *domain.PurchaseExtreme
}

func (e *extremeTracker) observe(p *domain.Purchase, amount, cost float64) {
	entry := &domain.PurchaseExtreme{Date: p.Date, AmountBTC: amount, FiatCost: cost}
	if e.largestBTC == nil || amount > e.largestBTC.AmountBTC {
		e.largestBTC = entry
	}
	if e.smallestBTC == nil || amount < e.smallestBTC.AmountBTC {
		e.smallestBTC = entry
	}
	if e.largestFiat == nil || cost > e.largestFiat.FiatCost {
		e.largestFiat = entry
	}
	if e.smallestFiat == nil || cost < e.smallestFiat.FiatCost {
		e.smallestFiat = entry
	}
}

// primaryCurrency is the currency-of-record group with the largest
// accumulated fiat amount. Keys are walked in sorted order so ties resolve
// deterministically.
func primaryCurrency(groups map[string]*domain.CurrencyBreakdown, fallback string) string {
	if len(groups) == 0 {
		return fallback
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if groups[k].TotalFiat > groups[best].TotalFiat {
			best = k
		}
	}
	return best
}

// mostUsed returns the mode of the counted values, or "" when none were
// seen. Ties resolve to the lexically smallest key for determinism.
func mostUsed(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// dedupe removes repeated warnings while preserving first-seen order.
func dedupe(warnings []string) []string {
	if len(warnings) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(warnings))
	out := warnings[:0]
	for _, w := range warnings {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
