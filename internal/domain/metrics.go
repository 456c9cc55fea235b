package domain

// ExchangeBreakdown aggregates the purchases routed through one exchange.
type ExchangeBreakdown struct {
	Count     int     `json:"count"`
	TotalBTC  float64 `json:"total_btc"`
	TotalFiat float64 `json:"total_fiat"`
	AvgPrice  float64 `json:"avg_price"` // total fiat / total BTC, 0 when no BTC
}

// CurrencyBreakdown aggregates purchases by their currency of record.
type CurrencyBreakdown struct {
	Count     int     `json:"count"`
	TotalFiat float64 `json:"total_fiat"`
}

// PurchaseExtreme identifies a largest/smallest purchase.
type PurchaseExtreme struct {
	Date      string  `json:"date"`
	AmountBTC float64 `json:"amount_btc"`
	FiatCost  float64 `json:"fiat_cost"`
}

// PortfolioMetrics is a point-in-time snapshot derived from a purchase set
// and a current price. It is recomputed from scratch on every call and
// never mutated in place.
type PortfolioMetrics struct {
	TargetFiat string `json:"target_fiat"`
	Basis      Basis  `json:"basis"`

	TotalBTC          float64 `json:"total_btc"`
	TotalInvested     float64 `json:"total_invested"` // per selected basis
	TotalCostExclFees float64 `json:"total_cost_excl_fees"`
	TotalFees         float64 `json:"total_fees"`

	// Both averages are always exposed, independent of the selected basis.
	AvgCostExecution float64 `json:"avg_cost_execution"`
	AvgCostEffective float64 `json:"avg_cost_effective"`
	AvgCost          float64 `json:"avg_cost"` // per selected basis

	CurrentPrice         float64 `json:"current_price"` // in target fiat
	CurrentValue         float64 `json:"current_value"`
	UnrealizedPnL        float64 `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64 `json:"unrealized_pnl_percent"`

	PurchaseCount     int    `json:"purchase_count"`
	FirstPurchaseDate string `json:"first_purchase_date"`
	LastPurchaseDate  string `json:"last_purchase_date"`

	ByExchange          map[string]*ExchangeBreakdown `json:"by_exchange"`
	ByType              map[string]int                `json:"by_type"`
	ByCurrency          map[string]*CurrencyBreakdown `json:"by_currency"`
	PrimaryFiatCurrency string                        `json:"primary_fiat_currency"`

	HasTransactionHashes bool   `json:"has_transaction_hashes"`
	HasAddresses         bool   `json:"has_addresses"`
	MostUsedTimezone     string `json:"most_used_timezone,omitempty"`

	LargestByBTC   *PurchaseExtreme `json:"largest_by_btc,omitempty"`
	SmallestByBTC  *PurchaseExtreme `json:"smallest_by_btc,omitempty"`
	LargestByFiat  *PurchaseExtreme `json:"largest_by_fiat,omitempty"`
	SmallestByFiat *PurchaseExtreme `json:"smallest_by_fiat,omitempty"`

	// Non-fatal degradation notices (e.g. FX fallbacks), deduplicated.
	Warnings []string `json:"warnings,omitempty"`
}
