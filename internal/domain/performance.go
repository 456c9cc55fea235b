package domain

// ValuationMode selects the primary valuation perspective of a
// performance computation.
type ValuationMode string

const (
	// ModeToDate values every point's holdings at the current price.
	ModeToDate ValuationMode = "to_date"
	// ModeMarkToMarket values each point's holdings at the price that
	// prevailed on that point's date. Requires a historical price lookup.
	ModeMarkToMarket ValuationMode = "mark_to_market"
)

// Normalize returns the mode with the default applied.
func (m ValuationMode) Normalize() ValuationMode {
	if m == ModeMarkToMarket {
		return ModeMarkToMarket
	}
	return ModeToDate
}

// PerformancePoint is one step of the running performance series, emitted
// per purchase in chronological order. Both valuation perspectives are
// carried on every point; they derive from the same running totals.
type PerformancePoint struct {
	PurchaseIndex int    `json:"purchase_index"` // 1-based position in chronological order
	Date          string `json:"date"`

	AmountBTC  float64 `json:"amount_btc"`
	PriceAtBuy float64 `json:"price_at_buy"` // this row's fee-excluded execution price, target fiat

	RunningBTC      float64 `json:"running_btc"`
	RunningInvested float64 `json:"running_invested"` // per selected basis
	RunningFees     float64 `json:"running_fees"`

	MarkToMarketPrice      float64 `json:"mark_to_market_price"`
	MarkToMarketValue      float64 `json:"mark_to_market_value"`
	MarkToMarketPnL        float64 `json:"mark_to_market_pnl"`
	MarkToMarketPnLPercent float64 `json:"mark_to_market_pnl_percent"`

	ToDatePrice      float64 `json:"to_date_price"`
	ToDateValue      float64 `json:"to_date_value"`
	ToDatePnL        float64 `json:"to_date_pnl"`
	ToDatePnLPercent float64 `json:"to_date_pnl_percent"`
}
