package domain

// FXRate is one stored exchange-rate observation.
type FXRate struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Date         string  `json:"date,omitempty"` // YYYY-MM-DD; empty = undated/latest
	Rate         float64 `json:"rate"`
}
