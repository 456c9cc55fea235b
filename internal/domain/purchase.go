package domain

import (
	"sort"
	"time"
)

// Basis selects whether fees count toward invested cost.
type Basis string

const (
	// BasisExecution excludes fees: invested = traded amount only.
	BasisExecution Basis = "execution"
	// BasisEffective includes fees in invested cost.
	BasisEffective Basis = "effective"
)

// Normalize returns the basis with the documented default applied.
// Anything that is not explicitly "execution" is treated as "effective".
func (b Basis) Normalize() Basis {
	if b == BasisExecution {
		return BasisExecution
	}
	return BasisEffective
}

// Purchase is one normalized Bitcoin purchase record as produced by the
// ingestion layer. Records are immutable once constructed: the engine only
// reads them. Optional numeric fields use 0 as the absent value; every
// consumption rule is a "> 0" guard, so absent and zero are equivalent.
type Purchase struct {
	// Required fields.
	Date      string  `json:"date"`       // ISO-parseable timestamp
	AmountBTC float64 `json:"amount_btc"` // must be > 0
	PriceUSD  float64 `json:"price_usd"`  // legacy/fallback price basis, > 0

	// Optional enrichment fields.
	FeeUSD           float64 `json:"fee_usd,omitempty"`
	Exchange         string  `json:"exchange,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	Type             string  `json:"type,omitempty"`
	Timezone         string  `json:"timezone,omitempty"`
	AmountReceived   float64 `json:"amount_received,omitempty"`
	CurrencyReceived string  `json:"currency_received,omitempty"`
	AmountSent       float64 `json:"amount_sent,omitempty"`
	CurrencySent     string  `json:"currency_sent,omitempty"`
	FeeAmount        float64 `json:"fee_amount,omitempty"`
	FeeCurrency      string  `json:"fee_currency,omitempty"`
	FeeTokenPrice    float64 `json:"fee_token_price,omitempty"`
	Description      string  `json:"description,omitempty"`
	Address          string  `json:"address,omitempty"`
	TransactionHash  string  `json:"transaction_hash,omitempty"`
	ExternalID       string  `json:"external_id,omitempty"`

	// Normalized fiat fields.
	FiatAmount     float64 `json:"fiat_amount,omitempty"`
	FiatCurrency   string  `json:"fiat_currency,omitempty"`
	PriceFiat      float64 `json:"price_fiat,omitempty"`
	FeeFiat        float64 `json:"fee_fiat,omitempty"`
	EffectivePrice float64 `json:"effective_price,omitempty"`
}

// dateLayouts are the timestamp forms ingestion is allowed to emit.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a purchase date string. Returns the zero time and false
// when the string matches none of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortChronological returns a copy of purchases sorted by date ascending.
// The sort is stable: records with equal (or unparseable) dates keep their
// input order. Unparseable dates sort first.
func SortChronological(purchases []*Purchase) []*Purchase {
	sorted := make([]*Purchase, len(purchases))
	copy(sorted, purchases)

	keys := make([]time.Time, len(sorted))
	for i, p := range sorted {
		keys[i], _ = ParseDate(p.Date)
	}
	// Sorting indirects through the original positions so key lookup
	// stays aligned with the element being moved.
	idx := make([]int, len(sorted))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Before(keys[idx[b]])
	})

	out := make([]*Purchase, len(sorted))
	for i, j := range idx {
		out[i] = sorted[j]
	}
	return out
}
