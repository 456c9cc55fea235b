// Package fx resolves purchase costs and fees into a single target fiat
// currency. It owns the rate-provider capability, the strict and graceful
// resolution entry points, and fiat currency detection.
package fx

import (
	"strings"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// RateProvider supplies fiat exchange rates. Implementations must be
// synchronous and side-effect free from the engine's perspective; any
// fetching or caching happens before the provider is handed in.
//
// asOf is an ISO date or timestamp string; empty requests an undated
// (latest) rate. Providers report absence with ok=false, they never error.
type RateProvider interface {
	Rate(from, to, asOf string) (rate float64, ok bool)
}

// Pair is a directed currency pair.
type Pair struct {
	From string
	To   string
}

// StaticProvider is a fixed-rate table keyed by currency pair. Dates are
// ignored. Useful for tests and for explicit approximate-rate fallbacks
// chained behind a real provider.
type StaticProvider map[Pair]float64

// Rate returns the fixed rate for the pair, if present and positive.
func (s StaticProvider) Rate(from, to, _ string) (float64, bool) {
	r, ok := s[Pair{NormalizeCurrency(from), NormalizeCurrency(to)}]
	if !ok || r <= 0 {
		return 0, false
	}
	return r, true
}

// Chain combines providers: each lookup asks the providers in order and
// returns the first hit.
func Chain(providers ...RateProvider) RateProvider {
	return chainProvider(providers)
}

type chainProvider []RateProvider

func (c chainProvider) Rate(from, to, asOf string) (float64, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if r, ok := p.Rate(from, to, asOf); ok {
			return r, true
		}
	}
	return 0, false
}

// Table is an in-memory dated rate table built from stored FXRate rows.
// Dated lookups match on calendar day. Undated lookups prefer an explicit
// undated row and otherwise fall back to the most recent dated rate for
// the pair.
type Table struct {
	dated   map[Pair]map[string]float64 // day (YYYY-MM-DD) -> rate
	undated map[Pair]float64
	latest  map[Pair]string // most recent day present in dated
}

// NewTable builds a Table from rate rows. Later rows win on duplicates.
func NewTable(rates []*domain.FXRate) *Table {
	t := &Table{
		dated:   make(map[Pair]map[string]float64),
		undated: make(map[Pair]float64),
		latest:  make(map[Pair]string),
	}
	for _, r := range rates {
		if r == nil || r.Rate <= 0 {
			continue
		}
		pair := Pair{NormalizeCurrency(r.FromCurrency), NormalizeCurrency(r.ToCurrency)}
		day := DayKey(r.Date)
		if day == "" {
			t.undated[pair] = r.Rate
			continue
		}
		if t.dated[pair] == nil {
			t.dated[pair] = make(map[string]float64)
		}
		t.dated[pair][day] = r.Rate
		if day > t.latest[pair] {
			t.latest[pair] = day
		}
	}
	return t
}

// Rate implements RateProvider.
func (t *Table) Rate(from, to, asOf string) (float64, bool) {
	pair := Pair{NormalizeCurrency(from), NormalizeCurrency(to)}
	if day := DayKey(asOf); day != "" {
		r, ok := t.dated[pair][day]
		return r, ok
	}
	if r, ok := t.undated[pair]; ok {
		return r, true
	}
	if day, ok := t.latest[pair]; ok {
		return t.dated[pair][day], true
	}
	return 0, false
}

// NormalizeCurrency uppercases and trims a currency code.
func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// DayKey reduces an ISO date or timestamp to its YYYY-MM-DD day.
func DayKey(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 10 {
		return ""
	}
	return date[:10]
}
