package fx

import (
	"sort"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// cryptoTickers are currency codes that must never be reported as fiat.
var cryptoTickers = map[string]struct{}{
	"BTC":      {},
	"BITCOIN":  {},
	"ETH":      {},
	"ETHEREUM": {},
	"USDC":     {},
	"USD COIN": {},
	"USDT":     {},
	"TETHER":   {},
}

// DetectCurrencies reports the fiat currencies present in a purchase set,
// for currency-selection purposes. "USD" is included whenever any purchase
// carries a positive legacy price_usd or fee_usd, even without explicit
// fiat fields. The result is deduplicated, with "USD" first and the rest
// alphabetical.
func DetectCurrencies(purchases []*domain.Purchase) []string {
	seen := make(map[string]struct{})
	add := func(code string) {
		code = NormalizeCurrency(code)
		if code == "" {
			return
		}
		if _, crypto := cryptoTickers[code]; crypto {
			return
		}
		seen[code] = struct{}{}
	}

	for _, p := range purchases {
		add(p.FiatCurrency)
		add(p.CurrencySent)
		add(p.CurrencyReceived)
		add(p.FeeCurrency)
		if FiniteOr(p.PriceUSD, 0) > 0 || FiniteOr(p.FeeUSD, 0) > 0 {
			seen["USD"] = struct{}{}
		}
	}

	_, hasUSD := seen["USD"]
	delete(seen, "USD")

	rest := make([]string, 0, len(seen))
	for code := range seen {
		rest = append(rest, code)
	}
	sort.Strings(rest)

	out := make([]string, 0, len(rest)+1)
	if hasUSD {
		out = append(out, "USD")
	}
	return append(out, rest...)
}
