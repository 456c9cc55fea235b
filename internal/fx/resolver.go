package fx

import (
	"fmt"
	"math"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// Options configures currency resolution.
type Options struct {
	// TargetFiat is the currency every amount is normalized into.
	// Defaults to "USD".
	TargetFiat string
	// Provider supplies FX rates. Only required when a record's source
	// currency differs from TargetFiat.
	Provider RateProvider
}

// Target returns the normalized target fiat currency.
func (o Options) Target() string {
	if o.TargetFiat == "" {
		return "USD"
	}
	return NormalizeCurrency(o.TargetFiat)
}

// ConversionError reports that a required FX conversion could not be
// performed, either because no provider was supplied or because the
// provider had no rate for the pair.
type ConversionError struct {
	From            string
	To              string
	Date            string
	ProviderMissing bool
}

func (e *ConversionError) Error() string {
	if e.ProviderMissing {
		return fmt.Sprintf("no FX provider for %s->%s conversion (transaction date %s)", e.From, e.To, e.Date)
	}
	return fmt.Sprintf("no FX rate for %s->%s (transaction date %s)", e.From, e.To, e.Date)
}

// FiniteOr coerces NaN and infinities to def.
func FiniteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// sourceCost determines a purchase's raw cost (excluding fees) and the
// currency that amount is denominated in. Priority order:
//  1. fiat_amount, in fiat_currency (assumed target fiat, with a warning,
//     when fiat_currency is absent)
//  2. amount_btc * price_fiat, in fiat_currency
//  3. amount_btc * price_usd, in USD
func sourceCost(p *domain.Purchase, target string) (amount float64, currency string, warnings []string) {
	if amt := FiniteOr(p.FiatAmount, 0); amt > 0 {
		cur := NormalizeCurrency(p.FiatCurrency)
		if cur == "" {
			warnings = append(warnings, fmt.Sprintf(
				"purchase %s: fiat_amount set without fiat_currency, assuming %s", p.Date, target))
			cur = target
		}
		return amt, cur, warnings
	}
	if pf := FiniteOr(p.PriceFiat, 0); pf > 0 && NormalizeCurrency(p.FiatCurrency) != "" {
		return FiniteOr(p.AmountBTC, 0) * pf, NormalizeCurrency(p.FiatCurrency), nil
	}
	return legacyUSDCost(p), "USD", nil
}

// sourceFee determines a purchase's raw fee and its currency. Priority:
// fee_fiat (interpreted in fiat_currency), then fee_amount/fee_currency,
// then the legacy fee_usd (default 0).
func sourceFee(p *domain.Purchase) (amount float64, currency string) {
	if ff := FiniteOr(p.FeeFiat, 0); ff > 0 && NormalizeCurrency(p.FiatCurrency) != "" {
		return ff, NormalizeCurrency(p.FiatCurrency)
	}
	if fa := FiniteOr(p.FeeAmount, 0); fa > 0 && NormalizeCurrency(p.FeeCurrency) != "" {
		return fa, NormalizeCurrency(p.FeeCurrency)
	}
	return FiniteOr(p.FeeUSD, 0), "USD"
}

// legacyUSDCost is the pure USD fallback basis: amount_btc * price_usd.
func legacyUSDCost(p *domain.Purchase) float64 {
	return FiniteOr(p.AmountBTC, 0) * FiniteOr(p.PriceUSD, 0)
}

// convert converts amount from one currency into another. Lookup policy:
// dated rate first, undated rate second. A zero amount or an identical
// pair short-circuits without touching the provider.
func convert(amount float64, from, to, date string, provider RateProvider) (float64, error) {
	if amount == 0 || from == to {
		return amount, nil
	}
	if provider == nil {
		return 0, &ConversionError{From: from, To: to, Date: date, ProviderMissing: true}
	}
	if r, ok := provider.Rate(from, to, date); ok {
		return amount * r, nil
	}
	if r, ok := provider.Rate(from, to, ""); ok {
		return amount * r, nil
	}
	return 0, &ConversionError{From: from, To: to, Date: date}
}

// ResolveCost returns the purchase cost excluding fees, in opts.TargetFiat.
// Strict path: a required conversion that cannot be performed fails with a
// *ConversionError.
func ResolveCost(p *domain.Purchase, opts Options) (float64, error) {
	target := opts.Target()
	amount, currency, _ := sourceCost(p, target)
	return convert(amount, currency, target, p.Date, opts.Provider)
}

// ResolveFee returns the purchase fee in opts.TargetFiat. Strict path.
func ResolveFee(p *domain.Purchase, opts Options) (float64, error) {
	amount, currency := sourceFee(p)
	return convert(amount, currency, opts.Target(), p.Date, opts.Provider)
}

// TryResolveCost never fails: when FX data is missing it falls back to the
// legacy USD basis (amount_btc * price_usd) and reports a warning, so one
// bad rate never aborts an aggregate computation.
func TryResolveCost(p *domain.Purchase, opts Options) (float64, []string) {
	target := opts.Target()
	amount, currency, warnings := sourceCost(p, target)
	out, err := convert(amount, currency, target, p.Date, opts.Provider)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("cost fallback to USD basis: %v", err))
		return legacyUSDCost(p), warnings
	}
	return out, warnings
}

// TryResolveFee never fails: on missing FX data it falls back to the
// legacy fee_usd value with a warning.
func TryResolveFee(p *domain.Purchase, opts Options) (float64, []string) {
	amount, currency := sourceFee(p)
	out, err := convert(amount, currency, opts.Target(), p.Date, opts.Provider)
	if err != nil {
		return FiniteOr(p.FeeUSD, 0), []string{fmt.Sprintf("fee fallback to fee_usd: %v", err)}
	}
	return out, nil
}

// TryConvertPrice converts a spot price into the target fiat, keeping the
// price unchanged (with a warning) when no rate is available. Used for the
// caller-supplied current price in aggregate computations.
func TryConvertPrice(price float64, currency string, opts Options) (float64, []string) {
	cur := NormalizeCurrency(currency)
	if cur == "" {
		cur = "USD"
	}
	out, err := convert(FiniteOr(price, 0), cur, opts.Target(), "", opts.Provider)
	if err != nil {
		return FiniteOr(price, 0), []string{fmt.Sprintf("current price left unconverted: %v", err)}
	}
	return out, nil
}
