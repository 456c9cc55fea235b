package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

// ErrInvalidRecord marks a record that cannot become a purchase: missing
// date, non-positive BTC amount or non-positive USD price.
var ErrInvalidRecord = errors.New("invalid purchase record")

// flexFloat accepts JSON numbers, numeric strings, null and the empty
// string. A malformed value records a coercion failure instead of aborting
// the decode; ToPurchase reports it as a warning and uses the zero value.
type flexFloat struct {
	value float64
	bad   bool
	raw   string
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			f.bad = true
			f.raw = string(data)
			return nil
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.bad = true
		f.raw = s
		return nil
	}
	f.value = v
	return nil
}

// set parses a raw string the same way the JSON path does. Used by the
// CSV reader.
func (f *flexFloat) set(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*f = flexFloat{}
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*f = flexFloat{bad: true, raw: raw}
		return
	}
	*f = flexFloat{value: v}
}

// Record is one row of a normalized purchase export, before coercion and
// validation. Field names match the normalized schema exactly; column
// aliasing for foreign exports happens upstream and is out of scope here.
type Record struct {
	Date             string    `json:"date"`
	AmountBTC        flexFloat `json:"amount_btc"`
	PriceUSD         flexFloat `json:"price_usd"`
	FeeUSD           flexFloat `json:"fee_usd"`
	Exchange         string    `json:"exchange"`
	Notes            string    `json:"notes"`
	Type             string    `json:"type"`
	Timezone         string    `json:"timezone"`
	AmountReceived   flexFloat `json:"amount_received"`
	CurrencyReceived string    `json:"currency_received"`
	AmountSent       flexFloat `json:"amount_sent"`
	CurrencySent     string    `json:"currency_sent"`
	FeeAmount        flexFloat `json:"fee_amount"`
	FeeCurrency      string    `json:"fee_currency"`
	FeeTokenPrice    flexFloat `json:"fee_token_price"`
	Description      string    `json:"description"`
	Address          string    `json:"address"`
	TransactionHash  string    `json:"transaction_hash"`
	ExternalID       string    `json:"external_id"`
	FiatAmount       flexFloat `json:"fiat_amount"`
	FiatCurrency     string    `json:"fiat_currency"`
	PriceFiat        flexFloat `json:"price_fiat"`
	FeeFiat          flexFloat `json:"fee_fiat"`
	EffectivePrice   flexFloat `json:"effective_price"`
}

var _ json.Unmarshaler = (*flexFloat)(nil)

// ToPurchase converts the record into a domain purchase. Coercion failures
// on optional fields become warnings; a missing date, an unparseable date,
// or a non-positive amount or USD price is a hard error.
func (r *Record) ToPurchase() (*domain.Purchase, []string, error) {
	if strings.TrimSpace(r.Date) == "" {
		return nil, nil, fmt.Errorf("%w: empty date", ErrInvalidRecord)
	}
	if _, ok := domain.ParseDate(r.Date); !ok {
		return nil, nil, fmt.Errorf("%w: unparseable date %q", ErrInvalidRecord, r.Date)
	}
	if r.AmountBTC.bad || r.AmountBTC.value <= 0 {
		return nil, nil, fmt.Errorf("%w: amount_btc must be positive", ErrInvalidRecord)
	}
	if r.PriceUSD.bad || r.PriceUSD.value <= 0 {
		return nil, nil, fmt.Errorf("%w: price_usd must be positive", ErrInvalidRecord)
	}

	var warnings []string
	coerce := func(field string, f flexFloat) float64 {
		if f.bad {
			warnings = append(warnings, fmt.Sprintf("field %s: cannot parse %q, using 0", field, f.raw))
			return 0
		}
		return f.value
	}

	p := &domain.Purchase{
		Date:             strings.TrimSpace(r.Date),
		AmountBTC:        r.AmountBTC.value,
		PriceUSD:         r.PriceUSD.value,
		FeeUSD:           coerce("fee_usd", r.FeeUSD),
		Exchange:         strings.TrimSpace(r.Exchange),
		Notes:            r.Notes,
		Type:             strings.TrimSpace(r.Type),
		Timezone:         strings.TrimSpace(r.Timezone),
		AmountReceived:   coerce("amount_received", r.AmountReceived),
		CurrencyReceived: strings.TrimSpace(r.CurrencyReceived),
		AmountSent:       coerce("amount_sent", r.AmountSent),
		CurrencySent:     strings.TrimSpace(r.CurrencySent),
		FeeAmount:        coerce("fee_amount", r.FeeAmount),
		FeeCurrency:      strings.TrimSpace(r.FeeCurrency),
		FeeTokenPrice:    coerce("fee_token_price", r.FeeTokenPrice),
		Description:      r.Description,
		Address:          strings.TrimSpace(r.Address),
		TransactionHash:  strings.TrimSpace(strings.ToLower(r.TransactionHash)),
		ExternalID:       strings.TrimSpace(r.ExternalID),
		FiatAmount:       coerce("fiat_amount", r.FiatAmount),
		FiatCurrency:     strings.TrimSpace(r.FiatCurrency),
		PriceFiat:        coerce("price_fiat", r.PriceFiat),
		FeeFiat:          coerce("fee_fiat", r.FeeFiat),
		EffectivePrice:   coerce("effective_price", r.EffectivePrice),
	}

	// Completeness flags downstream treat a non-empty address or hash as
	// verified provenance, so values that fail validation are dropped
	// rather than carried through.
	if p.Address != "" && !ValidBitcoinAddress(p.Address) {
		warnings = append(warnings, fmt.Sprintf("field address: %q is not a valid Bitcoin address, dropping", p.Address))
		p.Address = ""
	}
	if p.TransactionHash != "" && !ValidTransactionHash(p.TransactionHash) {
		warnings = append(warnings, fmt.Sprintf("field transaction_hash: %q is not a 64-char hex hash, dropping", p.TransactionHash))
		p.TransactionHash = ""
	}

	return p, warnings, nil
}
