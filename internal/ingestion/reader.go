package ingestion

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// csvColumns is the fixed column order of the normalized CSV export.
// Readers match columns by header name, so export order may vary, but
// every header must be one of these.
var csvColumns = map[string]struct{}{
	"date": {}, "amount_btc": {}, "price_usd": {}, "fee_usd": {},
	"exchange": {}, "notes": {}, "type": {}, "timezone": {},
	"amount_received": {}, "currency_received": {},
	"amount_sent": {}, "currency_sent": {},
	"fee_amount": {}, "fee_currency": {}, "fee_token_price": {},
	"description": {}, "address": {}, "transaction_hash": {}, "external_id": {},
	"fiat_amount": {}, "fiat_currency": {}, "price_fiat": {}, "fee_fiat": {},
	"effective_price": {},
}

// ReadJSON decodes a JSON array of normalized purchase records.
func ReadJSON(r io.Reader) ([]*Record, error) {
	var records []*Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode purchase records: %w", err)
	}
	return records, nil
}

// ReadCSV decodes a normalized CSV export. The first row is the header;
// headers must come from the normalized schema.
func ReadCSV(r io.Reader) ([]*Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, ok := csvColumns[name]; !ok {
			return nil, fmt.Errorf("unknown csv column %q", h)
		}
		columns[i] = name
	}

	var records []*Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		rec := &Record{}
		for i, value := range row {
			if i >= len(columns) {
				break
			}
			setField(rec, columns[i], value)
		}
		records = append(records, rec)
	}

	return records, nil
}

// setField assigns one CSV cell to its record field.
func setField(rec *Record, column, value string) {
	switch column {
	case "date":
		rec.Date = value
	case "amount_btc":
		rec.AmountBTC.set(value)
	case "price_usd":
		rec.PriceUSD.set(value)
	case "fee_usd":
		rec.FeeUSD.set(value)
	case "exchange":
		rec.Exchange = value
	case "notes":
		rec.Notes = value
	case "type":
		rec.Type = value
	case "timezone":
		rec.Timezone = value
	case "amount_received":
		rec.AmountReceived.set(value)
	case "currency_received":
		rec.CurrencyReceived = value
	case "amount_sent":
		rec.AmountSent.set(value)
	case "currency_sent":
		rec.CurrencySent = value
	case "fee_amount":
		rec.FeeAmount.set(value)
	case "fee_currency":
		rec.FeeCurrency = value
	case "fee_token_price":
		rec.FeeTokenPrice.set(value)
	case "description":
		rec.Description = value
	case "address":
		rec.Address = value
	case "transaction_hash":
		rec.TransactionHash = value
	case "external_id":
		rec.ExternalID = value
	case "fiat_amount":
		rec.FiatAmount.set(value)
	case "fiat_currency":
		rec.FiatCurrency = value
	case "price_fiat":
		rec.PriceFiat.set(value)
	case "fee_fiat":
		rec.FeeFiat.set(value)
	case "effective_price":
		rec.EffectivePrice.set(value)
	}
}
