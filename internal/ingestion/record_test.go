package ingestion

import (
	"errors"
	"strings"
	"testing"
)

func TestRecord_JSONCoercion(t *testing.T) {
	input := `[{
		"date": "2024-01-15",
		"amount_btc": 0.25,
		"price_usd": "42000",
		"fee_usd": "abc",
		"fiat_amount": null,
		"fee_amount": "  12.5 ",
		"exchange": "Kraken"
	}]`

	records, err := ReadJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	p, warnings, err := records[0].ToPurchase()
	if err != nil {
		t.Fatalf("ToPurchase() error = %v", err)
	}

	if p.AmountBTC != 0.25 {
		t.Errorf("AmountBTC = %v, want 0.25", p.AmountBTC)
	}
	// Numeric strings parse like numbers.
	if p.PriceUSD != 42000 {
		t.Errorf("PriceUSD = %v, want 42000", p.PriceUSD)
	}
	if p.FeeAmount != 12.5 {
		t.Errorf("FeeAmount = %v, want 12.5", p.FeeAmount)
	}
	// Malformed optional field coerces to 0 with a warning.
	if p.FeeUSD != 0 {
		t.Errorf("FeeUSD = %v, want 0", p.FeeUSD)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "fee_usd") {
		t.Errorf("warnings = %v, want one fee_usd coercion warning", warnings)
	}
	// Null is absence, not a warning.
	if p.FiatAmount != 0 {
		t.Errorf("FiatAmount = %v, want 0", p.FiatAmount)
	}
}

func TestRecord_RequiredFields(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"missing date", `[{"amount_btc": 0.1, "price_usd": 40000}]`},
		{"unparseable date", `[{"date": "last tuesday", "amount_btc": 0.1, "price_usd": 40000}]`},
		{"zero amount", `[{"date": "2024-01-01", "amount_btc": 0, "price_usd": 40000}]`},
		{"malformed amount", `[{"date": "2024-01-01", "amount_btc": "x", "price_usd": 40000}]`},
		{"zero price", `[{"date": "2024-01-01", "amount_btc": 0.1, "price_usd": 0}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := ReadJSON(strings.NewReader(tc.json))
			if err != nil {
				t.Fatalf("ReadJSON() error = %v", err)
			}
			_, _, err = records[0].ToPurchase()
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ToPurchase() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestRecord_DropsInvalidAddressAndHash(t *testing.T) {
	rec := &Record{
		Date:            "2024-01-01",
		AmountBTC:       flexFloat{value: 0.1},
		PriceUSD:        flexFloat{value: 40000},
		Address:         "1NotARealAddress",
		TransactionHash: "deadbeef",
	}

	p, warnings, err := rec.ToPurchase()
	if err != nil {
		t.Fatalf("ToPurchase() error = %v", err)
	}
	if p.Address != "" {
		t.Errorf("Address = %q, want dropped", p.Address)
	}
	if p.TransactionHash != "" {
		t.Errorf("TransactionHash = %q, want dropped", p.TransactionHash)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v, want 2", warnings)
	}
}

func TestRecord_KeepsValidAddressAndHash(t *testing.T) {
	rec := &Record{
		Date:            "2024-01-01",
		AmountBTC:       flexFloat{value: 0.1},
		PriceUSD:        flexFloat{value: 40000},
		Address:         "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		TransactionHash: "4A5E1E4BAAB89F3A32518A88C31BC87F618F76673E2CC77AB2127B7AFDEDA33B",
	}

	p, warnings, err := rec.ToPurchase()
	if err != nil {
		t.Fatalf("ToPurchase() error = %v", err)
	}
	if p.Address != "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa" {
		t.Errorf("Address = %q", p.Address)
	}
	// Hashes normalize to lowercase.
	if p.TransactionHash != "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b" {
		t.Errorf("TransactionHash = %q", p.TransactionHash)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}
