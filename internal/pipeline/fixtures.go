package pipeline

import (
	"context"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

// LoadFixtures populates stores with demo data for demonstration runs.
func LoadFixtures(ctx context.Context, purchaseStore storage.PurchaseStore, rateStore storage.RateStore) error {
	if err := loadPurchases(ctx, purchaseStore); err != nil {
		return err
	}
	return loadRates(ctx, rateStore)
}

func loadPurchases(ctx context.Context, store storage.PurchaseStore) error {
	purchases := []*domain.Purchase{
		{
			Date:      "2024-01-05T10:00:00Z",
			AmountBTC: 0.01,
			PriceUSD:  42000,
			FeeUSD:    4.2,
			Exchange:  "coinbase",
			Type:      "buy",
		},
		{
			Date:         "2024-01-19T10:00:00Z",
			AmountBTC:    0.012,
			PriceUSD:     41500,
			Exchange:     "kraken",
			Type:         "buy",
			FiatAmount:   460.2,
			FiatCurrency: "EUR",
			PriceFiat:    38350,
			FeeFiat:      1.84,
		},
		{
			Date:         "2024-02-02T10:00:00Z",
			AmountBTC:    0.009,
			PriceUSD:     43100,
			Exchange:     "kraken",
			Type:         "buy",
			FiatAmount:   357.3,
			FiatCurrency: "EUR",
			PriceFiat:    39700,
		},
		{
			Date:         "2024-02-16T10:00:00Z",
			AmountBTC:    0.008,
			PriceUSD:     51900,
			Exchange:     "coinfloor",
			Type:         "buy",
			FiatAmount:   329.6,
			FiatCurrency: "GBP",
			PriceFiat:    41200,
			FeeAmount:    1.6,
			FeeCurrency:  "GBP",
		},
		{
			Date:      "2024-03-01T10:00:00Z",
			AmountBTC: 0.007,
			PriceUSD:  61800,
			FeeUSD:    3.1,
			Exchange:  "coinbase",
			Type:      "buy",
		},
	}

	for _, p := range purchases {
		if err := store.Insert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func loadRates(ctx context.Context, store storage.RateStore) error {
	rates := []*domain.FXRate{
		{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-01-19", Rate: 1.0885},
		{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-02-02", Rate: 1.0787},
		{FromCurrency: "GBP", ToCurrency: "USD", Date: "2024-02-16", Rate: 1.2601},
		// Undated fallbacks for current-price conversion and late rows.
		{FromCurrency: "EUR", ToCurrency: "USD", Rate: 1.08},
		{FromCurrency: "GBP", ToCurrency: "USD", Rate: 1.26},
		{FromCurrency: "USD", ToCurrency: "EUR", Rate: 0.926},
	}

	for _, r := range rates {
		if err := store.Insert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
