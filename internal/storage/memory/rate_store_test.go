package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

func TestRateStore_InsertAndGetAll(t *testing.T) {
	ctx := context.Background()
	store := NewRateStore()

	rates := []*domain.FXRate{
		{FromCurrency: "GBP", ToCurrency: "USD", Date: "2024-01-02", Rate: 1.27},
		{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-01-02", Rate: 1.09},
		{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-01-01", Rate: 1.08},
	}
	for _, r := range rates {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetAll() returned %d rows, want 3", len(all))
	}
	// Ordered by (from, to, date).
	if all[0].FromCurrency != "EUR" || all[0].Date != "2024-01-01" {
		t.Errorf("first row = %+v, want EUR 2024-01-01", all[0])
	}
	if all[2].FromCurrency != "GBP" {
		t.Errorf("last row = %+v, want GBP", all[2])
	}
}

func TestRateStore_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := NewRateStore()
	r := &domain.FXRate{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-01-01", Rate: 1.08}

	if err := store.Insert(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate Insert() error = %v, want ErrDuplicateKey", err)
	}

	// Same pair, different date is a different key.
	other := &domain.FXRate{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-01-02", Rate: 1.09}
	if err := store.Insert(ctx, other); err != nil {
		t.Errorf("Insert() with different date error = %v", err)
	}

	// An undated row is its own key too.
	undated := &domain.FXRate{FromCurrency: "EUR", ToCurrency: "USD", Rate: 1.1}
	if err := store.Insert(ctx, undated); err != nil {
		t.Errorf("Insert() undated error = %v", err)
	}
}

func TestRateStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewRateStore()

	cases := []*domain.FXRate{
		nil,
		{ToCurrency: "USD", Rate: 1},
		{FromCurrency: "EUR", Rate: 1},
		{FromCurrency: "EUR", ToCurrency: "USD", Rate: 0},
	}
	for i, r := range cases {
		if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("case %d: Insert() error = %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestRateStore_InsertBulkAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewRateStore()

	if err := store.Insert(ctx, &domain.FXRate{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-01-01", Rate: 1.08}); err != nil {
		t.Fatal(err)
	}

	batch := []*domain.FXRate{
		{FromCurrency: "GBP", ToCurrency: "USD", Date: "2024-01-01", Rate: 1.27},
		{FromCurrency: "EUR", ToCurrency: "USD", Date: "2024-01-01", Rate: 1.09}, // duplicate of stored row
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("InsertBulk() error = %v, want ErrDuplicateKey", err)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 1 {
		t.Errorf("store has %d rows after failed bulk insert, want 1", len(all))
	}
}
