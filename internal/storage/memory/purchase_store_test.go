package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
)

func makePurchase(date string, amount float64, exchange string) *domain.Purchase {
	return &domain.Purchase{
		Date:      date,
		AmountBTC: amount,
		PriceUSD:  42000,
		Exchange:  exchange,
	}
}

func TestPurchaseStore_InsertAndGetAll(t *testing.T) {
	ctx := context.Background()
	store := NewPurchaseStore()

	// Insert out of chronological order.
	if err := store.Insert(ctx, makePurchase("2024-02-01", 0.2, "Kraken")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(ctx, makePurchase("2024-01-01", 0.1, "Coinbase")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAll() returned %d rows, want 2", len(all))
	}
	if all[0].Date != "2024-01-01" || all[1].Date != "2024-02-01" {
		t.Errorf("GetAll() order = %q, %q, want date ASC", all[0].Date, all[1].Date)
	}
}

func TestPurchaseStore_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	store := NewPurchaseStore()
	p := makePurchase("2024-01-01", 0.1, "Kraken")

	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(ctx, p); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("second Insert() error = %v, want ErrDuplicateKey", err)
	}
}

func TestPurchaseStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewPurchaseStore()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(nil) error = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.Purchase{Date: "2024-01-01"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert without amount error = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.Purchase{AmountBTC: 1}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert without date error = %v, want ErrInvalidInput", err)
	}
}

func TestPurchaseStore_InsertBulkAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewPurchaseStore()

	batch := []*domain.Purchase{
		makePurchase("2024-01-01", 0.1, "Kraken"),
		makePurchase("2024-01-01", 0.1, "Kraken"), // intra-batch duplicate
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("InsertBulk() error = %v, want ErrDuplicateKey", err)
	}

	// Nothing from the failed batch may be visible.
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Count() = %d after failed bulk insert, want 0", n)
	}
}

func TestPurchaseStore_GetByExchange(t *testing.T) {
	ctx := context.Background()
	store := NewPurchaseStore()

	must := func(p *domain.Purchase) {
		t.Helper()
		if err := store.Insert(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	must(makePurchase("2024-01-01", 0.1, "Kraken"))
	must(makePurchase("2024-02-01", 0.2, "Coinbase"))
	must(makePurchase("2024-03-01", 0.3, "Kraken"))

	kraken, err := store.GetByExchange(ctx, "Kraken")
	if err != nil {
		t.Fatalf("GetByExchange() error = %v", err)
	}
	if len(kraken) != 2 {
		t.Fatalf("GetByExchange(Kraken) returned %d rows, want 2", len(kraken))
	}
	if kraken[0].Date != "2024-01-01" {
		t.Errorf("GetByExchange() order wrong: first date %q", kraken[0].Date)
	}
}

func TestPurchaseStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewPurchaseStore()

	if err := store.Insert(ctx, makePurchase("2024-01-01", 0.1, "Kraken")); err != nil {
		t.Fatal(err)
	}

	first, _ := store.GetAll(ctx)
	first[0].Exchange = "mutated"

	second, _ := store.GetAll(ctx)
	if second[0].Exchange != "Kraken" {
		t.Error("store rows must be isolated from caller mutation")
	}
}
