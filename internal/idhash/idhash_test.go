package idhash

import (
	"testing"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
)

func TestPurchaseID_Deterministic(t *testing.T) {
	p := &domain.Purchase{
		Date:      "2024-01-15T10:30:00Z",
		AmountBTC: 0.001,
		PriceUSD:  42000,
		Exchange:  "Kraken",
	}

	first := PurchaseID(p)
	if len(first) != 64 {
		t.Fatalf("PurchaseID length = %d, want 64", len(first))
	}

	for i := 0; i < 10; i++ {
		if got := PurchaseID(p); got != first {
			t.Fatalf("PurchaseID not deterministic: %s != %s", got, first)
		}
	}
}

func TestPurchaseID_DistinguishesRecords(t *testing.T) {
	base := domain.Purchase{
		Date:      "2024-01-15T10:30:00Z",
		AmountBTC: 0.001,
		PriceUSD:  42000,
		Exchange:  "Kraken",
	}

	variants := []domain.Purchase{base, base, base, base}
	variants[0].Date = "2024-01-16T10:30:00Z"
	variants[1].AmountBTC = 0.002
	variants[2].PriceUSD = 43000
	variants[3].ExternalID = "row-7"

	baseID := PurchaseID(&base)
	for i := range variants {
		if PurchaseID(&variants[i]) == baseID {
			t.Errorf("variant %d produced the same ID as the base record", i)
		}
	}
}

func TestPurchaseID_NotesDoNotAffectIdentity(t *testing.T) {
	a := &domain.Purchase{Date: "2024-01-15", AmountBTC: 0.5, PriceUSD: 40000, Notes: "first buy"}
	b := &domain.Purchase{Date: "2024-01-15", AmountBTC: 0.5, PriceUSD: 40000, Notes: "edited note"}

	if PurchaseID(a) != PurchaseID(b) {
		t.Error("non-identifying fields must not change the purchase ID")
	}
}
