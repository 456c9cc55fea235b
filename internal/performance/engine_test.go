package performance

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/fx"
)

func samplePurchases() []*domain.Purchase {
	return []*domain.Purchase{
		{Date: "2024-01-15", AmountBTC: 0.001, PriceUSD: 42000, FeeUSD: 2.5},
		{Date: "2024-02-15", AmountBTC: 0.0015, PriceUSD: 45000, FeeUSD: 3.0},
		{Date: "2024-03-15", AmountBTC: 0.002, PriceUSD: 48000, FeeUSD: 3.5},
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	points, err := Compute(nil, 50000, "USD", Options{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(points) != 0 {
		t.Errorf("Compute() returned %d points, want 0", len(points))
	}
}

func TestCompute_MarkToMarketRequiresHistoricalPrices(t *testing.T) {
	_, err := Compute(samplePurchases(), 50000, "USD", Options{Mode: domain.ModeMarkToMarket})
	if !errors.Is(err, ErrHistoricalPriceRequired) {
		t.Fatalf("Compute() error = %v, want ErrHistoricalPriceRequired", err)
	}

	// The check fires before any computation, even on empty input.
	_, err = Compute(nil, 50000, "USD", Options{Mode: domain.ModeMarkToMarket})
	if !errors.Is(err, ErrHistoricalPriceRequired) {
		t.Fatalf("Compute() on empty input error = %v, want ErrHistoricalPriceRequired", err)
	}
}

func TestCompute_RunningTotalsAndIndexes(t *testing.T) {
	points, err := Compute(samplePurchases(), 50000, "USD", Options{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}

	for i, pt := range points {
		if pt.PurchaseIndex != i+1 {
			t.Errorf("points[%d].PurchaseIndex = %d, want %d", i, pt.PurchaseIndex, i+1)
		}
	}

	// Monotonic, non-decreasing running totals.
	for i := 1; i < len(points); i++ {
		if points[i].RunningBTC < points[i-1].RunningBTC {
			t.Errorf("RunningBTC decreased at point %d", i)
		}
		if points[i].RunningInvested < points[i-1].RunningInvested {
			t.Errorf("RunningInvested decreased at point %d", i)
		}
	}

	last := points[2]
	if math.Abs(last.RunningBTC-0.0045) > 1e-12 {
		t.Errorf("final RunningBTC = %v, want 0.0045", last.RunningBTC)
	}
	wantInvested := (0.001*42000 + 2.5) + (0.0015*45000 + 3.0) + (0.002*48000 + 3.5)
	if math.Abs(last.RunningInvested-wantInvested) > 1e-9 {
		t.Errorf("final RunningInvested = %v, want %v", last.RunningInvested, wantInvested)
	}
}

func TestCompute_PriceAtBuyIsFeeExcluded(t *testing.T) {
	points, err := Compute(samplePurchases(), 50000, "USD", Options{Basis: domain.BasisEffective})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	// priceAtBuy is the row's own execution price regardless of basis.
	if math.Abs(points[0].PriceAtBuy-42000) > 1e-6 {
		t.Errorf("points[0].PriceAtBuy = %v, want 42000", points[0].PriceAtBuy)
	}
	if math.Abs(points[1].PriceAtBuy-45000) > 1e-6 {
		t.Errorf("points[1].PriceAtBuy = %v, want 45000", points[1].PriceAtBuy)
	}
}

func TestCompute_ToDatePerspective(t *testing.T) {
	points, err := Compute(samplePurchases(), 50000, "USD", Options{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	for i, pt := range points {
		if pt.ToDatePrice != 50000 {
			t.Errorf("points[%d].ToDatePrice = %v, want 50000 applied uniformly", i, pt.ToDatePrice)
		}
		wantValue := pt.RunningBTC * 50000
		if math.Abs(pt.ToDateValue-wantValue) > 1e-9 {
			t.Errorf("points[%d].ToDateValue = %v, want %v", i, pt.ToDateValue, wantValue)
		}
		wantPnL := wantValue - pt.RunningInvested
		if math.Abs(pt.ToDatePnL-wantPnL) > 1e-9 {
			t.Errorf("points[%d].ToDatePnL = %v, want %v", i, pt.ToDatePnL, wantPnL)
		}
	}
}

func TestCompute_MarkToMarketUsesHistoricalLookup(t *testing.T) {
	historical := map[string]float64{
		"2024-01-15": 43000,
		"2024-02-15": 46000,
		"2024-03-15": 49000,
	}
	lookup := func(date string) float64 { return historical[date] }

	points, err := Compute(samplePurchases(), 50000, "USD", Options{
		Mode:            domain.ModeMarkToMarket,
		HistoricalPrice: lookup,
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	for i, pt := range points {
		want := historical[pt.Date]
		if pt.MarkToMarketPrice != want {
			t.Errorf("points[%d].MarkToMarketPrice = %v, want %v", i, pt.MarkToMarketPrice, want)
		}
		if math.Abs(pt.MarkToMarketValue-pt.RunningBTC*want) > 1e-9 {
			t.Errorf("points[%d].MarkToMarketValue = %v, want %v", i, pt.MarkToMarketValue, pt.RunningBTC*want)
		}
	}
}

func TestCompute_MarkToMarketDefaultsToPriceAtBuy(t *testing.T) {
	// In to-date mode without a lookup, the mark-to-market perspective
	// falls back to each row's own execution price.
	points, err := Compute(samplePurchases(), 50000, "USD", Options{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	for i, pt := range points {
		if pt.MarkToMarketPrice != pt.PriceAtBuy {
			t.Errorf("points[%d].MarkToMarketPrice = %v, want PriceAtBuy %v", i, pt.MarkToMarketPrice, pt.PriceAtBuy)
		}
	}
}

func TestCompute_BasisChangesInvestedOnly(t *testing.T) {
	effective, err := Compute(samplePurchases(), 50000, "USD", Options{Basis: domain.BasisEffective})
	if err != nil {
		t.Fatal(err)
	}
	execution, err := Compute(samplePurchases(), 50000, "USD", Options{Basis: domain.BasisExecution})
	if err != nil {
		t.Fatal(err)
	}

	for i := range effective {
		wantDiff := effective[i].RunningFees
		gotDiff := effective[i].RunningInvested - execution[i].RunningInvested
		if math.Abs(gotDiff-wantDiff) > 1e-9 {
			t.Errorf("points[%d]: invested differs by %v, want running fees %v", i, gotDiff, wantDiff)
		}
		if effective[i].PriceAtBuy != execution[i].PriceAtBuy {
			t.Errorf("points[%d]: PriceAtBuy must not depend on basis", i)
		}
	}
}

func TestCompute_ChronologicalOutputFromShuffledInput(t *testing.T) {
	purchases := samplePurchases()
	want, err := Compute(purchases, 50000, "USD", Options{})
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := make([]*domain.Purchase, len(purchases))
		copy(shuffled, purchases)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Compute(shuffled, 50000, "USD", Options{})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d changed the performance sequence", i)
		}
	}
}

func TestCompute_ZeroInvestedGuards(t *testing.T) {
	// A purchase that resolves to zero cost must not divide by zero.
	purchases := []*domain.Purchase{{Date: "2024-01-01", AmountBTC: 0.1, PriceUSD: 0}}

	points, err := Compute(purchases, 0, "USD", Options{})
	if err != nil {
		t.Fatal(err)
	}
	pt := points[0]
	for name, v := range map[string]float64{
		"PriceAtBuy":             pt.PriceAtBuy,
		"ToDatePnLPercent":       pt.ToDatePnLPercent,
		"MarkToMarketPnLPercent": pt.MarkToMarketPnLPercent,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, want finite", name, v)
		}
	}
}

func TestCompute_GracefulFXFallbackPerRow(t *testing.T) {
	// One EUR row with no rate available degrades to its USD basis
	// without aborting the sequence.
	purchases := []*domain.Purchase{
		{Date: "2024-01-15", AmountBTC: 0.001, PriceUSD: 42000},
		{Date: "2024-02-15", AmountBTC: 0.001, PriceUSD: 45000, FiatAmount: 50, FiatCurrency: "EUR"},
	}

	points, err := Compute(purchases, 50000, "USD", Options{FX: fx.Options{TargetFiat: "USD", Provider: fx.StaticProvider{}}})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	wantInvested := 0.001*42000 + 0.001*45000
	if math.Abs(points[1].RunningInvested-wantInvested) > 1e-9 {
		t.Errorf("RunningInvested = %v, want USD fallback %v", points[1].RunningInvested, wantInvested)
	}
}
