// Package main generates a one-shot portfolio report: portfolio.md and
// performance.csv in the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/pipeline"
	"github.com/bastian110/bitcoin-dca-tracker/internal/pricing"
	"github.com/bastian110/bitcoin-dca-tracker/internal/reporting"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
	chstore "github.com/bastian110/bitcoin-dca-tracker/internal/storage/clickhouse"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage/memory"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage/migrations"
	pgstore "github.com/bastian110/bitcoin-dca-tracker/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory demo data instead of a database")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables archiving)")
	targetFiat := flag.String("target-fiat", envOr("TARGET_FIAT", "USD"), "Currency every amount normalizes into")
	basis := flag.String("basis", envOr("COST_BASIS", "effective"), "Cost basis: execution or effective")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	price := flag.Float64("price", 0, "Current BTC price in target fiat (0 fetches from the spot API)")
	priceEndpoint := flag.String("price-endpoint", envOr("PRICE_API_URL", "https://api.coinbase.com"), "Spot price API base URL")

	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags)

	if !*useFixtures && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (or use --use-fixtures)")
	}

	ctx := context.Background()

	purchases, rates, perf, cleanup, err := createStores(ctx, *useFixtures, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	currentPrice := *price
	if currentPrice <= 0 {
		quote, err := pricing.NewSpotClient(*priceEndpoint).Current(ctx, *targetFiat)
		if err != nil {
			logger.Fatalf("Failed to fetch spot price (pass --price to skip): %v", err)
		}
		currentPrice = quote.Price
		logger.Printf("Spot price: %.2f %s", quote.Price, quote.Currency)
	}

	snap := pipeline.NewSnapshot(purchases, rates).
		WithTargetFiat(*targetFiat).
		WithBasis(domain.Basis(*basis))
	if perf != nil {
		snap = snap.WithPerformanceStore(perf)
	}

	result, err := snap.Run(ctx, currentPrice, *targetFiat)
	if err != nil {
		logger.Fatalf("Snapshot failed: %v", err)
	}

	gen := reporting.NewGenerator(*outputDir)
	err = gen.Write(&reporting.Report{
		GeneratedAt: result.ComputedAt,
		SeriesID:    result.SeriesID,
		Metrics:     result.Metrics,
		Points:      result.Points,
		Currencies:  result.Currencies,
	})
	if err != nil {
		logger.Fatalf("Failed to write reports: %v", err)
	}

	logger.Printf("Report written to %s/ (%d purchases, %.8f BTC, PnL %.2f %s)",
		*outputDir, result.PurchaseCount, result.Metrics.TotalBTC,
		result.Metrics.UnrealizedPnL, result.Metrics.TargetFiat)
	if result.Archived {
		logger.Printf("Series %s archived", result.SeriesID)
	}
	for _, w := range result.Metrics.Warnings {
		logger.Printf("Warning: %s", w)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func createStores(ctx context.Context, useFixtures bool, postgresDSN, clickhouseDSN string) (storage.PurchaseStore, storage.RateStore, storage.PerformanceStore, func(), error) {
	if useFixtures {
		purchases := memory.NewPurchaseStore()
		rates := memory.NewRateStore()
		if err := pipeline.LoadFixtures(ctx, purchases, rates); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		return purchases, rates, memory.NewPerformanceStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	purchases := pgstore.NewPurchaseStore(pool)
	rates := pgstore.NewRateStore(pool)

	// Archiving is optional for one-shot reports.
	if clickhouseDSN == "" {
		return purchases, rates, nil, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return purchases, rates, chstore.NewPerformanceStore(chConn), cleanup, nil
}
