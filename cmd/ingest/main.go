// Package main ingests purchase exports (JSON or CSV) and optional FX-rate
// files into storage.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/ingestion"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage/migrations"
	pgstore "github.com/bastian110/bitcoin-dca-tracker/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	ratesPath := flag.String("rates", "", "JSON file of FX rates to load")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if flag.NArg() == 0 && *ratesPath == "" {
		logger.Fatal("Usage: ingest [flags] <export-file>... (JSON or CSV)")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations failed: %v", err)
	}

	if *ratesPath != "" {
		if err := loadRates(ctx, pgstore.NewRateStore(pool), *ratesPath, logger); err != nil {
			logger.Fatalf("Failed to load rates: %v", err)
		}
	}

	store := pgstore.NewPurchaseStore(pool)
	for _, path := range flag.Args() {
		logger.Printf("Ingesting %s...", path)

		runner := ingestion.NewRunner(&ingestion.FileSource{Path: path}, store, logger)
		stats, err := runner.Run(ctx)
		if err != nil {
			logger.Fatalf("Ingestion of %s failed: %v", path, err)
		}

		logger.Printf("%s: %d read, %d inserted, %d duplicates, %d invalid, %d warnings",
			path, stats.Read, stats.Inserted, stats.Duplicates, stats.Invalid, stats.Warnings)
	}
}

// loadRates inserts FX rates from a JSON array file. Rates already present
// are skipped.
func loadRates(ctx context.Context, store storage.RateStore, path string, logger *log.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var rates []*domain.FXRate
	if err := json.Unmarshal(data, &rates); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	inserted, skipped := 0, 0
	for _, r := range rates {
		switch err := store.Insert(ctx, r); {
		case err == nil:
			inserted++
		case errors.Is(err, storage.ErrDuplicateKey):
			skipped++
		default:
			return err
		}
	}

	logger.Printf("%s: %d rates inserted, %d already present", path, inserted, skipped)
	return nil
}
