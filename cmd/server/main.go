// Package main provides the unified tracker service:
// - Purchase ingestion over HTTP
// - Live and polled BTC price updates
// - Scheduled portfolio snapshots, archiving and report generation
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bastian110/bitcoin-dca-tracker/internal/domain"
	"github.com/bastian110/bitcoin-dca-tracker/internal/fx"
	"github.com/bastian110/bitcoin-dca-tracker/internal/ingestion"
	"github.com/bastian110/bitcoin-dca-tracker/internal/observability"
	"github.com/bastian110/bitcoin-dca-tracker/internal/pipeline"
	"github.com/bastian110/bitcoin-dca-tracker/internal/pricing"
	"github.com/bastian110/bitcoin-dca-tracker/internal/reporting"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage"
	chstore "github.com/bastian110/bitcoin-dca-tracker/internal/storage/clickhouse"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage/memory"
	"github.com/bastian110/bitcoin-dca-tracker/internal/storage/migrations"
	pgstore "github.com/bastian110/bitcoin-dca-tracker/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	stores     *allStores
	spot       *pricing.SpotClient
	wsEndpoint string

	targetFiat       string
	basis            domain.Basis
	outputDir        string
	snapshotInterval time.Duration
	priceInterval    time.Duration

	metrics *observability.Metrics
	logger  *log.Logger

	// State
	mu              sync.Mutex
	price           float64
	priceAt         time.Time
	lastResult      *pipeline.Result
	lastSnapshotAt  time.Time
	snapshotRunning bool
	snapshotRuns    int
	started         time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	purchases   storage.PurchaseStore
	rates       storage.RateStore
	performance storage.PerformanceStore
}

func main() {
	// Load .env file if exists
	godotenv.Load()

	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	targetFiat := flag.String("target-fiat", envOr("TARGET_FIAT", "USD"), "Currency every amount normalizes into")
	basis := flag.String("basis", envOr("COST_BASIS", "effective"), "Cost basis: execution or effective")
	priceEndpoint := flag.String("price-endpoint", envOr("PRICE_API_URL", "https://api.coinbase.com"), "Spot price API base URL")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("PRICE_WS_URL"), "WebSocket ticker endpoint (optional)")
	snapshotInterval := flag.Duration("snapshot-interval", time.Hour, "Snapshot and report interval")
	priceInterval := flag.Duration("price-interval", time.Minute, "Spot price refresh interval")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	loadFixtures := flag.Bool("load-fixtures", false, "Seed demo purchases and rates on startup")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	if *loadFixtures {
		if err := pipeline.LoadFixtures(ctx, stores.purchases, stores.rates); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Println("Fixtures already loaded, skipping")
			} else {
				logger.Fatalf("Failed to load fixtures: %v", err)
			}
		}
	}

	server := &Server{
		stores:           stores,
		spot:             pricing.NewSpotClient(*priceEndpoint),
		wsEndpoint:       *wsEndpoint,
		targetFiat:       *targetFiat,
		basis:            domain.Basis(*basis).Normalize(),
		outputDir:        *outputDir,
		snapshotInterval: *snapshotInterval,
		priceInterval:    *priceInterval,
		metrics:          observability.NewMetrics(""),
		logger:           logger,
		started:          time.Now().UTC(),
	}

	if err := server.Run(ctx, *httpAddr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// envOr returns the environment value or a default when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// createStores creates all required stores and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			purchases:   memory.NewPurchaseStore(),
			rates:       memory.NewRateStore(),
			performance: memory.NewPerformanceStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		purchases:   pgstore.NewPurchaseStore(pool),
		rates:       pgstore.NewRateStore(pool),
		performance: chstore.NewPerformanceStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts all components and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.logger.Println("Starting tracker service...")

	go s.priceLoop(ctx)
	if s.wsEndpoint != "" {
		go s.feedLoop(ctx)
	}
	go s.snapshotLoop(ctx)

	return s.serveHTTP(ctx, addr)
}

// priceLoop polls the spot API on an interval and caches the latest quote.
func (s *Server) priceLoop(ctx context.Context) {
	s.refreshPrice(ctx)

	ticker := time.NewTicker(s.priceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshPrice(ctx)
		}
	}
}

func (s *Server) refreshPrice(ctx context.Context) {
	quote, err := s.spot.Current(ctx, s.targetFiat)
	if err != nil {
		s.metrics.SpotRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Printf("Spot price fetch failed: %v", err)
		return
	}
	s.metrics.SpotRequestsTotal.WithLabelValues("success").Inc()

	s.mu.Lock()
	s.price = quote.Price
	s.priceAt = quote.FetchedAt
	s.mu.Unlock()
}

// feedLoop consumes the live ticker feed and keeps the cached price fresh
// between spot polls.
func (s *Server) feedLoop(ctx context.Context) {
	feed, err := pricing.NewTickerFeed(ctx, s.wsEndpoint, s.targetFiat, nil)
	if err != nil {
		s.logger.Printf("Ticker feed unavailable: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		feed.Close()
	}()

	for tick := range feed.Ticks() {
		s.metrics.TicksReceived.Inc()
		s.mu.Lock()
		s.price = tick.Price
		s.priceAt = tick.Time
		s.mu.Unlock()
	}
}

// currentPrice returns the cached price, or 0 when no quote arrived yet.
func (s *Server) currentPrice() (float64, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price, s.priceAt
}

// snapshotLoop runs scheduled snapshots that archive the series and write
// reports.
func (s *Server) snapshotLoop(ctx context.Context) {
	s.logger.Printf("Starting snapshot scheduler (interval: %v)...", s.snapshotInterval)

	s.runSnapshot(ctx)

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSnapshot(ctx)
		}
	}
}

// runSnapshot executes one archiving snapshot and writes reports.
func (s *Server) runSnapshot(ctx context.Context) {
	s.mu.Lock()
	if s.snapshotRunning {
		s.mu.Unlock()
		s.logger.Println("Snapshot already running, skipping...")
		return
	}
	s.snapshotRunning = true
	price := s.price
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.snapshotRunning = false
		s.lastSnapshotAt = time.Now().UTC()
		s.snapshotRuns++
		s.mu.Unlock()
	}()

	if price <= 0 {
		s.logger.Println("No price available yet, skipping snapshot")
		s.metrics.SnapshotRunsTotal.WithLabelValues("skipped").Inc()
		return
	}

	start := time.Now()

	snap := pipeline.NewSnapshot(s.stores.purchases, s.stores.rates).
		WithPerformanceStore(s.stores.performance).
		WithTargetFiat(s.targetFiat).
		WithBasis(s.basis)

	result, err := snap.Run(ctx, price, s.targetFiat)
	if err != nil {
		s.logger.Printf("Snapshot error: %v", err)
		s.metrics.SnapshotRunsTotal.WithLabelValues("error").Inc()
		return
	}

	s.metrics.SnapshotRunsTotal.WithLabelValues("success").Inc()
	s.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	s.metrics.PointsComputed.Add(float64(len(result.Points)))
	s.metrics.FXWarnings.Add(float64(len(result.Metrics.Warnings)))
	s.metrics.LastSuccessfulSnapshot.SetToCurrentTime()

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	if s.outputDir != "" {
		gen := reporting.NewGenerator(s.outputDir)
		err := gen.Write(&reporting.Report{
			GeneratedAt: result.ComputedAt,
			SeriesID:    result.SeriesID,
			Metrics:     result.Metrics,
			Points:      result.Points,
			Currencies:  result.Currencies,
		})
		if err != nil {
			s.logger.Printf("Report generation error: %v", err)
			return
		}
		s.metrics.ReportsGenerated.Inc()
	}

	s.logger.Printf("Snapshot %s completed in %v: %d purchases, %d points",
		result.SeriesID, time.Since(start), result.PurchaseCount, len(result.Points))
}

// querySnapshot computes a fresh, non-archiving snapshot for read requests.
func (s *Server) querySnapshot(ctx context.Context) (*pipeline.Result, error) {
	price, _ := s.currentPrice()
	if price <= 0 {
		return nil, errors.New("no price available yet")
	}

	snap := pipeline.NewSnapshot(s.stores.purchases, s.stores.rates).
		WithTargetFiat(s.targetFiat).
		WithBasis(s.basis)

	return snap.Run(ctx, price, s.targetFiat)
}

// serveHTTP runs the HTTP API with graceful shutdown.
func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.instrument("status", s.handleStatus))
	mux.HandleFunc("/portfolio/metrics", s.instrument("portfolio_metrics", s.handlePortfolioMetrics))
	mux.HandleFunc("/portfolio/performance", s.instrument("portfolio_performance", s.handlePortfolioPerformance))
	mux.HandleFunc("/portfolio/currencies", s.instrument("portfolio_currencies", s.handlePortfolioCurrencies))
	mux.HandleFunc("/purchases", s.instrument("purchases", s.handlePurchases))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return ctx.Err()
	}
}

// instrument wraps a handler with a request duration observation.
func (s *Server) instrument(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		s.metrics.HTTPRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status         string    `json:"status"`
	Uptime         string    `json:"uptime"`
	TargetFiat     string    `json:"target_fiat"`
	Basis          string    `json:"basis"`
	Price          float64   `json:"price,omitempty"`
	PriceAt        time.Time `json:"price_at,omitempty"`
	LastSnapshotAt time.Time `json:"last_snapshot_at,omitempty"`
	LastSeriesID   string    `json:"last_series_id,omitempty"`
	SnapshotRuns   int       `json:"snapshot_runs"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		TargetFiat:     s.targetFiat,
		Basis:          string(s.basis),
		Price:          s.price,
		PriceAt:        s.priceAt,
		LastSnapshotAt: s.lastSnapshotAt,
		SnapshotRuns:   s.snapshotRuns,
	}
	if s.lastResult != nil {
		resp.LastSeriesID = s.lastResult.SeriesID
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePortfolioMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.querySnapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, result.Metrics)
}

func (s *Server) handlePortfolioPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.querySnapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, result.Points)
}

func (s *Server) handlePortfolioCurrencies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	purchases, err := s.stores.purchases.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currencies": fx.DetectCurrencies(purchases),
	})
}

// PurchaseResponse summarizes one POST /purchases request.
type PurchaseResponse struct {
	Read       int      `json:"read"`
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
	Invalid    int      `json:"invalid"`
	Warnings   []string `json:"warnings,omitempty"`
}

// handlePurchases ingests purchase records posted as a JSON array or a
// single JSON object.
func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("read body: %v", err), http.StatusBadRequest)
		return
	}
	// A single object is accepted as a one-element batch.
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		body = append(append([]byte{'['}, trimmed...), ']')
	}

	records, err := ingestion.ReadJSON(bytes.NewReader(body))
	if err != nil {
		http.Error(w, fmt.Sprintf("decode body: %v", err), http.StatusBadRequest)
		return
	}

	resp := PurchaseResponse{Read: len(records)}
	s.metrics.RecordsRead.Add(float64(len(records)))

	for _, rec := range records {
		purchase, warnings, err := rec.ToPurchase()
		if err != nil {
			resp.Invalid++
			s.metrics.InvalidRecords.Inc()
			resp.Warnings = append(resp.Warnings, err.Error())
			continue
		}
		resp.Warnings = append(resp.Warnings, warnings...)
		s.metrics.IngestionWarnings.Add(float64(len(warnings)))

		switch err := s.stores.purchases.Insert(r.Context(), purchase); {
		case err == nil:
			resp.Inserted++
			s.metrics.PurchasesInserted.Inc()
		case errors.Is(err, storage.ErrDuplicateKey):
			resp.Duplicates++
			s.metrics.DuplicatesSkipped.Inc()
		default:
			http.Error(w, fmt.Sprintf("store purchase: %v", err), http.StatusInternalServerError)
			return
		}
	}

	status := http.StatusCreated
	if resp.Inserted == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
