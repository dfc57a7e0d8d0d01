// Package main provides the unified kolwatch service:
// - Webhook ingestion: wallet-transfer payloads parsed into trade records
// - Enrichment: tiered provider fallback chain for token metadata
// - API: recent trades, trending tokens, token detail, KOL leaderboard
// - Fan-out: WebSocket broadcast of enriched trades
// - Snapshots (scheduled): trending aggregates persisted to ClickHouse
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kolwatch/internal/broadcast"
	"kolwatch/internal/domain"
	"kolwatch/internal/enrich"
	"kolwatch/internal/ingestion"
	"kolwatch/internal/leaderboard"
	"kolwatch/internal/observability"
	"kolwatch/internal/provider"
	"kolwatch/internal/storage"
	chstore "kolwatch/internal/storage/clickhouse"
	"kolwatch/internal/storage/memory"
	"kolwatch/internal/storage/migrations"
	pgstore "kolwatch/internal/storage/postgres"
	"kolwatch/internal/tokenagg"
)

// Server holds all components of the unified service.
type Server struct {
	tradeStore    storage.TradeRecordStore
	snapshotStore storage.TokenSnapshotStore // nil without ClickHouse

	parser      *ingestion.Parser
	recentChain *enrich.Orchestrator // four-tier chain for trade views
	detailChain *enrich.Orchestrator // short chain for the token detail page
	providers   []provider.Provider
	hub         *broadcast.Hub
	metrics     *observability.Metrics
	logger      *log.Logger

	snapshotInterval time.Duration
	sweepInterval    time.Duration
	trendingWindow   int
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("KOLWATCH_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	walletsPath := flag.String("wallets", envOr("KOL_WALLETS_FILE", "wallets.json"), "Path to tracked wallets JSON file")
	snapshotInterval := flag.Duration("snapshot-interval", 5*time.Minute, "Trending snapshot interval")
	sweepInterval := flag.Duration("sweep-interval", 10*time.Minute, "Provider cache sweep interval")
	trendingWindow := flag.Int("trending-window", 500, "Number of recent trades feeding trending/leaderboard views")
	verbose := flag.Bool("verbose", false, "Verbose enrichment logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[kolwatch] ", log.LstdFlags)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	wallets, err := loadWallets(*walletsPath)
	if err != nil {
		logger.Fatalf("Failed to load wallets: %v", err)
	}
	if len(wallets) == 0 {
		logger.Fatal("No tracked wallets configured")
	}
	logger.Printf("Tracking %d wallet(s)", len(wallets))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tradeStore, snapshotStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")

	// Provider tier order: launch platform first (fresh tokens are usually
	// only known there), aggregator, DEX index, deep index last.
	pumpfun := provider.NewPumpFunClient(provider.PumpFunConfig{Logger: logger, Metrics: metrics})
	jupiter := provider.NewJupiterClient(provider.JupiterConfig{Logger: logger, Metrics: metrics})
	dexscreener := provider.NewDexScreenerClient(provider.DexScreenerConfig{Logger: logger, Metrics: metrics})
	birdeye := provider.NewBirdeyeClient(provider.BirdeyeConfig{
		APIKey:  os.Getenv("BIRDEYE_API_KEY"),
		Logger:  logger,
		Metrics: metrics,
	})

	server := &Server{
		tradeStore:    tradeStore,
		snapshotStore: snapshotStore,
		parser:        ingestion.NewParser(wallets),
		recentChain: enrich.New(enrich.Options{
			Tiers:   []provider.Provider{pumpfun, jupiter, dexscreener, birdeye},
			Logger:  logger,
			Metrics: metrics,
			Verbose: *verbose,
		}),
		detailChain: enrich.New(enrich.Options{
			Tiers:   []provider.Provider{jupiter, dexscreener},
			Logger:  logger,
			Metrics: metrics,
			Verbose: *verbose,
		}),
		providers:        []provider.Provider{pumpfun, jupiter, dexscreener, birdeye},
		hub:              broadcast.NewHub(broadcast.DefaultHubConfig(), logger, metrics),
		metrics:          metrics,
		logger:           logger,
		snapshotInterval: *snapshotInterval,
		sweepInterval:    *sweepInterval,
		trendingWindow:   *trendingWindow,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	go server.runSnapshotLoop(ctx)
	go server.runSweepLoop(ctx)

	httpServer := &http.Server{Addr: *addr, Handler: server.routes()}
	go func() {
		<-ctx.Done()
		server.hub.Close()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/api/trades/recent", s.handleRecentTrades)
	mux.HandleFunc("/api/tokens/trending", s.handleTrending)
	mux.HandleFunc("/api/tokens/", s.handleTokenDetail)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/wallets/", s.handleWalletTrades)
	mux.Handle("/ws", s.hub)

	return mux
}

// handleWebhook ingests a webhook delivery: parse, enrich through the full
// chain, persist (duplicate signatures are no-ops), broadcast what's new.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.metrics.WebhookRequests.Inc()

	var txs []ingestion.WebhookTransaction
	if err := json.NewDecoder(r.Body).Decode(&txs); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	records := s.parser.ParseBatch(txs, func(reason ingestion.SkipReason) {
		s.metrics.TradesSkipped.WithLabelValues(string(reason)).Inc()
	})
	if len(records) == 0 {
		writeJSON(w, map[string]int{"ingested": 0})
		return
	}

	enriched := s.recentChain.ResolveUnknowns(r.Context(), records)

	ptrs := make([]*domain.TradeRecord, len(enriched))
	for i := range enriched {
		ptrs[i] = &enriched[i]
	}
	inserted, err := s.tradeStore.InsertBatch(r.Context(), ptrs)
	if err != nil {
		s.logger.Printf("WARN webhook: store batch: %v", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.metrics.TradesIngested.Add(float64(inserted))

	for i := range enriched {
		s.hub.Broadcast(tradeResponse(enriched[i]))
	}

	writeJSON(w, map[string]int{"ingested": inserted})
}

// handleRecentTrades serves the recent-trades view. Records still UNKNOWN
// get another pass through the full chain, and resolved metadata is written
// back so the next read is warm.
func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)

	records, err := s.tradeStore.GetRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	enriched := s.resolveAndPersist(r.Context(), s.recentChain, records)

	out := make([]map[string]interface{}, len(enriched))
	for i, rec := range enriched {
		out[i] = tradeResponse(rec)
	}
	writeJSON(w, out)
}

// handleTrending serves token aggregates over the recent window, highest
// volume first.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	records, err := s.tradeStore.GetRecent(r.Context(), s.trendingWindow)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	aggs := tokenagg.GroupByToken(deref(records))
	tokenagg.SortByVolume(aggs)

	limit := intQuery(r, "limit", 20)
	if len(aggs) > limit {
		aggs = aggs[:limit]
	}
	for _, agg := range aggs {
		tokenagg.SortBuyersByTimeDesc(agg.Buyers)
	}
	writeJSON(w, aggs)
}

// handleTokenDetail serves one token's aggregate and trade history, enriched
// through the short detail chain.
func (s *Server) handleTokenDetail(w http.ResponseWriter, r *http.Request) {
	mintAddr := strings.TrimPrefix(r.URL.Path, "/api/tokens/")
	if mintAddr == "" || strings.Contains(mintAddr, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	records, err := s.tradeStore.GetByMint(r.Context(), mintAddr, intQuery(r, "limit", 100))
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	enriched := s.resolveAndPersist(r.Context(), s.detailChain, records)

	aggs := tokenagg.GroupByToken(enriched)
	if len(aggs) == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	agg := aggs[0]
	tokenagg.SortBuyersByTimeDesc(agg.Buyers)
	writeJSON(w, agg)
}

// handleWalletTrades serves one wallet's trade history, newest first.
func (s *Server) handleWalletTrades(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/wallets/")
	addr, suffix, found := strings.Cut(rest, "/")
	if addr == "" || !found || suffix != "trades" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	records, err := s.tradeStore.GetByWallet(r.Context(), addr, intQuery(r, "limit", 50))
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	enriched := s.resolveAndPersist(r.Context(), s.recentChain, records)
	out := make([]map[string]interface{}, len(enriched))
	for i, rec := range enriched {
		out[i] = tradeResponse(rec)
	}
	writeJSON(w, out)
}

// handleLeaderboard serves per-wallet rollups over the recent window.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	records, err := s.tradeStore.GetRecent(r.Context(), s.trendingWindow)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, leaderboard.Compute(deref(records)))
}

// resolveAndPersist runs records through a chain and writes newly resolved
// metadata back to the store. Returns the enriched records by value.
func (s *Server) resolveAndPersist(ctx context.Context, chain *enrich.Orchestrator, records []*domain.TradeRecord) []domain.TradeRecord {
	vals := deref(records)
	enriched := chain.ResolveUnknowns(ctx, vals)

	for i := range enriched {
		if enriched[i].HasSymbol() && !vals[i].HasSymbol() {
			rec := enriched[i]
			if err := s.tradeStore.UpdateMetadata(ctx, &rec); err != nil {
				s.logger.Printf("WARN write-back for %s: %v", rec.Signature, err)
			}
		}
	}
	return enriched
}

// runSnapshotLoop periodically persists trending aggregates to ClickHouse.
func (s *Server) runSnapshotLoop(ctx context.Context) {
	if s.snapshotStore == nil {
		s.logger.Println("Snapshot loop disabled (no ClickHouse)")
		return
	}

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

func (s *Server) runSnapshot(ctx context.Context) {
	s.metrics.SnapshotRuns.Inc()

	records, err := s.tradeStore.GetRecent(ctx, s.trendingWindow)
	if err != nil {
		s.metrics.SnapshotErrors.Inc()
		s.logger.Printf("WARN snapshot: load recent: %v", err)
		return
	}

	aggs := tokenagg.GroupByToken(deref(records))
	if len(aggs) == 0 {
		return
	}
	now := time.Now().UTC()
	snaps := make([]*domain.TokenSnapshot, len(aggs))
	for i, agg := range aggs {
		snaps[i] = domain.SnapshotFromAggregate(agg, now)
	}

	if err := s.snapshotStore.InsertBulk(ctx, snaps); err != nil {
		s.metrics.SnapshotErrors.Inc()
		s.logger.Printf("WARN snapshot: insert: %v", err)
		return
	}
	s.logger.Printf("Snapshot: %d token(s)", len(snaps))
}

// runSweepLoop drops stale provider cache entries.
func (s *Server) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range s.providers {
				if sweeper, ok := p.(interface{ SweepCache() }); ok {
					sweeper.SweepCache()
				}
			}
		}
	}
}

// createStores wires storage. ClickHouse is optional; without it the
// snapshot store is nil and the snapshot loop is disabled.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.TradeRecordStore, storage.TokenSnapshotStore, func(), error) {
	if useMemory {
		return memory.NewTradeRecordStore(), nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	if clickhouseDSN == "" {
		return pgstore.NewTradeRecordStore(pool), nil, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return pgstore.NewTradeRecordStore(pool), chstore.NewTokenSnapshotStore(chConn), cleanup, nil
}

// loadWallets reads the tracked wallet list from a JSON file.
func loadWallets(path string) ([]domain.KOLWallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var wallets []domain.KOLWallet
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wallets, nil
}

// tradeResponse is the wire shape for one trade record.
func tradeResponse(t domain.TradeRecord) map[string]interface{} {
	return map[string]interface{}{
		"signature":      t.Signature,
		"wallet":         t.WalletAddress,
		"walletName":     t.WalletName,
		"mint":           t.TokenMint,
		"symbol":         t.TokenSymbol,
		"name":           t.TokenName,
		"logo":           t.TokenLogo,
		"priceUsd":       t.PriceUSD,
		"marketCapUsd":   t.MarketCapUSD,
		"liquidityUsd":   t.LiquidityUSD,
		"volume24h":      t.Volume24h,
		"priceChange24h": t.PriceChange24h,
		"baseAmount":     t.BaseAmount,
		"quoteAmount":    t.QuoteAmount,
		"side":           string(t.Side),
		"timestamp":      t.Timestamp,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent; nothing sensible left to do.
		return
	}
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n
}

func deref(records []*domain.TradeRecord) []domain.TradeRecord {
	out := make([]domain.TradeRecord, len(records))
	for i, r := range records {
		out[i] = *r
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
