// Package main provides a one-shot backfill tool: it loads trade records
// whose token symbol is still unresolved, runs them through the full
// provider chain, and writes resolved metadata back.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/enrich"
	"kolwatch/internal/observability"
	"kolwatch/internal/provider"
	"kolwatch/internal/storage/migrations"
	pgstore "kolwatch/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	since := flag.Duration("since", 24*time.Hour, "How far back to look for unresolved records")
	limit := flag.Int("limit", 1000, "Maximum records to process")
	verbose := flag.Bool("verbose", false, "Verbose enrichment logging")
	flag.Parse()

	logger := log.New(os.Stdout, "[enrich] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	store := pgstore.NewTradeRecordStore(pool)

	records, err := store.GetUnresolvedSince(ctx, time.Now().Add(-*since), *limit)
	if err != nil {
		logger.Fatalf("Failed to load unresolved records: %v", err)
	}
	if len(records) == 0 {
		logger.Println("Nothing to backfill")
		return
	}
	logger.Printf("Backfilling %d record(s)", len(records))

	metrics := observability.NewMetrics("")
	chain := enrich.New(enrich.Options{
		Tiers: []provider.Provider{
			provider.NewPumpFunClient(provider.PumpFunConfig{Logger: logger, Metrics: metrics}),
			provider.NewJupiterClient(provider.JupiterConfig{Logger: logger, Metrics: metrics}),
			provider.NewDexScreenerClient(provider.DexScreenerConfig{Logger: logger, Metrics: metrics}),
			provider.NewBirdeyeClient(provider.BirdeyeConfig{
				APIKey:  os.Getenv("BIRDEYE_API_KEY"),
				Logger:  logger,
				Metrics: metrics,
			}),
		},
		Logger:  logger,
		Metrics: metrics,
		Verbose: *verbose,
	})

	recs := make([]domain.TradeRecord, len(records))
	for i, r := range records {
		recs[i] = *r
	}
	enriched := chain.ResolveUnknowns(ctx, recs)

	var updated int
	for i := range enriched {
		if enriched[i].HasSymbol() && !recs[i].HasSymbol() {
			rec := enriched[i]
			if err := store.UpdateMetadata(ctx, &rec); err != nil {
				logger.Printf("WARN write-back for %s: %v", rec.Signature, err)
				continue
			}
			updated++
		}
	}

	logger.Printf("Done: %d of %d resolved", updated, len(records))
}
