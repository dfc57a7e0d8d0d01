// Package enrich drives the tiered token-metadata fallback chain.
// Providers are tried in a fixed order; each tier only sees the records the
// previous tiers failed to resolve, and its results are spliced back by
// transaction signature so the output keeps the input order.
package enrich

import (
	"context"
	"log"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/observability"
	"kolwatch/internal/provider"
)

// Orchestrator runs a fixed provider tier order over batches of trade
// records. Provider failures never propagate: records that no tier could
// resolve come back with the UNKNOWN sentinel intact, which is a legitimate
// terminal state.
type Orchestrator struct {
	tiers   []provider.Provider
	logger  *log.Logger
	metrics *observability.Metrics
	verbose bool
}

// Options for creating an Orchestrator.
type Options struct {
	// Tiers is the fixed provider fallback order.
	Tiers []provider.Provider

	Logger  *log.Logger
	Metrics *observability.Metrics
	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		tiers:   opts.Tiers,
		logger:  logger,
		metrics: opts.Metrics,
		verbose: opts.Verbose,
	}
}

// ResolveUnknowns enriches a batch through the tier chain and returns a new
// slice in the same order as the input. Only records whose symbol is still
// the UNKNOWN sentinel enter the first tier; each later tier receives only
// what the previous tiers left unresolved. The chain short-circuits as soon
// as nothing is left to resolve.
func (o *Orchestrator) ResolveUnknowns(ctx context.Context, records []domain.TradeRecord) []domain.TradeRecord {
	if len(records) == 0 {
		return records
	}

	start := time.Now()
	out := make([]domain.TradeRecord, len(records))
	copy(out, records)

	// Signatures are the per-record identity: several records can share a
	// mint, so splicing by mint would misplace results.
	position := make(map[string]int, len(out))
	for i, rec := range out {
		position[rec.Signature] = i
	}

	pending := stillUnknown(out)
	initialUnknown := len(pending)

	for _, tier := range o.tiers {
		if len(pending) == 0 {
			break
		}
		o.logf("tier %s: resolving %d record(s)", tier.Name(), len(pending))

		enriched := tier.EnrichBatch(ctx, pending)
		for _, rec := range enriched {
			if i, ok := position[rec.Signature]; ok {
				out[i] = rec
			}
		}
		pending = stillUnknown(enriched)
	}

	if len(pending) > 0 {
		o.logf("%d record(s) unresolved after last tier", len(pending))
	}

	if o.metrics != nil {
		o.metrics.EnrichmentBatches.Inc()
		o.metrics.EnrichmentDuration.Observe(time.Since(start).Seconds())
		o.metrics.RecordsUnresolved.Add(float64(len(pending)))
		o.metrics.RecordsResolved.Add(float64(initialUnknown - len(pending)))
	}

	return out
}

// stillUnknown returns the subset of records whose symbol is unresolved.
func stillUnknown(records []domain.TradeRecord) []domain.TradeRecord {
	var unknown []domain.TradeRecord
	for _, rec := range records {
		if !rec.HasSymbol() {
			unknown = append(unknown, rec)
		}
	}
	return unknown
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Printf(format, args...)
	}
}
