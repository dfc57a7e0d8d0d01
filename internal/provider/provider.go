// Package provider implements the token-metadata provider clients.
// Each client wraps one external API behind the shared Provider contract:
// a TTL cache with negative entries, fixed-interval pacing of outbound
// calls, and a uniform field-merge rule. Provider-specific response shapes
// are adapted to domain.ProviderMetadata at the client boundary and never
// leak out of this package.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kolwatch/internal/domain"
	"kolwatch/internal/mint"
	"kolwatch/internal/observability"
)

// Provider is the shared contract implemented by every provider client.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// FetchOne resolves a single mint. Returns nil when the provider has no
	// data, is rate-limited out, or is not configured. Never returns an
	// error: provider failures are logged, not propagated.
	FetchOne(ctx context.Context, mintAddr string) *domain.ProviderMetadata

	// EnrichBatch resolves the deduplicated mints of records sequentially
	// and returns a new slice with metadata merged into matching records.
	// Records whose mint had no resolvable metadata pass through unchanged.
	EnrichBatch(ctx context.Context, records []domain.TradeRecord) []domain.TradeRecord
}

// StatusError is a non-2xx HTTP response from a provider. It is treated as
// "confirmed no data" and cached for the TTL window, unlike transport
// failures which stay retry-eligible.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// core carries the shared client machinery. Concrete clients embed it and
// supply their wire adapter through the remote field.
type core struct {
	name    string
	enabled bool
	cache   *Cache
	pacer   *Pacer
	logger  *log.Logger
	metrics *observability.Metrics

	// remote performs one outbound lookup for a normalized mint.
	// A *StatusError marks a confirmed miss; any other error is a
	// transport failure.
	remote func(ctx context.Context, mintAddr string) (*domain.ProviderMetadata, error)
}

// Name identifies the provider.
func (c *core) Name() string { return c.name }

// SweepCache drops expired cache entries.
func (c *core) SweepCache() { c.cache.Sweep() }

// FetchOne implements the shared single-mint lookup: normalize, consult the
// cache, then issue at most one paced outbound call.
func (c *core) FetchOne(ctx context.Context, mintAddr string) *domain.ProviderMetadata {
	key := mint.Normalize(mintAddr)
	if !mint.IsValid(key) {
		return nil
	}

	if meta, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.ProviderCacheHits.WithLabelValues(c.name).Inc()
		}
		return meta
	}

	// Missing credential degrades the provider to permanent no-data.
	if !c.enabled {
		return nil
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil
	}

	if c.metrics != nil {
		c.metrics.ProviderCalls.WithLabelValues(c.name).Inc()
	}

	meta, err := c.remote(ctx, key)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			// Confirmed miss: remember it so we don't hammer the provider
			// for a mint it does not know within the TTL window.
			c.logger.Printf("WARN %s: mint %s: %v, caching miss", c.name, key, err)
			c.cache.Put(key, nil)
			if c.metrics != nil {
				c.metrics.ProviderErrors.WithLabelValues(c.name, "status").Inc()
			}
		} else {
			// Transport failure: uncached, retried on the next window.
			c.logger.Printf("WARN %s: mint %s: %v", c.name, key, err)
			if c.metrics != nil {
				c.metrics.ProviderErrors.WithLabelValues(c.name, "transport").Inc()
			}
		}
		return nil
	}

	if meta.IsEmpty() {
		meta = nil
	}
	c.cache.Put(key, meta)
	return meta
}

// EnrichBatch resolves each distinct mint once, in first-appearance order,
// then maps every record through the merge rule.
func (c *core) EnrichBatch(ctx context.Context, records []domain.TradeRecord) []domain.TradeRecord {
	if len(records) == 0 {
		return records
	}

	var mints []string
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		key := mint.Normalize(rec.TokenMint)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		mints = append(mints, key)
	}

	resolved := make(map[string]*domain.ProviderMetadata, len(mints))
	for _, m := range mints {
		// A failure for one mint must not abort the rest of the batch;
		// FetchOne reports failures as nil.
		if meta := c.FetchOne(ctx, m); meta != nil {
			resolved[m] = meta
		}
	}

	out := make([]domain.TradeRecord, len(records))
	for i, rec := range records {
		if meta, ok := resolved[mint.Normalize(rec.TokenMint)]; ok {
			out[i] = ApplyMetadata(rec, meta)
		} else {
			out[i] = rec
		}
	}
	return out
}
