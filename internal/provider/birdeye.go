package provider

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/observability"
)

// Birdeye defaults. Keyed deep-index API, last resort of the chain.
const (
	DefaultBirdeyeBaseURL  = "https://public-api.birdeye.so"
	DefaultBirdeyeTTL      = 5 * time.Minute
	DefaultBirdeyeInterval = 200 * time.Millisecond
)

// BirdeyeConfig configures the Birdeye client. An empty APIKey degrades the
// client to permanent no-data without attempting network I/O; the rest of the
// chain still runs.
type BirdeyeConfig struct {
	APIKey       string
	BaseURL      string
	TTL          time.Duration
	CallInterval time.Duration
	HTTPClient   *http.Client
	Logger       *log.Logger
	Metrics      *observability.Metrics
}

// BirdeyeClient resolves tokens through the Birdeye deep index. Besides the
// shared contract it exposes FetchMarketCapInputs for raw supply/decimals,
// and derives a market cap from supply × price when the overview lacks one.
type BirdeyeClient struct {
	core
	api *apiClient

	// supply lookups share the provider's TTL and failure rules but have
	// their own cache, keyed by mint.
	supplyMu    sync.Mutex
	supplyCache map[string]supplyEntry
	clock       func() time.Time
	ttl         time.Duration
}

type supplyEntry struct {
	supply    *domain.MintSupply // nil records a confirmed miss
	fetchedAt time.Time
}

// NewBirdeyeClient creates a Birdeye provider client.
func NewBirdeyeClient(cfg BirdeyeConfig) *BirdeyeClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBirdeyeBaseURL
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultBirdeyeTTL
	}
	if cfg.CallInterval == 0 {
		cfg.CallInterval = DefaultBirdeyeInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	var headers map[string]string
	if cfg.APIKey != "" {
		headers = map[string]string{"X-API-KEY": cfg.APIKey}
	}

	c := &BirdeyeClient{
		api:         newAPIClient(cfg.BaseURL, cfg.HTTPClient, headers),
		supplyCache: make(map[string]supplyEntry),
		clock:       time.Now,
		ttl:         cfg.TTL,
	}
	c.core = core{
		name:    "birdeye",
		enabled: cfg.APIKey != "",
		cache:   NewCache(cfg.TTL),
		pacer:   NewPacer(cfg.CallInterval),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	c.core.remote = c.fetchOverview
	return c
}

var _ Provider = (*BirdeyeClient)(nil)

// SweepCache drops expired entries from both the metadata and supply caches.
func (c *BirdeyeClient) SweepCache() {
	c.core.SweepCache()
	c.supplyMu.Lock()
	now := c.clock()
	for k, entry := range c.supplyCache {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.supplyCache, k)
		}
	}
	c.supplyMu.Unlock()
}

// WithClock sets a custom clock on the client and its caches for tests.
func (c *BirdeyeClient) WithClock(clock func() time.Time) *BirdeyeClient {
	c.clock = clock
	c.cache.WithClock(clock)
	c.pacer.WithClock(clock)
	return c
}

// birdeyeOverviewResponse is the raw /defi/token_overview response shape.
type birdeyeOverviewResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Name                  string  `json:"name"`
		Symbol                string  `json:"symbol"`
		LogoURI               string  `json:"logoURI"`
		Price                 float64 `json:"price"`
		Liquidity             float64 `json:"liquidity"`
		MC                    float64 `json:"mc"`
		V24hUSD               float64 `json:"v24hUSD"`
		PriceChange24hPercent float64 `json:"priceChange24hPercent"`
		Supply                float64 `json:"supply"`
		Decimals              int     `json:"decimals"`
	} `json:"data"`
}

func (c *BirdeyeClient) fetchOverview(ctx context.Context, mintAddr string) (*domain.ProviderMetadata, error) {
	var resp birdeyeOverviewResponse
	if err := c.api.getJSON(ctx, "/defi/token_overview?address="+mintAddr, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, nil
	}

	d := resp.Data
	meta := &domain.ProviderMetadata{
		Symbol:         strPtr(d.Symbol),
		Name:           strPtr(d.Name),
		Logo:           strPtr(d.LogoURI),
		PriceUSD:       floatPtr(d.Price),
		LiquidityUSD:   floatPtr(d.Liquidity),
		Volume24h:      floatPtr(d.V24hUSD),
		PriceChange24h: floatPtr(d.PriceChange24hPercent),
		MarketCapUSD:   floatPtr(d.MC),
	}

	// The overview already reports supply decimal-adjusted, so the
	// derivation here skips the decimals divide.
	if meta.MarketCapUSD == nil && d.Supply > 0 && d.Price > 0 {
		meta.MarketCapUSD = DeriveMarketCap(domain.MintSupply{SupplyRaw: d.Supply, Decimals: 0}, d.Price)
	}

	return meta, nil
}

// FetchMarketCapInputs resolves raw supply and decimals for each mint. Mints
// the provider does not know are absent from the result map. Failure rules
// match FetchOne: status errors cache a miss, transport errors stay
// retry-eligible.
func (c *BirdeyeClient) FetchMarketCapInputs(ctx context.Context, mints []string) map[string]domain.MintSupply {
	out := make(map[string]domain.MintSupply)
	if !c.enabled {
		return out
	}

	for _, m := range mints {
		if supply := c.fetchSupplyCached(ctx, m); supply != nil {
			out[m] = *supply
		}
	}
	return out
}

func (c *BirdeyeClient) fetchSupplyCached(ctx context.Context, mintAddr string) *domain.MintSupply {
	c.supplyMu.Lock()
	entry, ok := c.supplyCache[mintAddr]
	c.supplyMu.Unlock()
	if ok && c.clock().Sub(entry.fetchedAt) <= c.ttl {
		return entry.supply
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil
	}

	supply, err := c.fetchSupply(ctx, mintAddr)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			c.logger.Printf("WARN birdeye: supply for %s: %v, caching miss", mintAddr, err)
			c.putSupply(mintAddr, nil)
		} else {
			c.logger.Printf("WARN birdeye: supply for %s: %v", mintAddr, err)
		}
		return nil
	}

	c.putSupply(mintAddr, supply)
	return supply
}

func (c *BirdeyeClient) putSupply(mintAddr string, supply *domain.MintSupply) {
	c.supplyMu.Lock()
	c.supplyCache[mintAddr] = supplyEntry{supply: supply, fetchedAt: c.clock()}
	c.supplyMu.Unlock()
}

// birdeyeSupplyResponse is the raw /defi/v3/token/supply response shape.
type birdeyeSupplyResponse struct {
	Success bool `json:"success"`
	Data    struct {
		SupplyRaw float64 `json:"rawAmount"`
		Decimals  int     `json:"decimals"`
	} `json:"data"`
}

func (c *BirdeyeClient) fetchSupply(ctx context.Context, mintAddr string) (*domain.MintSupply, error) {
	var resp birdeyeSupplyResponse
	if err := c.api.getJSON(ctx, "/defi/v3/token/supply?address="+mintAddr, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data.SupplyRaw <= 0 {
		return nil, nil
	}
	return &domain.MintSupply{SupplyRaw: resp.Data.SupplyRaw, Decimals: resp.Data.Decimals}, nil
}
