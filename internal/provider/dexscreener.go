package provider

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/observability"
)

// DexScreener defaults. Unauthenticated pair index with a moderate limit.
const (
	DefaultDexScreenerBaseURL  = "https://api.dexscreener.com"
	DefaultDexScreenerTTL      = 60 * time.Second
	DefaultDexScreenerInterval = 100 * time.Millisecond
)

// DexScreenerConfig configures the DexScreener client.
type DexScreenerConfig struct {
	BaseURL      string
	TTL          time.Duration
	CallInterval time.Duration
	HTTPClient   *http.Client
	Logger       *log.Logger
	Metrics      *observability.Metrics
}

// DexScreenerClient resolves tokens through the DexScreener pair index.
// A token can trade on several pairs; the highest-liquidity pair wins.
type DexScreenerClient struct {
	core
	api *apiClient
}

// NewDexScreenerClient creates a DexScreener provider client.
func NewDexScreenerClient(cfg DexScreenerConfig) *DexScreenerClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDexScreenerBaseURL
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultDexScreenerTTL
	}
	if cfg.CallInterval == 0 {
		cfg.CallInterval = DefaultDexScreenerInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	c := &DexScreenerClient{
		api: newAPIClient(cfg.BaseURL, cfg.HTTPClient, nil),
	}
	c.core = core{
		name:    "dexscreener",
		enabled: true,
		cache:   NewCache(cfg.TTL),
		pacer:   NewPacer(cfg.CallInterval),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	c.core.remote = c.fetchPairs
	return c
}

var _ Provider = (*DexScreenerClient)(nil)

// dexPairsResponse is the raw /latest/dex/tokens/{mint} response shape.
// priceUsd arrives as a decimal string.
type dexPairsResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	BaseToken struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	MarketCap float64 `json:"marketCap"`
	FDV       float64 `json:"fdv"`
	Info      struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

func (c *DexScreenerClient) fetchPairs(ctx context.Context, mintAddr string) (*domain.ProviderMetadata, error) {
	var resp dexPairsResponse
	if err := c.api.getJSON(ctx, "/latest/dex/tokens/"+mintAddr, &resp); err != nil {
		return nil, err
	}
	if len(resp.Pairs) == 0 {
		return nil, nil
	}

	best := resp.Pairs[0]
	for _, p := range resp.Pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	meta := &domain.ProviderMetadata{
		Symbol:         strPtr(best.BaseToken.Symbol),
		Name:           strPtr(best.BaseToken.Name),
		Logo:           strPtr(best.Info.ImageURL),
		LiquidityUSD:   floatPtr(best.Liquidity.USD),
		Volume24h:      floatPtr(best.Volume.H24),
		PriceChange24h: floatPtr(best.PriceChange.H24),
	}

	if p, err := strconv.ParseFloat(best.PriceUSD, 64); err == nil {
		meta.PriceUSD = floatPtr(p)
	}

	// Some pairs report FDV but no circulating market cap.
	if best.MarketCap > 0 {
		meta.MarketCapUSD = floatPtr(best.MarketCap)
	} else if best.FDV > 0 {
		meta.MarketCapUSD = floatPtr(best.FDV)
	}

	return meta, nil
}
