package provider

import (
	"context"
	"log"
	"net/http"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/observability"
)

// Pump.fun frontend API defaults. The API is unauthenticated but has the
// tightest rate limit of the four providers, hence the long TTL and the
// slowest pacing.
const (
	DefaultPumpFunBaseURL  = "https://frontend-api.pump.fun"
	DefaultPumpFunTTL      = 15 * time.Minute
	DefaultPumpFunInterval = 200 * time.Millisecond
)

// PumpFunConfig configures the pump.fun client.
type PumpFunConfig struct {
	BaseURL      string
	TTL          time.Duration
	CallInterval time.Duration
	HTTPClient   *http.Client
	Logger       *log.Logger
	Metrics      *observability.Metrics
}

// PumpFunClient resolves launch-platform-native tokens. It is the first tier
// of the enrichment chain: freshly launched tokens are usually only known
// here.
type PumpFunClient struct {
	core
	api *apiClient
}

// NewPumpFunClient creates a pump.fun provider client.
func NewPumpFunClient(cfg PumpFunConfig) *PumpFunClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPumpFunBaseURL
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultPumpFunTTL
	}
	if cfg.CallInterval == 0 {
		cfg.CallInterval = DefaultPumpFunInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	c := &PumpFunClient{
		api: newAPIClient(cfg.BaseURL, cfg.HTTPClient, nil),
	}
	c.core = core{
		name:    "pumpfun",
		enabled: true,
		cache:   NewCache(cfg.TTL),
		pacer:   NewPacer(cfg.CallInterval),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	c.core.remote = c.fetchCoin
	return c
}

var _ Provider = (*PumpFunClient)(nil)

// pumpCoinResponse is the raw /coins/{mint} response shape.
type pumpCoinResponse struct {
	Mint               string  `json:"mint"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	ImageURI           string  `json:"image_uri"`
	USDMarketCap       float64 `json:"usd_market_cap"`
	VirtualSolReserves float64 `json:"virtual_sol_reserves"`
	Complete           bool    `json:"complete"`
}

func (c *PumpFunClient) fetchCoin(ctx context.Context, mintAddr string) (*domain.ProviderMetadata, error) {
	var resp pumpCoinResponse
	if err := c.api.getJSON(ctx, "/coins/"+mintAddr, &resp); err != nil {
		return nil, err
	}

	return &domain.ProviderMetadata{
		Symbol:       strPtr(resp.Symbol),
		Name:         strPtr(resp.Name),
		Logo:         strPtr(resp.ImageURI),
		MarketCapUSD: floatPtr(resp.USDMarketCap),
	}, nil
}
