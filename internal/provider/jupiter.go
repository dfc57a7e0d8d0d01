package provider

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/observability"
)

// Jupiter aggregator defaults. Price-sensitive, so the TTL is short.
const (
	DefaultJupiterBaseURL  = "https://lite-api.jup.ag"
	DefaultJupiterTTL      = 60 * time.Second
	DefaultJupiterInterval = 50 * time.Millisecond
)

// JupiterConfig configures the Jupiter client.
type JupiterConfig struct {
	BaseURL      string
	TTL          time.Duration
	CallInterval time.Duration
	HTTPClient   *http.Client
	Logger       *log.Logger
	Metrics      *observability.Metrics
}

// JupiterClient resolves tokens through the Jupiter aggregator: token list
// metadata plus the v2 price feed.
type JupiterClient struct {
	core
	api *apiClient
}

// NewJupiterClient creates a Jupiter provider client.
func NewJupiterClient(cfg JupiterConfig) *JupiterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultJupiterBaseURL
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultJupiterTTL
	}
	if cfg.CallInterval == 0 {
		cfg.CallInterval = DefaultJupiterInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	c := &JupiterClient{
		api: newAPIClient(cfg.BaseURL, cfg.HTTPClient, nil),
	}
	c.core = core{
		name:    "jupiter",
		enabled: true,
		cache:   NewCache(cfg.TTL),
		pacer:   NewPacer(cfg.CallInterval),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	c.core.remote = c.fetchToken
	return c
}

var _ Provider = (*JupiterClient)(nil)

// jupTokenResponse is the raw /tokens/v1/token/{mint} response shape.
type jupTokenResponse struct {
	Address     string  `json:"address"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	LogoURI     string  `json:"logoURI"`
	DailyVolume float64 `json:"daily_volume"`
}

// jupPriceResponse is the raw /price/v2 response shape. Prices arrive as
// decimal strings.
type jupPriceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

func (c *JupiterClient) fetchToken(ctx context.Context, mintAddr string) (*domain.ProviderMetadata, error) {
	var tok jupTokenResponse
	if err := c.api.getJSON(ctx, "/tokens/v1/token/"+mintAddr, &tok); err != nil {
		return nil, err
	}

	meta := &domain.ProviderMetadata{
		Symbol:    strPtr(tok.Symbol),
		Name:      strPtr(tok.Name),
		Logo:      strPtr(tok.LogoURI),
		Volume24h: floatPtr(tok.DailyVolume),
	}

	// Price is a separate feed; its absence does not void the metadata.
	var prices jupPriceResponse
	if err := c.api.getJSON(ctx, "/price/v2?ids="+mintAddr, &prices); err == nil {
		if entry, ok := prices.Data[mintAddr]; ok && entry.Price != "" {
			if p, err := strconv.ParseFloat(entry.Price, 64); err == nil {
				meta.PriceUSD = floatPtr(p)
			} else {
				c.logger.Printf("WARN jupiter: mint %s: bad price %q", mintAddr, entry.Price)
			}
		}
	} else {
		c.logger.Printf("WARN jupiter: mint %s: %v", mintAddr, fmt.Errorf("price lookup: %w", err))
	}

	return meta, nil
}
