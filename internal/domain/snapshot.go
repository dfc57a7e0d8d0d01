package domain

import "time"

// TokenSnapshot is one trending-view observation of a token aggregate,
// persisted as a timeseries. Corresponds to token_snapshots in ClickHouse.
type TokenSnapshot struct {
	Mint         string
	Symbol       string
	PriceUSD     *float64
	MarketCapUSD *float64
	LiquidityUSD *float64
	Bonded       bool
	TotalVolume  float64
	TradeCount   int
	CapturedAt   time.Time
}

// SnapshotFromAggregate captures an aggregate at a point in time.
func SnapshotFromAggregate(agg *TokenAggregate, at time.Time) *TokenSnapshot {
	return &TokenSnapshot{
		Mint:         agg.Mint,
		Symbol:       agg.Symbol,
		PriceUSD:     agg.PriceUSD,
		MarketCapUSD: agg.MarketCapUSD,
		LiquidityUSD: agg.LiquidityUSD,
		Bonded:       agg.Bonded,
		TotalVolume:  agg.TotalVolume,
		TradeCount:   agg.TradeCount,
		CapturedAt:   at,
	}
}
