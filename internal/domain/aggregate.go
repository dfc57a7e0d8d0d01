package domain

import "time"

// BondingThresholdUSD is the market cap above which a token is considered to
// have exited its initial liquidity-curve phase.
const BondingThresholdUSD = 69_000.0

// TokenBuyer is one trade folded into a TokenAggregate, kept for the
// per-token buyer list on the frontend.
type TokenBuyer struct {
	WalletAddress string
	WalletName    string
	Side          Side
	BaseAmount    float64
	QuoteAmount   float64
	Timestamp     time.Time
}

// TokenAggregate is a per-token rollup over a collection of enriched trade
// records sharing a mint. Built by tokenagg, never persisted as-is.
type TokenAggregate struct {
	Mint   string
	Symbol string
	Name   *string
	Logo   *string

	PriceUSD     *float64
	MarketCapUSD *float64
	LiquidityUSD *float64

	// Bonded is recomputed whenever a non-nil market cap is folded in, but
	// never regresses to false on records that lack market-cap data.
	Bonded bool

	Buyers      []TokenBuyer
	TotalVolume float64 // sum of quote amounts
	TradeCount  int
	LatestTrade time.Time
}

// KOLWallet is a tracked wallet whose activity is surfaced to end users.
type KOLWallet struct {
	Address   string
	Name      string
	AvatarURI string
}
