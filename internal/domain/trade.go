package domain

import "time"

// UnknownSymbol is the placeholder for a token whose metadata has not been
// resolved yet. It is a legitimate renderable state, not an error.
const UnknownSymbol = "UNKNOWN"

// Side of a detected trade.
type Side string

// Trade side constants.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord represents a single detected KOL buy/sell event.
// Corresponds to trade_records table in PostgreSQL.
type TradeRecord struct {
	Signature     string // transaction signature, global idempotency key
	WalletAddress string // tracked KOL wallet
	WalletName    string // display name of the tracked wallet

	TokenMint   string // normalized mint address
	TokenSymbol string // UnknownSymbol until enriched
	TokenName   *string
	TokenLogo   *string

	PriceUSD       *float64 // nullable, USD
	MarketCapUSD   *float64
	LiquidityUSD   *float64
	Volume24h      *float64
	PriceChange24h *float64 // percent

	BaseAmount  float64 // token quantity traded
	QuoteAmount float64 // native-currency (SOL) amount
	Side        Side
	Timestamp   time.Time
}

// HasSymbol reports whether the record carries a resolved token symbol.
func (t TradeRecord) HasSymbol() bool {
	return t.TokenSymbol != "" && t.TokenSymbol != UnknownSymbol
}
