package domain

// ProviderMetadata is the canonical shape a provider client returns for one
// mint. Provider-specific response fields never leak past the client boundary.
type ProviderMetadata struct {
	Symbol         *string
	Name           *string
	Logo           *string
	PriceUSD       *float64
	MarketCapUSD   *float64
	LiquidityUSD   *float64
	Volume24h      *float64
	PriceChange24h *float64 // percent
}

// IsEmpty reports whether the metadata carries no usable fields.
func (m *ProviderMetadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.Symbol == nil && m.Name == nil && m.Logo == nil &&
		m.PriceUSD == nil && m.MarketCapUSD == nil && m.LiquidityUSD == nil &&
		m.Volume24h == nil && m.PriceChange24h == nil
}

// MintSupply holds the raw supply inputs needed to derive a market cap.
type MintSupply struct {
	SupplyRaw float64 // raw units, not decimal-adjusted
	Decimals  int
}
