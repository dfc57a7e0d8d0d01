package provider

import (
	"math"

	"kolwatch/internal/domain"
)

// ApplyMetadata merges provider metadata onto a trade record and returns the
// merged copy. A field already present and non-default on the record is never
// overwritten: only absent, nil, or sentinel-valued fields are filled in.
// Later tiers therefore cannot clobber data an earlier tier (or the webhook
// itself) already supplied.
func ApplyMetadata(rec domain.TradeRecord, meta *domain.ProviderMetadata) domain.TradeRecord {
	if meta == nil {
		return rec
	}

	if !rec.HasSymbol() && meta.Symbol != nil && *meta.Symbol != "" {
		rec.TokenSymbol = *meta.Symbol
	}
	if rec.TokenName == nil && meta.Name != nil {
		rec.TokenName = meta.Name
	}
	if rec.TokenLogo == nil && meta.Logo != nil {
		rec.TokenLogo = meta.Logo
	}
	if rec.PriceUSD == nil && meta.PriceUSD != nil {
		rec.PriceUSD = meta.PriceUSD
	}
	if rec.MarketCapUSD == nil && meta.MarketCapUSD != nil {
		rec.MarketCapUSD = meta.MarketCapUSD
	}
	if rec.LiquidityUSD == nil && meta.LiquidityUSD != nil {
		rec.LiquidityUSD = meta.LiquidityUSD
	}
	if rec.Volume24h == nil && meta.Volume24h != nil {
		rec.Volume24h = meta.Volume24h
	}
	if rec.PriceChange24h == nil && meta.PriceChange24h != nil {
		rec.PriceChange24h = meta.PriceChange24h
	}
	return rec
}

// DeriveMarketCap computes market cap from raw supply, decimals, and a USD
// price. Returns nil when any input makes the derivation meaningless; there
// is no numeric fallback for a failed derivation.
func DeriveMarketCap(supply domain.MintSupply, priceUSD float64) *float64 {
	if supply.SupplyRaw <= 0 || priceUSD <= 0 {
		return nil
	}
	if supply.Decimals < 0 || supply.Decimals > 18 {
		return nil
	}
	mc := supply.SupplyRaw / math.Pow10(supply.Decimals) * priceUSD
	if math.IsNaN(mc) || math.IsInf(mc, 0) {
		return nil
	}
	return &mc
}
