// Package tokenagg groups enriched trade records into per-token aggregates.
package tokenagg

import (
	"sort"

	"kolwatch/internal/domain"
)

// GroupByToken groups records by mint and folds them into aggregates.
// Groups appear in first-record order, so output is deterministic for a
// fixed input order.
//
// Records without a mint fall back to the symbol as the grouping key. Known
// limitation: two mintless records sharing a placeholder symbol (e.g.
// UNKNOWN) merge into one group.
//
// Field folding is first-non-empty-wins: the record that establishes a group
// seeds every field, and later records only fill fields the group does not
// have yet. Two exceptions: LatestTrade always takes the most recent
// timestamp, and Bonded is recomputed from every non-nil market cap folded
// in (a record lacking market-cap data leaves an already-true flag alone).
func GroupByToken(records []domain.TradeRecord) []*domain.TokenAggregate {
	var order []string
	groups := make(map[string]*domain.TokenAggregate)

	for _, rec := range records {
		key := rec.TokenMint
		if key == "" {
			key = rec.TokenSymbol
		}
		if key == "" {
			continue
		}

		agg, ok := groups[key]
		if !ok {
			agg = seedAggregate(rec)
			groups[key] = agg
			order = append(order, key)
		} else {
			foldRecord(agg, rec)
		}

		agg.Buyers = append(agg.Buyers, domain.TokenBuyer{
			WalletAddress: rec.WalletAddress,
			WalletName:    rec.WalletName,
			Side:          rec.Side,
			BaseAmount:    rec.BaseAmount,
			QuoteAmount:   rec.QuoteAmount,
			Timestamp:     rec.Timestamp,
		})
		agg.TotalVolume += rec.QuoteAmount
		agg.TradeCount++
		if rec.Timestamp.After(agg.LatestTrade) {
			agg.LatestTrade = rec.Timestamp
		}
	}

	out := make([]*domain.TokenAggregate, len(order))
	for i, key := range order {
		out[i] = groups[key]
	}
	return out
}

// seedAggregate starts a group from its first record.
func seedAggregate(rec domain.TradeRecord) *domain.TokenAggregate {
	agg := &domain.TokenAggregate{
		Mint:         rec.TokenMint,
		Symbol:       rec.TokenSymbol,
		Name:         rec.TokenName,
		Logo:         rec.TokenLogo,
		PriceUSD:     rec.PriceUSD,
		MarketCapUSD: rec.MarketCapUSD,
		LiquidityUSD: rec.LiquidityUSD,
	}
	recomputeBonded(agg, rec.MarketCapUSD)
	return agg
}

// foldRecord applies first-non-empty-wins folding for a non-seed record.
func foldRecord(agg *domain.TokenAggregate, rec domain.TradeRecord) {
	if agg.Symbol == "" || agg.Symbol == domain.UnknownSymbol {
		if rec.HasSymbol() {
			agg.Symbol = rec.TokenSymbol
		}
	}
	if agg.Name == nil && rec.TokenName != nil {
		agg.Name = rec.TokenName
	}
	if agg.Logo == nil && rec.TokenLogo != nil {
		agg.Logo = rec.TokenLogo
	}
	if agg.PriceUSD == nil && rec.PriceUSD != nil {
		agg.PriceUSD = rec.PriceUSD
	}
	if agg.MarketCapUSD == nil && rec.MarketCapUSD != nil {
		agg.MarketCapUSD = rec.MarketCapUSD
	}
	if agg.LiquidityUSD == nil && rec.LiquidityUSD != nil {
		agg.LiquidityUSD = rec.LiquidityUSD
	}
	recomputeBonded(agg, rec.MarketCapUSD)
}

// recomputeBonded updates the bonded flag from an incoming market cap.
// A nil market cap never regresses an already-true flag.
func recomputeBonded(agg *domain.TokenAggregate, marketCap *float64) {
	if marketCap == nil {
		return
	}
	agg.Bonded = *marketCap >= domain.BondingThresholdUSD
}

// SortByVolume orders aggregates by total volume descending, trade count as
// tiebreaker. In place.
func SortByVolume(aggs []*domain.TokenAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		if aggs[i].TotalVolume != aggs[j].TotalVolume {
			return aggs[i].TotalVolume > aggs[j].TotalVolume
		}
		return aggs[i].TradeCount > aggs[j].TradeCount
	})
}

// SortBuyersByTimeDesc orders a buyer list newest-first. In place. Grouping
// leaves buyers unsorted; display callers sort.
func SortBuyersByTimeDesc(buyers []domain.TokenBuyer) {
	sort.SliceStable(buyers, func(i, j int) bool {
		return buyers[i].Timestamp.After(buyers[j].Timestamp)
	})
}
