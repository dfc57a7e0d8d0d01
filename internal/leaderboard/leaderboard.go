// Package leaderboard computes per-wallet rollups for the KOL leaderboard.
package leaderboard

import (
	"sort"
	"time"

	"kolwatch/internal/domain"
)

// WalletStats is one leaderboard row.
type WalletStats struct {
	WalletAddress string
	WalletName    string
	TotalVolume   float64 // sum of quote amounts
	TradeCount    int
	BuyCount      int
	SellCount     int
	LastActive    time.Time
}

// Compute folds trade records into per-wallet stats, ordered by total volume
// descending (wallet address as tiebreaker for deterministic output).
func Compute(records []domain.TradeRecord) []*WalletStats {
	byWallet := make(map[string]*WalletStats)

	for _, rec := range records {
		if rec.WalletAddress == "" {
			continue
		}
		stats, ok := byWallet[rec.WalletAddress]
		if !ok {
			stats = &WalletStats{
				WalletAddress: rec.WalletAddress,
				WalletName:    rec.WalletName,
			}
			byWallet[rec.WalletAddress] = stats
		}
		if stats.WalletName == "" {
			stats.WalletName = rec.WalletName
		}

		stats.TotalVolume += rec.QuoteAmount
		stats.TradeCount++
		switch rec.Side {
		case domain.SideBuy:
			stats.BuyCount++
		case domain.SideSell:
			stats.SellCount++
		}
		if rec.Timestamp.After(stats.LastActive) {
			stats.LastActive = rec.Timestamp
		}
	}

	out := make([]*WalletStats, 0, len(byWallet))
	for _, stats := range byWallet {
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVolume != out[j].TotalVolume {
			return out[i].TotalVolume > out[j].TotalVolume
		}
		return out[i].WalletAddress < out[j].WalletAddress
	})
	return out
}
