package clickhouse

import (
	"context"
	"fmt"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/storage"
)

// TokenSnapshotStore implements storage.TokenSnapshotStore using ClickHouse.
// token_snapshots is an append-only MergeTree; the snapshot loop writes one
// row per trending token per run.
type TokenSnapshotStore struct {
	conn *Conn
}

// NewTokenSnapshotStore creates a new TokenSnapshotStore.
func NewTokenSnapshotStore(conn *Conn) *TokenSnapshotStore {
	return &TokenSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TokenSnapshotStore = (*TokenSnapshotStore)(nil)

// InsertBulk appends snapshot points.
func (s *TokenSnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.TokenSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_snapshots (
			mint, symbol, price_usd, market_cap_usd, liquidity_usd,
			bonded, total_volume, trade_count, captured_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		err = batch.Append(
			snap.Mint, snap.Symbol,
			snap.PriceUSD, snap.MarketCapUSD, snap.LiquidityUSD,
			snap.Bonded, snap.TotalVolume, uint32(snap.TradeCount),
			snap.CapturedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves snapshots for a mint within [start, end] (inclusive),
// ordered by capture time ASC.
func (s *TokenSnapshotStore) GetByMint(ctx context.Context, mint string, start, end time.Time) ([]*domain.TokenSnapshot, error) {
	query := `
		SELECT mint, symbol, price_usd, market_cap_usd, liquidity_usd,
		       bonded, total_volume, trade_count, captured_at
		FROM token_snapshots
		WHERE mint = ? AND captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	var out []*domain.TokenSnapshot
	for rows.Next() {
		var snap domain.TokenSnapshot
		var tradeCount uint32
		err := rows.Scan(
			&snap.Mint, &snap.Symbol,
			&snap.PriceUSD, &snap.MarketCapUSD, &snap.LiquidityUSD,
			&snap.Bonded, &snap.TotalVolume, &tradeCount,
			&snap.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.TradeCount = int(tradeCount)
		out = append(out, &snap)
	}
	return out, rows.Err()
}
