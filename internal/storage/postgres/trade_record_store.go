package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kolwatch/internal/domain"
	"kolwatch/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	signature, wallet_address, wallet_name,
	token_mint, token_symbol, token_name, token_logo,
	price_usd, market_cap_usd, liquidity_usd, volume_24h, price_change_24h,
	base_amount, quote_amount, side, ts
`

// Insert adds a record. A duplicate signature is a no-op: the webhook
// redelivers, ON CONFLICT DO NOTHING dedupes.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) (bool, error) {
	if t == nil || t.Signature == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_records (` + tradeRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (signature) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		t.Signature, t.WalletAddress, t.WalletName,
		t.TokenMint, t.TokenSymbol, t.TokenName, t.TokenLogo,
		t.PriceUSD, t.MarketCapUSD, t.LiquidityUSD, t.Volume24h, t.PriceChange24h,
		t.BaseAmount, t.QuoteAmount, string(t.Side), t.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert trade record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertBatch adds multiple records inside one transaction, skipping
// duplicates. Returns the number actually inserted.
func (s *TradeRecordStore) InsertBatch(ctx context.Context, records []*domain.TradeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_records (` + tradeRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (signature) DO NOTHING
	`

	inserted := 0
	for _, t := range records {
		if t == nil || t.Signature == "" {
			return inserted, storage.ErrInvalidInput
		}
		tag, err := tx.Exec(ctx, query,
			t.Signature, t.WalletAddress, t.WalletName,
			t.TokenMint, t.TokenSymbol, t.TokenName, t.TokenLogo,
			t.PriceUSD, t.MarketCapUSD, t.LiquidityUSD, t.Volume24h, t.PriceChange24h,
			t.BaseAmount, t.QuoteAmount, string(t.Side), t.Timestamp,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert trade record %s: %w", t.Signature, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return inserted, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetBySignature(ctx context.Context, signature string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records WHERE signature = $1`

	row := s.pool.QueryRow(ctx, query, signature)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get by signature: %w", err)
	}
	return t, nil
}

// GetRecent retrieves the newest records, newest first.
func (s *TradeRecordStore) GetRecent(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		ORDER BY ts DESC, signature
		LIMIT $1
	`
	return s.queryRecords(ctx, query, limit)
}

// GetByWallet retrieves a wallet's newest records, newest first.
func (s *TradeRecordStore) GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE wallet_address = $1
		ORDER BY ts DESC, signature
		LIMIT $2
	`
	return s.queryRecords(ctx, query, wallet, limit)
}

// GetByMint retrieves a token's newest records, newest first.
func (s *TradeRecordStore) GetByMint(ctx context.Context, mint string, limit int) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE token_mint = $1
		ORDER BY ts DESC, signature
		LIMIT $2
	`
	return s.queryRecords(ctx, query, mint, limit)
}

// GetUnresolvedSince retrieves still-unknown records, oldest first.
func (s *TradeRecordStore) GetUnresolvedSince(ctx context.Context, since time.Time, limit int) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE token_symbol = $1 AND ts >= $2
		ORDER BY ts ASC, signature
		LIMIT $3
	`
	return s.queryRecords(ctx, query, domain.UnknownSymbol, since, limit)
}

// UpdateMetadata writes enriched token fields back to an existing record.
func (s *TradeRecordStore) UpdateMetadata(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE trade_records
		SET token_symbol = $2, token_name = $3, token_logo = $4,
		    price_usd = $5, market_cap_usd = $6, liquidity_usd = $7,
		    volume_24h = $8, price_change_24h = $9
		WHERE signature = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		t.Signature, t.TokenSymbol, t.TokenName, t.TokenLogo,
		t.PriceUSD, t.MarketCapUSD, t.LiquidityUSD,
		t.Volume24h, t.PriceChange24h,
	)
	if err != nil {
		return fmt.Errorf("update trade record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *TradeRecordStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	var out []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord
	var side string
	err := row.Scan(
		&t.Signature, &t.WalletAddress, &t.WalletName,
		&t.TokenMint, &t.TokenSymbol, &t.TokenName, &t.TokenLogo,
		&t.PriceUSD, &t.MarketCapUSD, &t.LiquidityUSD, &t.Volume24h, &t.PriceChange24h,
		&t.BaseAmount, &t.QuoteAmount, &side, &t.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	t.Side = domain.Side(side)
	return &t, nil
}
