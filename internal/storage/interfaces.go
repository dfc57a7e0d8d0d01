package storage

import (
	"context"
	"time"

	"kolwatch/internal/domain"
)

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// Insert adds a record. Re-ingesting a signature that already exists is
	// a no-op returning (false, nil); the webhook redelivers, the store
	// dedupes.
	Insert(ctx context.Context, t *domain.TradeRecord) (inserted bool, err error)

	// InsertBatch adds multiple records, skipping duplicates. Returns the
	// number actually inserted.
	InsertBatch(ctx context.Context, records []*domain.TradeRecord) (int, error)

	// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TradeRecord, error)

	// GetRecent retrieves the newest records, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.TradeRecord, error)

	// GetByWallet retrieves a wallet's newest records, newest first.
	GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.TradeRecord, error)

	// GetByMint retrieves a token's newest records, newest first.
	GetByMint(ctx context.Context, mint string, limit int) ([]*domain.TradeRecord, error)

	// GetUnresolvedSince retrieves records whose symbol is still the
	// UNKNOWN sentinel, oldest first, for backfill enrichment.
	GetUnresolvedSince(ctx context.Context, since time.Time, limit int) ([]*domain.TradeRecord, error)

	// UpdateMetadata writes enriched token fields back to an existing
	// record, identified by signature. Returns ErrNotFound if not exists.
	UpdateMetadata(ctx context.Context, t *domain.TradeRecord) error
}

// TokenSnapshotStore provides access to token_snapshots storage.
type TokenSnapshotStore interface {
	// InsertBulk appends snapshot points.
	InsertBulk(ctx context.Context, snaps []*domain.TokenSnapshot) error

	// GetByMint retrieves snapshots for a mint within [start, end]
	// (inclusive), ordered by capture time ASC.
	GetByMint(ctx context.Context, mint string, start, end time.Time) ([]*domain.TokenSnapshot, error)
}
