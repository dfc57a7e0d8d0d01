package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kolwatch/internal/domain"
	"kolwatch/internal/storage"
)

func createTestTradeRecord(signature string, offset int) *domain.TradeRecord {
	return &domain.TradeRecord{
		Signature:      signature,
		WalletAddress:  "6x5SYnLroiN7WYq8NQYU9KHcH4YjpBbwpUfVu3EB7ieH",
		WalletName:     "Ansem",
		TokenMint:      "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		TokenSymbol:    "BONK",
		TokenName:      ptr("Bonk"),
		TokenLogo:      ptr("https://example.com/bonk.png"),
		PriceUSD:       ptr(0.000021),
		MarketCapUSD:   ptr(1_400_000_000.0),
		LiquidityUSD:   ptr(12_000_000.0),
		Volume24h:      ptr(85_000_000.0),
		PriceChange24h: ptr(-3.4),
		BaseAmount:     50_000_000,
		QuoteAmount:    2.5,
		Side:           domain.SideBuy,
		Timestamp:      time.Unix(1_700_000_000+int64(offset), 0).UTC(),
	}
}

func TestTradeRecordStore_InsertAndGetBySignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	trade := createTestTradeRecord("trade-sig-001", 0)

	inserted, err := store.Insert(ctx, trade)
	require.NoError(t, err)
	assert.True(t, inserted)

	retrieved, err := store.GetBySignature(ctx, "trade-sig-001")
	require.NoError(t, err)

	assert.Equal(t, trade.Signature, retrieved.Signature)
	assert.Equal(t, trade.WalletAddress, retrieved.WalletAddress)
	assert.Equal(t, trade.WalletName, retrieved.WalletName)
	assert.Equal(t, trade.TokenMint, retrieved.TokenMint)
	assert.Equal(t, trade.TokenSymbol, retrieved.TokenSymbol)
	require.NotNil(t, retrieved.TokenName)
	assert.Equal(t, *trade.TokenName, *retrieved.TokenName)
	require.NotNil(t, retrieved.PriceUSD)
	assert.InDelta(t, *trade.PriceUSD, *retrieved.PriceUSD, 1e-9)
	require.NotNil(t, retrieved.MarketCapUSD)
	assert.InDelta(t, *trade.MarketCapUSD, *retrieved.MarketCapUSD, 0.01)
	require.NotNil(t, retrieved.PriceChange24h)
	assert.InDelta(t, *trade.PriceChange24h, *retrieved.PriceChange24h, 1e-9)
	assert.InDelta(t, trade.BaseAmount, retrieved.BaseAmount, 1e-9)
	assert.InDelta(t, trade.QuoteAmount, retrieved.QuoteAmount, 1e-9)
	assert.Equal(t, domain.SideBuy, retrieved.Side)
	assert.True(t, trade.Timestamp.Equal(retrieved.Timestamp))
}

func TestTradeRecordStore_DuplicateSignatureIsNoOp(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	original := createTestTradeRecord("trade-dup", 0)
	inserted, err := store.Insert(ctx, original)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Redelivery with different content must neither error nor overwrite.
	redelivery := createTestTradeRecord("trade-dup", 100)
	redelivery.TokenSymbol = "OTHER"
	inserted, err = store.Insert(ctx, redelivery)
	require.NoError(t, err)
	assert.False(t, inserted)

	retrieved, err := store.GetBySignature(ctx, "trade-dup")
	require.NoError(t, err)
	assert.Equal(t, "BONK", retrieved.TokenSymbol)
}

func TestTradeRecordStore_InsertBatchSkipsDuplicates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	_, err := store.Insert(ctx, createTestTradeRecord("batch-1", 0))
	require.NoError(t, err)

	n, err := store.InsertBatch(ctx, []*domain.TradeRecord{
		createTestTradeRecord("batch-1", 0),
		createTestTradeRecord("batch-2", 1),
		createTestTradeRecord("batch-3", 2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTradeRecordStore_GetBySignatureNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeRecordStore(pool)

	_, err := store.GetBySignature(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStore_GetRecentOrderAndLimit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	for i, sig := range []string{"recent-1", "recent-2", "recent-3"} {
		_, err := store.Insert(ctx, createTestTradeRecord(sig, i*10))
		require.NoError(t, err)
	}

	records, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "recent-3", records[0].Signature)
	assert.Equal(t, "recent-2", records[1].Signature)
}

func TestTradeRecordStore_GetByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	mine := createTestTradeRecord("wallet-mine", 0)
	_, err := store.Insert(ctx, mine)
	require.NoError(t, err)

	other := createTestTradeRecord("wallet-other", 1)
	other.WalletAddress = "Ea7xtAAqsG7dT5vCQwGK18NUMSJFwavDDphEfaF3Nfe1"
	_, err = store.Insert(ctx, other)
	require.NoError(t, err)

	records, err := store.GetByWallet(ctx, mine.WalletAddress, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "wallet-mine", records[0].Signature)
}

func TestTradeRecordStore_GetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	bonk := createTestTradeRecord("mint-bonk", 0)
	_, err := store.Insert(ctx, bonk)
	require.NoError(t, err)

	usdc := createTestTradeRecord("mint-usdc", 1)
	usdc.TokenMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	_, err = store.Insert(ctx, usdc)
	require.NoError(t, err)

	records, err := store.GetByMint(ctx, bonk.TokenMint, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mint-bonk", records[0].Signature)
}

func TestTradeRecordStore_GetUnresolvedSince(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	unresolved := createTestTradeRecord("unres-new", 20)
	unresolved.TokenSymbol = domain.UnknownSymbol
	_, err := store.Insert(ctx, unresolved)
	require.NoError(t, err)

	older := createTestTradeRecord("unres-old", 10)
	older.TokenSymbol = domain.UnknownSymbol
	_, err = store.Insert(ctx, older)
	require.NoError(t, err)

	resolved := createTestTradeRecord("resolved", 15)
	_, err = store.Insert(ctx, resolved)
	require.NoError(t, err)

	outside := createTestTradeRecord("unres-outside", -100)
	outside.TokenSymbol = domain.UnknownSymbol
	_, err = store.Insert(ctx, outside)
	require.NoError(t, err)

	since := time.Unix(1_700_000_000, 0).UTC()
	records, err := store.GetUnresolvedSince(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Oldest first, backfill order.
	assert.Equal(t, "unres-old", records[0].Signature)
	assert.Equal(t, "unres-new", records[1].Signature)
}

func TestTradeRecordStore_UpdateMetadata(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	trade := createTestTradeRecord("update-1", 0)
	trade.TokenSymbol = domain.UnknownSymbol
	trade.TokenName = nil
	trade.PriceUSD = nil
	_, err := store.Insert(ctx, trade)
	require.NoError(t, err)

	enriched := createTestTradeRecord("update-1", 0)
	enriched.TokenSymbol = "WIF"
	enriched.TokenName = ptr("dogwifhat")
	enriched.PriceUSD = ptr(2.5)
	require.NoError(t, store.UpdateMetadata(ctx, enriched))

	retrieved, err := store.GetBySignature(ctx, "update-1")
	require.NoError(t, err)
	assert.Equal(t, "WIF", retrieved.TokenSymbol)
	require.NotNil(t, retrieved.TokenName)
	assert.Equal(t, "dogwifhat", *retrieved.TokenName)
	require.NotNil(t, retrieved.PriceUSD)
	assert.InDelta(t, 2.5, *retrieved.PriceUSD, 1e-9)
	// Identity columns stay put.
	assert.Equal(t, trade.WalletAddress, retrieved.WalletAddress)
	assert.Equal(t, trade.TokenMint, retrieved.TokenMint)
}

func TestTradeRecordStore_UpdateMetadataNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeRecordStore(pool)

	err := store.UpdateMetadata(context.Background(), createTestTradeRecord("missing", 0))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	_, err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Insert(ctx, &domain.TradeRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.UpdateMetadata(ctx, &domain.TradeRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
