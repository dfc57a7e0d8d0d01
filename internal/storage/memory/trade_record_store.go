package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu          sync.RWMutex
	bySignature map[string]*domain.TradeRecord
	order       []string // signatures in insertion order
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{
		bySignature: make(map[string]*domain.TradeRecord),
	}
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

// Insert adds a record; a duplicate signature is a no-op.
func (s *TradeRecordStore) Insert(_ context.Context, t *domain.TradeRecord) (bool, error) {
	if t == nil || t.Signature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySignature[t.Signature]; exists {
		return false, nil
	}

	recCopy := *t
	s.bySignature[t.Signature] = &recCopy
	s.order = append(s.order, t.Signature)
	return true, nil
}

// InsertBatch adds multiple records, skipping duplicates.
func (s *TradeRecordStore) InsertBatch(ctx context.Context, records []*domain.TradeRecord) (int, error) {
	inserted := 0
	for _, t := range records {
		ok, err := s.Insert(ctx, t)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetBySignature(_ context.Context, signature string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.bySignature[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}
	recCopy := *t
	return &recCopy, nil
}

// GetRecent retrieves the newest records, newest first.
func (s *TradeRecordStore) GetRecent(_ context.Context, limit int) ([]*domain.TradeRecord, error) {
	return s.filtered(limit, func(*domain.TradeRecord) bool { return true }), nil
}

// GetByWallet retrieves a wallet's newest records, newest first.
func (s *TradeRecordStore) GetByWallet(_ context.Context, wallet string, limit int) ([]*domain.TradeRecord, error) {
	return s.filtered(limit, func(t *domain.TradeRecord) bool {
		return t.WalletAddress == wallet
	}), nil
}

// GetByMint retrieves a token's newest records, newest first.
func (s *TradeRecordStore) GetByMint(_ context.Context, mint string, limit int) ([]*domain.TradeRecord, error) {
	return s.filtered(limit, func(t *domain.TradeRecord) bool {
		return t.TokenMint == mint
	}), nil
}

// GetUnresolvedSince retrieves still-unknown records, oldest first.
func (s *TradeRecordStore) GetUnresolvedSince(_ context.Context, since time.Time, limit int) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradeRecord
	for _, sig := range s.order {
		t := s.bySignature[sig]
		if t.HasSymbol() || t.Timestamp.Before(since) {
			continue
		}
		recCopy := *t
		out = append(out, &recCopy)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateMetadata writes enriched token fields back. Returns ErrNotFound if
// the signature does not exist.
func (s *TradeRecordStore) UpdateMetadata(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.bySignature[t.Signature]
	if !exists {
		return storage.ErrNotFound
	}

	existing.TokenSymbol = t.TokenSymbol
	existing.TokenName = t.TokenName
	existing.TokenLogo = t.TokenLogo
	existing.PriceUSD = t.PriceUSD
	existing.MarketCapUSD = t.MarketCapUSD
	existing.LiquidityUSD = t.LiquidityUSD
	existing.Volume24h = t.Volume24h
	existing.PriceChange24h = t.PriceChange24h
	return nil
}

// filtered returns matching records newest-first, respecting the limit.
func (s *TradeRecordStore) filtered(limit int, match func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradeRecord
	for _, sig := range s.order {
		t := s.bySignature[sig]
		if !match(t) {
			continue
		}
		recCopy := *t
		out = append(out, &recCopy)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
