// Package ingestion parses enhanced-transaction webhook payloads into trade
// records. The transform is deterministic and stateless: the same payload
// always yields the same records, and dedup happens downstream at the
// persistence boundary via the transaction signature.
package ingestion

import (
	"strconv"
	"time"

	"kolwatch/internal/domain"
	"kolwatch/internal/mint"
)

const lamportsPerSOL = 1_000_000_000

// Wrapped SOL moves alongside the traded token in most swaps; it is never
// the token side of a KOL trade.
const wsolMint = "So11111111111111111111111111111111111111112"

// WebhookTransaction is one enhanced transaction as delivered by the webhook.
type WebhookTransaction struct {
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"` // unix seconds
	Type            string           `json:"type"`
	FeePayer        string           `json:"feePayer"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
}

// TokenTransfer is one SPL token movement inside a transaction.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// NativeTransfer is one SOL movement inside a transaction, in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// SkipReason explains why a webhook transfer produced no trade record.
type SkipReason string

// Skip reasons surfaced in metrics.
const (
	SkipNoTrackedWallet SkipReason = "no_tracked_wallet"
	SkipInvalidMint     SkipReason = "invalid_mint"
	SkipNoSignature     SkipReason = "no_signature"
	SkipZeroAmount      SkipReason = "zero_amount"
)

// Parser turns webhook transactions into trade records for a set of tracked
// wallets.
type Parser struct {
	wallets map[string]domain.KOLWallet
}

// NewParser creates a parser tracking the given wallets.
func NewParser(wallets []domain.KOLWallet) *Parser {
	byAddr := make(map[string]domain.KOLWallet, len(wallets))
	for _, w := range wallets {
		if mint.IsOnCurve(w.Address) {
			byAddr[w.Address] = w
		}
	}
	return &Parser{wallets: byAddr}
}

// Tracked reports whether an address belongs to a tracked wallet.
func (p *Parser) Tracked(address string) bool {
	_, ok := p.wallets[address]
	return ok
}

// ParseTransaction extracts trade records from one webhook transaction.
// A transaction yields one record per tracked-wallet token transfer: BUY when
// the wallet receives the token, SELL when it sends it. Transfers that don't
// involve a tracked wallet, or whose mint fails validation, are skipped and
// reported through the skip callback (nil allowed).
func (p *Parser) ParseTransaction(tx WebhookTransaction, skip func(SkipReason)) []domain.TradeRecord {
	if tx.Signature == "" {
		report(skip, SkipNoSignature)
		return nil
	}

	ts := time.Unix(tx.Timestamp, 0).UTC()
	quote := p.nativeAmount(tx.NativeTransfers)

	var records []domain.TradeRecord
	for i, transfer := range tx.TokenTransfers {
		if transfer.Mint == wsolMint {
			continue
		}

		wallet, side, ok := p.matchWallet(transfer)
		if !ok {
			report(skip, SkipNoTrackedWallet)
			continue
		}

		normalized := mint.Normalize(transfer.Mint)
		if !mint.IsValid(normalized) {
			report(skip, SkipInvalidMint)
			continue
		}
		if transfer.TokenAmount <= 0 {
			report(skip, SkipZeroAmount)
			continue
		}

		sig := tx.Signature
		if i > 0 {
			// A transaction can move several tokens; suffix keeps the
			// idempotency key unique per record.
			sig = tx.Signature + "-" + strconv.Itoa(i)
		}

		records = append(records, domain.TradeRecord{
			Signature:     sig,
			WalletAddress: wallet.Address,
			WalletName:    wallet.Name,
			TokenMint:     normalized,
			TokenSymbol:   domain.UnknownSymbol,
			BaseAmount:    transfer.TokenAmount,
			QuoteAmount:   quote,
			Side:          side,
			Timestamp:     ts,
		})
	}
	return records
}

// ParseBatch extracts trade records from a webhook delivery of transactions.
func (p *Parser) ParseBatch(txs []WebhookTransaction, skip func(SkipReason)) []domain.TradeRecord {
	var records []domain.TradeRecord
	for _, tx := range txs {
		records = append(records, p.ParseTransaction(tx, skip)...)
	}
	return records
}

// matchWallet finds the tracked wallet on either side of a token transfer.
// Receiving the token is a BUY, sending it a SELL.
func (p *Parser) matchWallet(transfer TokenTransfer) (domain.KOLWallet, domain.Side, bool) {
	if w, ok := p.wallets[transfer.ToUserAccount]; ok {
		return w, domain.SideBuy, true
	}
	if w, ok := p.wallets[transfer.FromUserAccount]; ok {
		return w, domain.SideSell, true
	}
	return domain.KOLWallet{}, "", false
}

// nativeAmount sums the SOL legs that touch a tracked wallet, in SOL.
func (p *Parser) nativeAmount(transfers []NativeTransfer) float64 {
	var lamports int64
	for _, t := range transfers {
		if p.Tracked(t.FromUserAccount) || p.Tracked(t.ToUserAccount) {
			lamports += t.Amount
		}
	}
	return float64(lamports) / lamportsPerSOL
}

func report(skip func(SkipReason), reason SkipReason) {
	if skip != nil {
		skip(reason)
	}
}
