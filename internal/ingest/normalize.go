package ingest

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/liyuxiao2/polytracker/internal/polymarket/dataapi"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// Skip reasons label the ingest counter so dropped records stay countable.
const (
	skipBadWallet    = "bad_wallet"
	skipBadSide      = "bad_side"
	skipBadMarket    = "bad_market"
	skipBadOutcome   = "bad_outcome"
	skipBadPrice     = "bad_price"
	skipBadTimestamp = "bad_timestamp"
	skipBadSize      = "bad_size"
	skipBelowMin     = "below_min"
)

// Feed timestamps above this are milliseconds. Unix seconds stay below 1e12
// for another thirty thousand years.
const msEpochCutoff = int64(1e12)

// unixSeconds coerces a feed timestamp to unix seconds
func unixSeconds(ts int64) int64 {
	if ts > msEpochCutoff {
		return ts / 1000
	}
	return ts
}

// Normalize converts one raw feed trade into a storage row. The second
// return is a skip-reason label, empty when the trade is usable. Wallets are
// lowercased so the same address always maps to one profile and one dedup
// key regardless of how the feed cased it.
func Normalize(raw dataapi.Trade, minUSD float64) (*storage.Trade, string) {
	wallet := strings.ToLower(strings.TrimSpace(raw.ProxyWallet))
	if !validWallet(wallet) {
		return nil, skipBadWallet
	}

	side := strings.ToUpper(strings.TrimSpace(raw.Side))
	if side != "BUY" && side != "SELL" {
		return nil, skipBadSide
	}

	if raw.ConditionID == "" {
		return nil, skipBadMarket
	}

	outcome := strings.TrimSpace(raw.Outcome)
	if outcome == "" {
		return nil, skipBadOutcome
	}

	if raw.Price <= 0 || raw.Price > 1 {
		return nil, skipBadPrice
	}

	ts := unixSeconds(raw.Timestamp)
	if ts <= 0 {
		return nil, skipBadTimestamp
	}

	sizeUSD := raw.USDCSize
	if sizeUSD <= 0 {
		sizeUSD = raw.Size * raw.Price
	}
	if sizeUSD <= 0 {
		return nil, skipBadSize
	}
	if minUSD > 0 && sizeUSD < minUSD {
		return nil, skipBelowMin
	}

	shares := raw.Size
	if shares <= 0 {
		shares = sizeUSD / raw.Price
	}

	return &storage.Trade{
		DedupKey:     DedupKey(raw.TransactionHash, wallet, raw.ConditionID, outcome, side, ts),
		Wallet:       wallet,
		Market:       raw.ConditionID,
		MarketTitle:  raw.Title,
		MarketSlug:   raw.Slug,
		EventSlug:    raw.EventSlug,
		Side:         side,
		Outcome:      outcome,
		OutcomeIndex: raw.OutcomeIndex,
		Price:        raw.Price,
		SizeUSD:      sizeUSD,
		Shares:       shares,
		TxHash:       raw.TransactionHash,
		Timestamp:    ts,
		HourOfDay:    time.Unix(ts, 0).UTC().Hour(),
		Status:       storage.TradeStatusOpen,
	}, ""
}

// DedupKey derives the uniqueness key for a fill. With a transaction hash
// the key also folds in outcome and side, keeping the legs of a multi-leg
// transaction distinct. Without one it falls back to (wallet, market,
// timestamp), which collapses same-second fills; the feed populates the
// hash on every on-chain fill, so the fallback only covers malformed rows.
func DedupKey(txHash, wallet, market, outcome, side string, ts int64) string {
	var seed string
	if txHash != "" {
		seed = fmt.Sprintf("%s|%s|%s|%s|%s", txHash, wallet, market, outcome, side)
	} else {
		seed = fmt.Sprintf("%s|%s|%d", wallet, market, ts)
	}
	sum := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("%x", sum)
}

// validWallet rejects empty addresses and the zero address the feed emits
// on some malformed records.
func validWallet(wallet string) bool {
	stripped := strings.TrimPrefix(wallet, "0x")
	if stripped == "" {
		return false
	}
	for _, c := range stripped {
		if c != '0' {
			return true
		}
	}
	return false
}
