package scoring

import (
	"fmt"
	"strings"
)

// ResolvedTrade carries the fields of a freshly resolved trade that the
// retrospective evaluation inspects.
type ResolvedTrade struct {
	SizeUSD     float64
	EntryPrice  float64
	RealizedPnL float64
	Won         bool
	Flagged     bool
}

// WalletHistory summarizes the wallet's prior behavior at evaluation time.
type WalletHistory struct {
	TradeCount      int     // all known trades for the wallet
	AvgTradeSize    float64 // mean size across those trades
	FlaggedResolved int     // resolved trades that carry a flag
	FlaggedWins     int     // of those, how many won
}

// EvaluateResolved decides whether a resolved trade deserves a flag it did
// not get at ingestion time. Only winners are considered, already-flagged
// trades are left alone, and a flag once set is never removed. Each
// predicate below is independent; any subset may fire and the reasons are
// joined into one explanation string.
func EvaluateResolved(t ResolvedTrade, h WalletHistory, p Params) (bool, string) {
	if !t.Won || t.Flagged {
		return false, ""
	}

	var reasons []string
	if r, ok := largeProfitReason(t, p); ok {
		reasons = append(reasons, r)
	}
	if r, ok := convictionReason(t, p); ok {
		reasons = append(reasons, r)
	}
	if r, ok := outsizedReason(t, h, p); ok {
		reasons = append(reasons, r)
	}
	if r, ok := flaggedStreakReason(h, p); ok {
		reasons = append(reasons, r)
	}

	if len(reasons) == 0 {
		return false, ""
	}
	return true, strings.Join(reasons, "; ")
}

// largeProfitReason fires on realized profit above an absolute dollar bar.
func largeProfitReason(t ResolvedTrade, p Params) (string, bool) {
	if t.RealizedPnL <= p.RetroProfitUSD {
		return "", false
	}
	return fmt.Sprintf("Large winning bet: $%.0f profit", t.RealizedPnL), true
}

// convictionReason fires on a winning bet entered at very low odds.
func convictionReason(t ResolvedTrade, p Params) (string, bool) {
	if t.EntryPrice <= 0 || t.EntryPrice >= p.RetroConvictionPrice {
		return "", false
	}
	return fmt.Sprintf("High conviction: entered at %.0f%% odds", t.EntryPrice*100), true
}

// outsizedReason fires when the trade dwarfs the wallet's usual size.
// Needs at least 3 prior trades so the average means something.
func outsizedReason(t ResolvedTrade, h WalletHistory, p Params) (string, bool) {
	if h.TradeCount < 3 || h.AvgTradeSize <= 0 {
		return "", false
	}
	ratio := t.SizeUSD / h.AvgTradeSize
	if ratio <= p.RetroSizeMultiple {
		return "", false
	}
	return fmt.Sprintf("Outsized bet: %.1fx wallet average", ratio), true
}

// flaggedStreakReason fires when the wallet keeps winning its flagged bets.
func flaggedStreakReason(h WalletHistory, p Params) (string, bool) {
	if h.FlaggedResolved < p.RetroFlaggedMinSample {
		return "", false
	}
	rate := float64(h.FlaggedWins) / float64(h.FlaggedResolved)
	if rate < p.RetroFlaggedWinRate {
		return "", false
	}
	return fmt.Sprintf("Suspicious pattern: %.0f%% win rate on flagged trades", rate*100), true
}
