package marketwatch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/scoring"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// Factor scaling for the market suspicion score. Each ceiling is the share
// at which that factor saturates.
const (
	flaggedShareCeil    = 0.25
	flaggedVolumeCeil   = 0.40
	elevatedRateCeil    = 0.25
	suspiciousShareCeil = 0.50

	// Trades at or above this |z| count as elevated even when unflagged.
	elevatedZ = 2.0
)

// Watcher maintains the hot-market watch list from recent trade activity
type Watcher struct {
	cfg *config.Config
	db  *storage.DB
	log *logrus.Logger
}

// New creates a market watcher
func New(cfg *config.Config, db *storage.DB, log *logrus.Logger) *Watcher {
	return &Watcher{cfg: cfg, db: db, log: log}
}

// Refresh rebuilds the watch list over the trailing window and prunes rows
// that stopped qualifying a full window ago.
func (w *Watcher) Refresh(ctx context.Context) error {
	start := time.Now()
	since := start.Add(-w.cfg.Watch.Window).Unix()

	activity, err := w.db.MarketActivitySince(ctx, since, w.cfg.Watch.MinTrades)
	if err != nil {
		return fmt.Errorf("aggregate market window: %w", err)
	}

	now := start.Unix()
	rows := make([]*storage.MarketWatch, 0, len(activity))
	for _, act := range activity {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		trades, err := w.db.TradesForMarketSince(ctx, act.Market, since)
		if err != nil {
			w.log.WithError(err).WithField("market", act.Market).Warn("Market window fetch failed")
			continue
		}
		rows = append(rows, buildRow(act, trades, since, now))
	}

	if err := w.db.UpsertMarketWatch(ctx, rows); err != nil {
		return fmt.Errorf("upsert watch rows: %w", err)
	}

	pruned, err := w.db.PruneMarketWatch(ctx, now-int64(w.cfg.Watch.Window.Seconds()))
	if err != nil {
		w.log.WithError(err).Warn("Watch list prune failed")
	}

	metrics.WatchedMarkets.Set(float64(len(rows)))
	w.log.WithFields(logrus.Fields{
		"markets":  len(rows),
		"pruned":   pruned,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Watch list refreshed")
	return nil
}

// buildRow assembles one watch row from the market's window aggregate and
// its individual fills.
func buildRow(act storage.MarketActivity, trades []storage.MarketTradeLite, windowStart, now int64) *storage.MarketWatch {
	row := &storage.MarketWatch{
		ConditionID:   act.Market,
		MarketTitle:   act.MarketTitle,
		Category:      categorize(act.MarketTitle),
		TradeCount:    act.TradeCount,
		VolumeUSD:     act.VolumeUSD,
		FlaggedTrades: act.FlaggedTrades,
		UniqueWallets: act.UniqueWallets,
		WindowStartTS: windowStart,
		FirstSeenTS:   now,
		UpdatedTS:     now,
	}

	if len(trades) > 0 {
		prices := make([]float64, len(trades))
		for i, t := range trades {
			prices[i] = t.Price
		}
		row.PriceVolatility = scoring.StdDev(prices, scoring.Mean(prices))
		// Trades arrive in time order, so this is last fill minus first.
		row.PriceChange = trades[len(trades)-1].Price - trades[0].Price
		row.SuspicionScore = suspicionScore(trades)
	}
	return row
}

// suspicionScore rates a market's window 0-100 from four capped factors:
// the share of trades flagged (30), the share of volume in flagged trades
// (30), the rate of elevated-size trades (20), and the share of volume from
// wallets that tripped a flag this window (20).
func suspicionScore(trades []storage.MarketTradeLite) float64 {
	if len(trades) == 0 {
		return 0
	}

	var (
		flaggedCount   int
		elevatedCount  int
		totalVolume    float64
		flaggedVolume  float64
		walletVolume   = make(map[string]float64)
		flaggedWallets = make(map[string]struct{})
	)
	for _, t := range trades {
		totalVolume += t.SizeUSD
		walletVolume[t.Wallet] += t.SizeUSD
		if t.Flagged {
			flaggedCount++
			flaggedVolume += t.SizeUSD
			flaggedWallets[t.Wallet] = struct{}{}
		}
		if math.Abs(t.AnomalyScore) >= elevatedZ {
			elevatedCount++
		}
	}

	score := 30 * clamp01(float64(flaggedCount)/float64(len(trades))/flaggedShareCeil)
	score += 20 * clamp01(float64(elevatedCount)/float64(len(trades))/elevatedRateCeil)

	if totalVolume > 0 {
		score += 30 * clamp01(flaggedVolume/totalVolume/flaggedVolumeCeil)

		var suspiciousVolume float64
		for wallet := range flaggedWallets {
			suspiciousVolume += walletVolume[wallet]
		}
		score += 20 * clamp01(suspiciousVolume/totalVolume/suspiciousShareCeil)
	}

	if score > 100 {
		score = 100
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
