package resolution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/alerts"
	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/polymarket/gammaapi"
	"github.com/liyuxiao2/polytracker/internal/profile"
	"github.com/liyuxiao2/polytracker/internal/scoring"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// A market counts as settled once one outcome's price pins at or above this.
const winPriceThreshold = 0.99

// Resolver settles open trades against Gamma market outcomes. Each sweep
// works through a bounded batch of distinct open markets, settles each
// market atomically, runs the hindsight checks on fresh winners, and then
// recomputes every touched wallet once.
type Resolver struct {
	cfg        *config.Config
	db         *storage.DB
	gamma      *gammaapi.Client
	profiles   *profile.Maintainer
	dispatcher *alerts.Dispatcher
	log        *logrus.Logger
	params     scoring.Params

	// Market metadata cache, refreshed per TTL. Only touched by Run's
	// goroutine.
	cache map[string]marketCacheEntry
}

type marketCacheEntry struct {
	market    *gammaapi.Market
	fetchedAt time.Time
}

// NewResolver creates a resolution worker
func NewResolver(cfg *config.Config, db *storage.DB, gamma *gammaapi.Client, profiles *profile.Maintainer, dispatcher *alerts.Dispatcher, log *logrus.Logger) *Resolver {
	return &Resolver{
		cfg:        cfg,
		db:         db,
		gamma:      gamma,
		profiles:   profiles,
		dispatcher: dispatcher,
		log:        log,
		params:     cfg.Scoring.Params(),
		cache:      make(map[string]marketCacheEntry),
	}
}

// Run sweeps on the configured interval until the context is cancelled
func (r *Resolver) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Resolution.Interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Resolver) sweep(ctx context.Context) {
	start := time.Now()

	markets, err := r.db.OpenMarkets(ctx, r.cfg.Resolution.MarketBatch)
	if err != nil {
		r.log.WithError(err).Error("List open markets failed")
		return
	}

	resolvedMarkets := 0
	dirty := make(map[string]struct{})

	for _, market := range markets {
		if ctx.Err() != nil {
			return
		}
		settled, wallets, err := r.settleMarket(ctx, market)
		if err != nil {
			// One bad market must not block the rest of the batch.
			r.log.WithError(err).WithField("market", market).Warn("Market settlement failed")
			continue
		}
		if settled == 0 {
			continue
		}
		resolvedMarkets++
		for _, w := range wallets {
			dirty[w] = struct{}{}
		}
	}

	if len(dirty) > 0 {
		wallets := make([]string, 0, len(dirty))
		for w := range dirty {
			wallets = append(wallets, w)
		}
		r.profiles.RecomputeMany(ctx, wallets)
	}

	metrics.RecordResolutionSweep(time.Since(start), resolvedMarkets)

	if resolvedMarkets > 0 {
		r.log.WithFields(logrus.Fields{
			"markets_checked":  len(markets),
			"markets_resolved": resolvedMarkets,
			"wallets_touched":  len(dirty),
			"duration":         time.Since(start).Round(time.Millisecond).String(),
		}).Info("Resolution sweep complete")
	}
}

// settleMarket resolves one market's open trades. Returns how many trades
// settled and the distinct wallets they belong to.
func (r *Resolver) settleMarket(ctx context.Context, conditionID string) (int, []string, error) {
	winner, done, m, err := r.findWinner(ctx, conditionID)
	if err != nil {
		return 0, nil, err
	}
	if !done {
		return 0, nil, nil
	}

	trades, err := r.db.OpenTradesForMarket(ctx, conditionID)
	if err != nil {
		return 0, nil, fmt.Errorf("load open trades: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil, nil
	}

	now := time.Now().Unix()
	settlements := make([]storage.TradeSettlement, len(trades))
	for i, t := range trades {
		settlements[i] = Settle(t, winner, now)
	}

	if err := r.db.SettleTrades(ctx, settlements); err != nil {
		return 0, nil, fmt.Errorf("settle trades: %w", err)
	}

	walletSet := make(map[string]struct{})
	for i, t := range trades {
		walletSet[t.Wallet] = struct{}{}
		r.evaluateHindsight(ctx, t, settlements[i])
	}

	if m != nil {
		r.storeMarket(ctx, conditionID, m, winner, now)
	}

	wallets := make([]string, 0, len(walletSet))
	for w := range walletSet {
		wallets = append(wallets, w)
	}

	r.log.WithFields(logrus.Fields{
		"market":  conditionID,
		"winner":  winner,
		"settled": len(settlements),
	}).Info("Market resolved")

	return len(settlements), wallets, nil
}

// evaluateHindsight re-examines a freshly settled winner that ingestion let
// through, and flags it when the outcome looks too good in retrospect.
func (r *Resolver) evaluateHindsight(ctx context.Context, t storage.Trade, s storage.TradeSettlement) {
	if !s.Won || t.Flagged {
		return
	}

	flag, reasons := scoring.EvaluateResolved(scoring.ResolvedTrade{
		SizeUSD:     t.SizeUSD,
		EntryPrice:  t.Price,
		RealizedPnL: s.RealizedPnL,
		Won:         s.Won,
		Flagged:     t.Flagged,
	}, r.walletHistory(ctx, t.Wallet), r.params)
	if !flag {
		return
	}

	if err := r.db.FlagTrade(ctx, t.ID, reasons); err != nil {
		r.log.WithError(err).WithField("trade_id", t.ID).Warn("Retrospective flag write failed")
		return
	}
	metrics.RecordFlag("retrospective")

	event := alerts.NewEvent(alerts.KindRetrospective)
	event.Wallet = t.Wallet
	event.WalletShort = alerts.Shorten(t.Wallet)
	event.Market = t.Market
	event.MarketTitle = t.MarketTitle
	event.Side = t.Side
	event.Outcome = t.Outcome
	event.SizeUSD = t.SizeUSD
	event.Price = t.Price
	event.Reasons = reasons
	event.TradeTimestamp = t.Timestamp
	event.Environment = r.cfg.Environment
	r.dispatcher.Dispatch(ctx, &event)

	r.log.WithFields(logrus.Fields{
		"wallet":   alerts.Shorten(t.Wallet),
		"market":   t.Market,
		"size_usd": t.SizeUSD,
		"reasons":  reasons,
	}).Warn("Trade flagged in hindsight")
}

// walletHistory loads the retro-check inputs from the wallet's profile as
// of before this settlement. An unknown wallet checks as an empty history.
func (r *Resolver) walletHistory(ctx context.Context, wallet string) scoring.WalletHistory {
	prof, err := r.db.GetProfile(ctx, wallet)
	if err != nil || prof == nil {
		return scoring.WalletHistory{}
	}
	return scoring.WalletHistory{
		TradeCount:      prof.TotalTrades,
		AvgTradeSize:    prof.AvgTradeSize,
		FlaggedResolved: prof.FlaggedResolved,
		FlaggedWins:     prof.FlaggedWins,
	}
}

// findWinner determines whether a market has settled and what won. The
// stored market record is checked first: backfills insert open trades for
// markets that settled long ago, and those need no Gamma round-trip. The
// Gamma metadata comes back non-nil only when it was actually fetched.
func (r *Resolver) findWinner(ctx context.Context, conditionID string) (string, bool, *gammaapi.Market, error) {
	if rec, err := r.db.GetMarket(ctx, conditionID); err == nil && rec != nil && rec.Resolved && rec.WinningOutcome != "" {
		return rec.WinningOutcome, true, nil, nil
	}

	m, err := r.lookupMarket(ctx, conditionID)
	if err != nil {
		return "", false, nil, err
	}
	if m == nil {
		// Gamma does not know this market; leave the trades open.
		return "", false, nil, nil
	}
	winner, done := m.WinningOutcome(winPriceThreshold)
	return winner, done, m, nil
}

// lookupMarket fetches Gamma metadata through the TTL cache. Lookup
// failures are not cached so the next sweep retries.
func (r *Resolver) lookupMarket(ctx context.Context, conditionID string) (*gammaapi.Market, error) {
	if entry, ok := r.cache[conditionID]; ok && time.Since(entry.fetchedAt) < r.cfg.Resolution.CacheTTL {
		return entry.market, nil
	}

	m, err := r.gamma.GetMarketByConditionID(ctx, conditionID)
	if err != nil {
		return nil, fmt.Errorf("gamma lookup: %w", err)
	}
	r.cache[conditionID] = marketCacheEntry{market: m, fetchedAt: time.Now()}
	return m, nil
}

// storeMarket persists the settled market's metadata
func (r *Resolver) storeMarket(ctx context.Context, conditionID string, m *gammaapi.Market, winner string, now int64) {
	record := &storage.Market{
		ConditionID:    conditionID,
		Question:       m.Question,
		Slug:           m.Slug,
		Category:       m.Category,
		Volume:         m.VolumeNum,
		Liquidity:      m.LiquidityNum,
		Active:         m.Active,
		Resolved:       true,
		WinningOutcome: winner,
		ResolvedTS:     now,
	}
	if err := r.db.UpsertMarket(ctx, record); err != nil {
		r.log.WithError(err).WithField("market", conditionID).Warn("Market upsert failed")
	}
}

// Settle computes one trade's settlement against the winning outcome. A
// winning position pays out the remaining odds on the entry price; a losing
// one writes off its full cost. Outcome labels compare case-insensitively.
func Settle(t storage.Trade, winningOutcome string, now int64) storage.TradeSettlement {
	won := strings.EqualFold(t.Outcome, winningOutcome)
	var pnl float64
	if won {
		if t.Price > 0 {
			pnl = t.SizeUSD * (1 - t.Price) / t.Price
		}
	} else {
		pnl = -t.SizeUSD
	}
	hours := float64(now-t.Timestamp) / 3600
	if hours < 0 {
		hours = 0
	}
	return storage.TradeSettlement{
		ID:                t.ID,
		Won:               won,
		RealizedPnL:       pnl,
		ResolvedOutcome:   winningOutcome,
		ResolvedTS:        now,
		HoursToResolution: hours,
	}
}
