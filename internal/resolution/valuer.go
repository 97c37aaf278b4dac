package resolution

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/polymarket/clobapi"
	"github.com/liyuxiao2/polytracker/internal/polymarket/gammaapi"
	"github.com/liyuxiao2/polytracker/internal/profile"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// CLOB token ids change only if a market is relisted, so a long cache is safe.
const tokenCacheTTL = 10 * time.Minute

// Valuer marks open buy-side positions to the current CLOB midpoint. Sell
// fills carry no held position and are skipped entirely; they settle at
// resolution like everything else.
type Valuer struct {
	cfg      *config.Config
	db       *storage.DB
	gamma    *gammaapi.Client
	clob     *clobapi.Client
	profiles *profile.Maintainer
	log      *logrus.Logger

	// condition id to outcome-ordered CLOB token ids, Run's goroutine only
	tokens map[string]tokenCacheEntry
}

type tokenCacheEntry struct {
	ids       []string
	fetchedAt time.Time
}

// NewValuer creates a mark-to-market worker
func NewValuer(cfg *config.Config, db *storage.DB, gamma *gammaapi.Client, clob *clobapi.Client, profiles *profile.Maintainer, log *logrus.Logger) *Valuer {
	return &Valuer{
		cfg:      cfg,
		db:       db,
		gamma:    gamma,
		clob:     clob,
		profiles: profiles,
		log:      log,
		tokens:   make(map[string]tokenCacheEntry),
	}
}

// Run revalues on the configured interval until the context is cancelled
func (v *Valuer) Run(ctx context.Context) {
	ticker := time.NewTicker(v.cfg.Valuation.Interval)
	defer ticker.Stop()

	v.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.sweep(ctx)
		}
	}
}

func (v *Valuer) sweep(ctx context.Context) {
	markets, err := v.db.OpenMarkets(ctx, v.cfg.Valuation.BatchSize)
	if err != nil {
		v.log.WithError(err).Error("List open markets failed")
		return
	}

	var marked int64
	stale := make(map[string]struct{})
	for _, market := range markets {
		if ctx.Err() != nil {
			return
		}
		rows, err := v.markMarket(ctx, market)
		if err != nil {
			metrics.ValuationUpdates.WithLabelValues("error").Inc()
			v.log.WithError(err).WithField("market", market).Warn("Valuation failed")
			continue
		}
		if rows == 0 {
			continue
		}
		marked += rows
		wallets, err := v.db.OpenWalletsForMarket(ctx, market)
		if err != nil {
			v.log.WithError(err).WithField("market", market).Warn("List open wallets failed")
			continue
		}
		for _, w := range wallets {
			stale[w] = struct{}{}
		}
	}

	v.refreshProfiles(ctx, stale)

	if marked > 0 {
		v.log.WithFields(logrus.Fields{
			"markets":   len(markets),
			"positions": marked,
			"wallets":   len(stale),
		}).Debug("Open positions revalued")
	}
}

// refreshProfiles updates the open-position columns for every wallet a
// repricing pass touched. This is a narrow aggregate update, not a full
// profile recompute; scores catch up on the nightly recompute.
func (v *Valuer) refreshProfiles(ctx context.Context, wallets map[string]struct{}) {
	for wallet := range wallets {
		if ctx.Err() != nil {
			return
		}
		if err := v.profiles.RefreshOpenAggregates(ctx, wallet); err != nil {
			v.log.WithError(err).WithField("wallet", wallet).Warn("Profile open-position update failed")
		}
	}
}

// markMarket reprices one market's open positions, outcome by outcome
func (v *Valuer) markMarket(ctx context.Context, market string) (int64, error) {
	ids, err := v.tokenIDs(ctx, market)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		// Not listed on the CLOB; positions stay at their last mark.
		return 0, nil
	}

	indexes, err := v.db.OpenOutcomeIndexes(ctx, market)
	if err != nil {
		return 0, fmt.Errorf("list open outcomes: %w", err)
	}

	now := time.Now().Unix()
	var total int64
	for _, idx := range indexes {
		if idx < 0 || idx >= len(ids) {
			continue
		}
		mid, ok, err := v.clob.GetMidpoint(ctx, ids[idx])
		if err != nil {
			return total, fmt.Errorf("midpoint for outcome %d: %w", idx, err)
		}
		if !ok {
			// Empty book, keep the previous mark.
			continue
		}
		rows, err := v.db.MarkOpenTrades(ctx, market, idx, mid, now)
		if err != nil {
			return total, fmt.Errorf("mark outcome %d: %w", idx, err)
		}
		metrics.ValuationUpdates.WithLabelValues("success").Add(float64(rows))
		total += rows
	}
	return total, nil
}

// tokenIDs resolves a market's outcome token ids through the cache
func (v *Valuer) tokenIDs(ctx context.Context, market string) ([]string, error) {
	if entry, ok := v.tokens[market]; ok && time.Since(entry.fetchedAt) < tokenCacheTTL {
		return entry.ids, nil
	}

	m, err := v.gamma.GetMarketByConditionID(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("gamma lookup: %w", err)
	}
	var ids []string
	if m != nil {
		ids = m.ParseClobTokenIDs()
	}
	v.tokens[market] = tokenCacheEntry{ids: ids, fetchedAt: time.Now()}
	return ids, nil
}
