package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/polymarket/clobapi"
	"github.com/liyuxiao2/polytracker/internal/polymarket/gammaapi"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// Collector captures periodic order book readings for the busiest watched
// markets plus any configured pins. The stored series feeds offline
// backtesting; nothing in the live pipeline reads it back.
type Collector struct {
	cfg   *config.Config
	db    *storage.DB
	gamma *gammaapi.Client
	clob  *clobapi.Client
	log   *logrus.Logger
}

// New creates a snapshot collector
func New(cfg *config.Config, db *storage.DB, gamma *gammaapi.Client, clob *clobapi.Client, log *logrus.Logger) *Collector {
	return &Collector{cfg: cfg, db: db, gamma: gamma, clob: clob, log: log}
}

// Capture snapshots every tracked market's order books, then prunes
// readings past the retention window.
func (c *Collector) Capture(ctx context.Context) error {
	start := time.Now()

	markets := c.targets(ctx)
	if len(markets) == 0 {
		c.log.Debug("No markets to snapshot")
		return nil
	}

	var captured int
	for _, market := range markets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := c.captureMarket(ctx, market)
		captured += n
		if err != nil {
			c.log.WithError(err).WithField("market", market).Warn("Snapshot failed")
		}
	}

	cutoff := start.Add(-c.cfg.Snapshot.Retention).Unix()
	pruned, err := c.db.PruneSnapshots(ctx, cutoff)
	if err != nil {
		c.log.WithError(err).Warn("Snapshot prune failed")
	}

	c.log.WithFields(logrus.Fields{
		"markets":  len(markets),
		"books":    captured,
		"pruned":   pruned,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Snapshots captured")
	return nil
}

// targets picks the busiest watch list markets and the configured pins
func (c *Collector) targets(ctx context.Context) []string {
	watch, err := c.db.ListMarketWatch(ctx)
	if err != nil {
		c.log.WithError(err).Warn("Watch list read failed")
	}
	return mergeTargets(watch, c.cfg.Snapshot.Pinned, c.cfg.Snapshot.TopMarkets)
}

// mergeTargets takes the top-N watch markets (which arrive busiest first)
// and appends the pins, deduplicated, pins last so they never crowd out
// discovery.
func mergeTargets(watch []storage.MarketWatch, pinned []string, topN int) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(market string) {
		if market == "" {
			return
		}
		if _, dup := seen[market]; dup {
			return
		}
		seen[market] = struct{}{}
		out = append(out, market)
	}

	for i, row := range watch {
		if i >= topN {
			break
		}
		add(row.ConditionID)
	}
	for _, pin := range pinned {
		add(pin)
	}
	return out
}

// captureMarket stores one book reading per outcome token. A token that
// fails mid-market aborts the rest of that market but keeps what landed.
func (c *Collector) captureMarket(ctx context.Context, market string) (int, error) {
	m, err := c.gamma.GetMarketByConditionID(ctx, market)
	if err != nil {
		return 0, fmt.Errorf("gamma lookup: %w", err)
	}
	if m == nil {
		return 0, nil
	}

	now := time.Now().Unix()
	var captured int
	for _, tokenID := range m.ParseClobTokenIDs() {
		book, err := c.clob.GetBook(ctx, tokenID)
		if err != nil {
			return captured, fmt.Errorf("book for token %s: %w", tokenID, err)
		}

		sum := book.Summarize()
		snap := &storage.MarketSnapshot{
			ConditionID: market,
			TokenID:     tokenID,
			MidPrice:    sum.Mid,
			BestBid:     sum.BestBid,
			BestAsk:     sum.BestAsk,
			Spread:      sum.Spread,
			BidDepthUSD: sum.BidDepthUSD,
			AskDepthUSD: sum.AskDepthUSD,
			CapturedTS:  now,
		}
		if err := c.db.InsertSnapshot(ctx, snap); err != nil {
			return captured, fmt.Errorf("insert snapshot: %w", err)
		}
		metrics.SnapshotsRecorded.Inc()
		captured++
	}
	return captured, nil
}
