package ingest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/alerts"
	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/polymarket/dataapi"
	"github.com/liyuxiao2/polytracker/internal/profile"
	"github.com/liyuxiao2/polytracker/internal/scoring"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// cursorStateKey is the app_state row holding the newest ingested timestamp
const cursorStateKey = "ingest_cursor_ts"

// TradeSource yields the next batch of raw trades to ingest. The poll source
// fetches a page from the Data API; the stream source drains its websocket
// buffer. An empty batch with a nil error means nothing new right now.
type TradeSource interface {
	Next(ctx context.Context) ([]dataapi.Trade, error)
}

type pollSource struct {
	client *dataapi.Client
	limit  int
}

// NewPollSource wraps the Data API trades endpoint as a TradeSource
func NewPollSource(client *dataapi.Client, limit int) TradeSource {
	return &pollSource{client: client, limit: limit}
}

func (s *pollSource) Next(ctx context.Context) ([]dataapi.Trade, error) {
	return s.client.GetTrades(ctx, dataapi.TradeParams{
		Limit:     s.limit,
		TakerOnly: true,
	})
}

// Worker runs the ingestion pipeline: fetch, normalize, dedup, score, batch
// persist, then fan out alerts and profile recomputes for what landed.
type Worker struct {
	cfg        *config.Config
	db         *storage.DB
	feed       *dataapi.Client
	source     TradeSource
	profiles   *profile.Maintainer
	dispatcher *alerts.Dispatcher
	log        *logrus.Logger
	params     scoring.Params

	backfillTokens chan struct{}
	backfillWG     sync.WaitGroup
	inFlight       sync.Map // wallets with a deep backfill running
}

// New creates an ingestion worker. The feed client is used for deep
// backfills even when the primary source is the stream.
func New(
	cfg *config.Config,
	db *storage.DB,
	feed *dataapi.Client,
	source TradeSource,
	profiles *profile.Maintainer,
	dispatcher *alerts.Dispatcher,
	log *logrus.Logger,
) *Worker {
	workers := cfg.Ingest.BackfillWorkers
	if workers < 1 {
		workers = 1
	}
	tokens := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		tokens <- struct{}{}
	}

	return &Worker{
		cfg:            cfg,
		db:             db,
		feed:           feed,
		source:         source,
		profiles:       profiles,
		dispatcher:     dispatcher,
		log:            log,
		params:         cfg.Scoring.Params(),
		backfillTokens: tokens,
	}
}

// Run ingests on the configured interval until the context is cancelled,
// then waits for in-flight backfills to drain.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Ingest.Interval)
	defer ticker.Stop()

	w.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			w.backfillWG.Wait()
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

// cycle runs one fetch-and-commit pass. Errors are logged and left for the
// next tick; the cursor only advances after a successful commit.
func (w *Worker) cycle(ctx context.Context) {
	start := time.Now()

	raw, err := w.source.Next(ctx)
	if err != nil {
		w.log.WithError(err).Error("Trade fetch failed")
		return
	}
	if len(raw) == 0 {
		return
	}

	cursor := w.loadCursor(ctx)

	var (
		batch      []*storage.Trade
		flagged    []*storage.Trade
		seen       = make(map[string]struct{})
		pending    = make(map[string][]float64)
		wallets    = make(map[string]bool) // wallet -> flagged in this batch
		maxTS      = cursor
		duplicates int
	)

	for _, rt := range raw {
		t, skip := Normalize(rt, w.cfg.Ingest.MinTradeUSD)
		if skip != "" {
			metrics.RecordIngest(skip)
			continue
		}
		if t.Timestamp > maxTS {
			maxTS = t.Timestamp
		}
		// The cursor is a work-saver, not the dedup guard; trades at the
		// boundary still pass through the key checks below.
		if t.Timestamp < cursor {
			metrics.RecordIngest("stale")
			continue
		}
		if _, dup := seen[t.DedupKey]; dup {
			duplicates++
			metrics.RecordIngest("duplicate")
			continue
		}
		seen[t.DedupKey] = struct{}{}

		exists, err := w.db.HasTrade(ctx, t.DedupKey)
		if err != nil {
			// Keep the trade; the unique constraint is the final guard.
			w.log.WithError(err).WithField("wallet", t.Wallet).Warn("Dedup lookup failed")
		} else if exists {
			duplicates++
			metrics.RecordIngest("duplicate")
			continue
		}

		w.score(ctx, t, pending[t.Wallet])
		pending[t.Wallet] = append(pending[t.Wallet], t.SizeUSD)

		batch = append(batch, t)
		if t.Flagged {
			flagged = append(flagged, t)
			wallets[t.Wallet] = true
		} else if _, ok := wallets[t.Wallet]; !ok {
			wallets[t.Wallet] = false
		}
	}

	if len(batch) == 0 {
		w.saveCursor(ctx, maxTS)
		metrics.RecordIngestCycle(time.Since(start))
		return
	}

	inserted, err := w.db.InsertTrades(ctx, batch)
	if err != nil {
		w.log.WithError(err).Error("Trade batch insert failed")
		return
	}
	for i := 0; i < inserted; i++ {
		metrics.RecordIngest("inserted")
	}
	for i := 0; i < len(batch)-inserted; i++ {
		metrics.RecordIngest("duplicate")
	}

	w.saveCursor(ctx, maxTS)

	for _, t := range flagged {
		w.emitAnomalyAlert(ctx, t)
	}

	recompute := make([]string, 0, len(wallets))
	for wallet := range wallets {
		recompute = append(recompute, wallet)
	}
	w.profiles.RecomputeMany(ctx, recompute)

	for wallet, wasFlagged := range wallets {
		w.maybeBackfill(ctx, wallet, wasFlagged)
	}

	metrics.RecordIngestCycle(time.Since(start))
	w.log.WithFields(logrus.Fields{
		"fetched":    len(raw),
		"inserted":   inserted,
		"duplicates": duplicates + len(batch) - inserted,
		"flagged":    len(flagged),
		"wallets":    len(wallets),
		"duration":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("Ingest cycle complete")
}

// score runs the anomaly check against the wallet's stored history plus
// whatever earlier trades this batch already holds for it. A failed history
// lookup leaves the trade unscored rather than dropping it.
func (w *Worker) score(ctx context.Context, t *storage.Trade, batchSizes []float64) {
	history, err := w.db.RecentSizes(ctx, t.Wallet, w.params.HistoryLimit)
	if err != nil {
		w.log.WithError(err).WithField("wallet", t.Wallet).Warn("Size history lookup failed")
		return
	}
	history = append(history, batchSizes...)

	z, flaggedNow := scoring.Anomaly(history, t.SizeUSD, w.params)
	t.AnomalyScore = z
	if !flaggedNow {
		return
	}

	t.Flagged = true
	t.FlagReasons = anomalyReason(z, t.SizeUSD, history)
	metrics.RecordFlag(flagKind(z, history, w.params))

	w.log.WithFields(logrus.Fields{
		"wallet":   t.Wallet,
		"market":   t.Market,
		"size_usd": t.SizeUSD,
		"z_score":  z,
		"reason":   t.FlagReasons,
	}).Info("Anomalous trade flagged")
}

// anomalyReason renders the stored flag reason for an anomalous size
func anomalyReason(z, sizeUSD float64, history []float64) string {
	if len(history) < 3 {
		return fmt.Sprintf("Large trade with thin history: $%.0f", sizeUSD)
	}
	mean := scoring.Mean(history)
	if mean > 0 {
		return fmt.Sprintf("Size anomaly: z=%.1f, %.1fx wallet average", z, sizeUSD/mean)
	}
	return fmt.Sprintf("Size anomaly: z=%.1f", z)
}

// flagKind labels which anomaly trigger fired, for the flag counter
func flagKind(z float64, history []float64, p scoring.Params) string {
	if len(history) < 3 {
		return "fallback"
	}
	if math.Abs(z) > p.ZThreshold {
		return "zscore"
	}
	return "relative"
}

func (w *Worker) emitAnomalyAlert(ctx context.Context, t *storage.Trade) {
	event := alerts.NewEvent(alerts.KindAnomaly)
	event.Wallet = t.Wallet
	event.WalletShort = alerts.Shorten(t.Wallet)
	event.Market = t.Market
	event.MarketTitle = t.MarketTitle
	event.Side = t.Side
	event.Outcome = t.Outcome
	event.SizeUSD = t.SizeUSD
	event.Price = t.Price
	event.AnomalyScore = t.AnomalyScore
	event.Reasons = t.FlagReasons
	event.TradeTimestamp = t.Timestamp
	event.Environment = w.cfg.Environment
	w.dispatcher.Dispatch(ctx, &event)
}

// maybeBackfill queues a deep history fetch for wallets that are flagged or
// still thin. At most one backfill per wallet runs at a time, and the token
// pool bounds how many run concurrently.
func (w *Worker) maybeBackfill(ctx context.Context, wallet string, wasFlagged bool) {
	if _, running := w.inFlight.LoadOrStore(wallet, struct{}{}); running {
		return
	}

	count, err := w.db.TradeCount(ctx, wallet)
	if err != nil {
		w.inFlight.Delete(wallet)
		w.log.WithError(err).WithField("wallet", wallet).Warn("Trade count lookup failed")
		return
	}
	if !wasFlagged && count >= int64(w.cfg.Ingest.BackfillTradeThreshold) {
		w.inFlight.Delete(wallet)
		return
	}

	w.backfillWG.Add(1)
	go func() {
		defer w.backfillWG.Done()
		defer w.inFlight.Delete(wallet)

		select {
		case <-ctx.Done():
			return
		case <-w.backfillTokens:
		}
		defer func() { w.backfillTokens <- struct{}{} }()

		if err := w.DeepBackfill(ctx, wallet); err != nil {
			w.log.WithError(err).WithField("wallet", wallet).Warn("Deep backfill failed")
		}
	}()
}

func (w *Worker) loadCursor(ctx context.Context) int64 {
	value, err := w.db.GetState(ctx, cursorStateKey)
	if err != nil {
		w.log.WithError(err).Warn("Cursor load failed")
		return 0
	}
	if value == "" {
		return 0
	}
	cursor, _ := strconv.ParseInt(value, 10, 64)
	return cursor
}

func (w *Worker) saveCursor(ctx context.Context, ts int64) {
	if ts <= 0 {
		return
	}
	if err := w.db.SetState(ctx, cursorStateKey, strconv.FormatInt(ts, 10)); err != nil {
		w.log.WithError(err).Warn("Cursor save failed")
	}
}
