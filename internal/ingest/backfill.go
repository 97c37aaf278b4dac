package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/polymarket/dataapi"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// DeepBackfill pages backward through one wallet's full trade history and
// stores whatever the live poll missed. Historical anomalies still get
// scored and flagged, but no alerts fire for them.
func (w *Worker) DeepBackfill(ctx context.Context, wallet string) error {
	start := time.Now()

	var (
		before    int64
		pages     int
		total     int
		dupStreak int
	)
	for pages = 0; pages < w.cfg.Ingest.BackfillMaxPages; pages++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw, err := w.feed.GetTrades(ctx, dataapi.TradeParams{
			Limit:     w.cfg.Ingest.BackfillPageSize,
			User:      wallet,
			TakerOnly: true,
			Before:    before,
		})
		if err != nil {
			return fmt.Errorf("fetch history page for %s: %w", wallet, err)
		}
		if len(raw) == 0 {
			break
		}
		metrics.BackfillPages.WithLabelValues("deep").Inc()

		inserted, oldest, err := w.ingestPage(ctx, raw)
		if err != nil {
			return err
		}
		total += inserted

		if inserted == 0 {
			dupStreak++
			if dupStreak >= w.cfg.Ingest.BackfillDupPages {
				break
			}
		} else {
			dupStreak = 0
		}

		if len(raw) < w.cfg.Ingest.BackfillPageSize {
			break
		}
		next, ok := nextBefore(before, oldest)
		if !ok {
			break
		}
		before = next
	}

	if total > 0 {
		if err := w.profiles.Recompute(ctx, wallet); err != nil {
			w.log.WithError(err).WithField("wallet", wallet).Warn("Post-backfill recompute failed")
		}
	}

	w.log.WithFields(logrus.Fields{
		"wallet":   wallet,
		"pages":    pages,
		"inserted": total,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Deep backfill complete")
	return nil
}

// BulkBackfill walks the whole feed backward until it hits the page budget,
// the oldest boundary, or runs out of new trades. It is the one-shot seeding
// path; the caller is expected to recompute profiles afterward.
func (w *Worker) BulkBackfill(ctx context.Context, maxPages int, oldest time.Time) (int, error) {
	if maxPages <= 0 {
		maxPages = w.cfg.Ingest.BackfillMaxPages
	}
	var floor int64
	if !oldest.IsZero() {
		floor = oldest.Unix()
	}
	start := time.Now()

	var (
		before    int64
		pages     int
		total     int
		dupStreak int
	)
	for pages = 0; pages < maxPages; pages++ {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		raw, err := w.feed.GetTrades(ctx, dataapi.TradeParams{
			Limit:     w.cfg.Ingest.BackfillPageSize,
			TakerOnly: true,
			Before:    before,
		})
		if err != nil {
			return total, fmt.Errorf("fetch feed page: %w", err)
		}
		if len(raw) == 0 {
			break
		}
		metrics.BackfillPages.WithLabelValues("bulk").Inc()

		inserted, pageOldest, err := w.ingestPage(ctx, raw)
		if err != nil {
			return total, err
		}
		total += inserted

		if inserted == 0 {
			dupStreak++
			if dupStreak >= w.cfg.Ingest.BackfillDupPages {
				break
			}
		} else {
			dupStreak = 0
		}

		if floor > 0 && pageOldest > 0 && pageOldest <= floor {
			break
		}
		if len(raw) < w.cfg.Ingest.BackfillPageSize {
			break
		}
		next, ok := nextBefore(before, pageOldest)
		if !ok {
			break
		}
		before = next
	}

	w.log.WithFields(logrus.Fields{
		"pages":    pages,
		"inserted": total,
		"duration": time.Since(start).Round(time.Second).String(),
	}).Info("Bulk backfill complete")
	return total, nil
}

// nextBefore advances the backward cursor. The bound is exclusive, so the
// next page starts one second above the oldest trade seen; the overlap second
// gets re-fetched and the key checks drop it. A cursor that cannot move back
// means the remaining trades share one second and the page already covered
// them.
func nextBefore(before, oldest int64) (int64, bool) {
	if oldest <= 0 {
		return 0, false
	}
	next := oldest + 1
	if before > 0 && next >= before {
		return 0, false
	}
	return next, true
}

// ingestPage normalizes, dedups, scores, and stores one page of historical
// trades. It returns how many rows landed and the oldest timestamp on the
// page, which drives pagination even when every row was skipped.
func (w *Worker) ingestPage(ctx context.Context, raw []dataapi.Trade) (int, int64, error) {
	var (
		batch   []*storage.Trade
		seen    = make(map[string]struct{})
		pending = make(map[string][]float64)
		oldest  int64
	)

	for _, rt := range raw {
		if ts := unixSeconds(rt.Timestamp); ts > 0 && (oldest == 0 || ts < oldest) {
			oldest = ts
		}

		t, skip := Normalize(rt, w.cfg.Ingest.MinTradeUSD)
		if skip != "" {
			metrics.RecordIngest(skip)
			continue
		}
		if _, dup := seen[t.DedupKey]; dup {
			metrics.RecordIngest("duplicate")
			continue
		}
		seen[t.DedupKey] = struct{}{}

		exists, err := w.db.HasTrade(ctx, t.DedupKey)
		if err != nil {
			w.log.WithError(err).WithField("wallet", t.Wallet).Warn("Dedup lookup failed")
		} else if exists {
			metrics.RecordIngest("duplicate")
			continue
		}

		w.score(ctx, t, pending[t.Wallet])
		pending[t.Wallet] = append(pending[t.Wallet], t.SizeUSD)
		batch = append(batch, t)
	}

	if len(batch) == 0 {
		return 0, oldest, nil
	}

	inserted, err := w.db.InsertTrades(ctx, batch)
	if err != nil {
		return 0, oldest, fmt.Errorf("insert history batch: %w", err)
	}
	for i := 0; i < inserted; i++ {
		metrics.RecordIngest("inserted")
	}
	for i := 0; i < len(batch)-inserted; i++ {
		metrics.RecordIngest("duplicate")
	}
	return inserted, oldest, nil
}
