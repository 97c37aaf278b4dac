package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/polymarket/dataapi"
	"github.com/liyuxiao2/polytracker/internal/scoring"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// Maintainer rebuilds trader profiles from scratch. Every recompute reads
// the wallet's full history and overwrites the profile row whole, so
// concurrent recomputes settle on whichever snapshot lands last rather
// than mixing fields from two runs.
type Maintainer struct {
	cfg     *config.Config
	db      *storage.DB
	dataAPI *dataapi.Client
	log     *logrus.Logger
	params  scoring.Params
}

// New creates a profile maintainer
func New(cfg *config.Config, db *storage.DB, dataAPI *dataapi.Client, log *logrus.Logger) *Maintainer {
	return &Maintainer{
		cfg:     cfg,
		db:      db,
		dataAPI: dataAPI,
		log:     log,
		params:  cfg.Scoring.Params(),
	}
}

// Recompute rebuilds one wallet's profile and composite score. A wallet
// with no stored trades is a no-op.
func (m *Maintainer) Recompute(ctx context.Context, wallet string) error {
	start := time.Now()

	trades, err := m.db.TradesForWallet(ctx, wallet)
	if err != nil {
		return fmt.Errorf("load trades for %s: %w", wallet, err)
	}
	if len(trades) == 0 {
		return nil
	}

	firstActivity := m.firstActivityTS(ctx, wallet)

	prof, agg := BuildProfile(wallet, trades, firstActivity, time.Now(), m.params)
	score, breakdown := scoring.Composite(agg, m.params)

	prof.InsiderScore = score
	prof.FirstActivityTS = firstActivity
	prof.UpdatedTS = time.Now().Unix()
	if encoded, err := json.Marshal(breakdown); err == nil {
		prof.ScoreBreakdown = string(encoded)
	}

	if err := m.db.SaveProfile(ctx, prof); err != nil {
		return fmt.Errorf("save profile for %s: %w", wallet, err)
	}

	metrics.RecordProfileRecompute(time.Since(start))
	metrics.RecordInsiderScore(score)

	m.log.WithFields(logrus.Fields{
		"wallet": wallet,
		"trades": prof.TotalTrades,
		"score":  score,
	}).Debug("Profile recomputed")

	return nil
}

// RecomputeMany rebuilds a set of wallets, logging and continuing past
// per-wallet failures. Stops early if the context is cancelled.
func (m *Maintainer) RecomputeMany(ctx context.Context, wallets []string) {
	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return
		}
		if err := m.Recompute(ctx, wallet); err != nil {
			m.log.WithError(err).WithField("wallet", wallet).Warn("Profile recompute failed")
		}
	}
}

// RecomputeAll sweeps every known wallet. The nightly job runs this to pick
// up drift from settled markets and parameter changes.
func (m *Maintainer) RecomputeAll(ctx context.Context) (int, error) {
	wallets, err := m.db.DistinctWallets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list wallets: %w", err)
	}
	m.RecomputeMany(ctx, wallets)
	return len(wallets), nil
}

// RefreshOpenAggregates updates only the open-position columns of a profile
// from the wallet's OPEN trades. This is the valuation worker's light path;
// the composite score catches up on the next full recompute.
func (m *Maintainer) RefreshOpenAggregates(ctx context.Context, wallet string) error {
	agg, err := m.db.OpenPositionAggregates(ctx, wallet)
	if err != nil {
		return fmt.Errorf("open position rollup for %s: %w", wallet, err)
	}
	if err := m.db.UpdateProfileOpenAggregates(ctx, wallet, agg, time.Now().Unix()); err != nil {
		return fmt.Errorf("update open aggregates for %s: %w", wallet, err)
	}
	return nil
}

// firstActivityTS returns the wallet's first on-platform activity. The
// value is fetched from the Data API once and then reused from the stored
// profile; the zero return means "unknown, use the earliest trade".
func (m *Maintainer) firstActivityTS(ctx context.Context, wallet string) int64 {
	existing, err := m.db.GetProfile(ctx, wallet)
	if err == nil && existing != nil && existing.FirstActivityTS > 0 {
		return existing.FirstActivityTS
	}

	if m.dataAPI == nil {
		return 0
	}
	event, err := m.dataAPI.GetWalletFirstActivity(ctx, wallet)
	if err != nil {
		m.log.WithError(err).WithField("wallet", wallet).Debug("First activity lookup failed")
		return 0
	}
	if event == nil {
		return 0
	}
	return event.Timestamp
}
