package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	// Configure GORM logger
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.Database.DSN)
	default:
		dialector = postgres.Open(cfg.Database.DSN)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.WithField("driver", cfg.Database.Driver).Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the connection is alive, for health checks.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate runs GORM auto-migration (for development only)
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&AppState{},
		&Trade{},
		&TraderProfile{},
		&Market{},
		&MarketWatch{},
		&MarketSnapshot{},
	)
}

// GetState retrieves a checkpoint value by key
func (db *DB) GetState(ctx context.Context, key string) (string, error) {
	var state AppState
	result := db.conn.WithContext(ctx).Where("state_key = ?", key).First(&state)
	if result.Error == gorm.ErrRecordNotFound {
		return "", nil
	}
	if result.Error != nil {
		return "", result.Error
	}
	return state.StateValue, nil
}

// SetState sets a checkpoint value
func (db *DB) SetState(ctx context.Context, key, value string) error {
	state := AppState{
		StateKey:   key,
		StateValue: value,
		UpdatedTS:  time.Now().Unix(),
	}
	return db.conn.WithContext(ctx).Save(&state).Error
}

// InsertTrades inserts a batch of trades in one transaction. Rows whose
// dedup key already exists are skipped by the conflict clause, so replayed
// pages are safe. Returns the number of rows actually inserted.
func (db *DB) InsertTrades(ctx context.Context, trades []*Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	result := db.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).
		CreateInBatches(trades, 100)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// HasTrade checks whether a dedup key is already stored
func (db *DB) HasTrade(ctx context.Context, dedupKey string) (bool, error) {
	var count int64
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Where("dedup_key = ?", dedupKey).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// TradeCount returns how many trades are stored for a wallet
func (db *DB) TradeCount(ctx context.Context, wallet string) (int64, error) {
	var count int64
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Where("wallet = ?", wallet).
		Count(&count)
	return count, result.Error
}

// RecentSizes returns the wallet's most recent trade sizes, newest first,
// capped at limit. Feeds the anomaly baseline.
func (db *DB) RecentSizes(ctx context.Context, wallet string, limit int) ([]float64, error) {
	var sizes []float64
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Where("wallet = ?", wallet).
		Order("timestamp DESC").
		Limit(limit).
		Pluck("size_usd", &sizes)
	return sizes, result.Error
}

// TradesForWallet returns a wallet's full history ordered oldest first.
// The profile maintainer consumes this for its one-pass aggregation.
func (db *DB) TradesForWallet(ctx context.Context, wallet string) ([]Trade, error) {
	var trades []Trade
	result := db.conn.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("timestamp ASC").
		Find(&trades)
	return trades, result.Error
}

// DistinctWallets returns every wallet that has at least one stored trade
func (db *DB) DistinctWallets(ctx context.Context) ([]string, error) {
	var wallets []string
	result := db.conn.WithContext(ctx).Model(&Trade{}).
		Distinct("wallet").
		Pluck("wallet", &wallets)
	return wallets, result.Error
}

// OpenMarkets returns up to limit distinct condition ids that still have
// unsettled trades. The resolver works through these in batches.
func (db *DB) OpenMarkets(ctx context.Context, limit int) ([]string, error) {
	var markets []string
	q := db.conn.WithContext(ctx).Model(&Trade{}).
		Where("status = ?", TradeStatusOpen).
		Distinct("market")
	if limit > 0 {
		q = q.Limit(limit)
	}
	result := q.Pluck("market", &markets)
	return markets, result.Error
}

// OpenTradesForMarket returns the unsettled trades in one market
func (db *DB) OpenTradesForMarket(ctx context.Context, market string) ([]Trade, error) {
	var trades []Trade
	result := db.conn.WithContext(ctx).
		Where("market = ? AND status = ?", market, TradeStatusOpen).
		Find(&trades)
	return trades, result.Error
}

// TradeSettlement is one trade's resolution outcome
type TradeSettlement struct {
	ID                int64
	Won               bool
	RealizedPnL       float64
	ResolvedOutcome   string
	ResolvedTS        int64
	HoursToResolution float64
}

// SettleTrades marks a batch of trades resolved in one transaction, so a
// market settles atomically or not at all. Settlement supersedes any
// mark-to-market state, so the unrealized columns are cleared here.
func (db *DB) SettleTrades(ctx context.Context, settlements []TradeSettlement) error {
	if len(settlements) == 0 {
		return nil
	}
	return db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range settlements {
			updates := map[string]interface{}{
				"status":              TradeStatusResolved,
				"won":                 s.Won,
				"realized_pnl":        s.RealizedPnL,
				"resolved_outcome":    s.ResolvedOutcome,
				"resolved_ts":         s.ResolvedTS,
				"hours_to_resolution": s.HoursToResolution,
				"current_price":       0,
				"current_value":       0,
				"unrealized_pnl":      0,
				"last_valued_ts":      0,
			}
			if err := tx.Model(&Trade{}).Where("id = ?", s.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FlagTrade marks a stored trade suspicious after the fact, appending to
// any reasons already present. Retrospective flags never clear earlier ones.
func (db *DB) FlagTrade(ctx context.Context, id int64, reasons string) error {
	updates := map[string]interface{}{
		"flagged":      true,
		"flag_reasons": reasons,
	}
	return db.conn.WithContext(ctx).
		Model(&Trade{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// OpenOutcomeIndexes lists which outcome slots still hold open buy-side
// trades in a market, so the valuer only prices tokens it needs.
func (db *DB) OpenOutcomeIndexes(ctx context.Context, market string) ([]int, error) {
	var indexes []int
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Where("market = ? AND status = ? AND side = ?", market, TradeStatusOpen, "BUY").
		Distinct("outcome_index").
		Pluck("outcome_index", &indexes)
	return indexes, result.Error
}

// MarkOpenTrades reprices the open buy-side trades on one outcome of a
// market against the current midpoint in a single statement. Position value
// and unrealized PnL are derived in SQL from the stored share count.
func (db *DB) MarkOpenTrades(ctx context.Context, market string, outcomeIndex int, price float64, ts int64) (int64, error) {
	updates := map[string]interface{}{
		"current_price":  price,
		"current_value":  gorm.Expr("shares * ?", price),
		"unrealized_pnl": gorm.Expr("shares * ? - size_usd", price),
		"last_valued_ts": ts,
	}
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Where("market = ? AND status = ? AND side = ? AND outcome_index = ?",
			market, TradeStatusOpen, "BUY", outcomeIndex).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// OpenWalletsForMarket lists wallets holding open buy-side positions in a
// market, so a repricing pass knows whose profiles went stale.
func (db *DB) OpenWalletsForMarket(ctx context.Context, market string) ([]string, error) {
	var wallets []string
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Where("market = ? AND status = ? AND side = ?", market, TradeStatusOpen, "BUY").
		Distinct("wallet").
		Pluck("wallet", &wallets)
	return wallets, result.Error
}

// OpenAggregates is the rollup of one wallet's open buy-side book. Valued
// counts only cover positions the valuer has actually priced.
type OpenAggregates struct {
	Positions      int
	ExposureUSD    float64
	ValuedCount    int
	ValuedExposure float64
	UnrealizedPnL  float64 `gorm:"column:unrealized_pnl"`
	ValuedInProfit int
}

// OpenPositionAggregates rolls up a wallet's open buy-side positions in one
// query, cheap enough to run after every repricing pass.
func (db *DB) OpenPositionAggregates(ctx context.Context, wallet string) (OpenAggregates, error) {
	var agg OpenAggregates
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Select(`COUNT(*) AS positions,
			COALESCE(SUM(size_usd), 0) AS exposure_usd,
			COALESCE(SUM(CASE WHEN last_valued_ts > 0 THEN 1 ELSE 0 END), 0) AS valued_count,
			COALESCE(SUM(CASE WHEN last_valued_ts > 0 THEN size_usd ELSE 0 END), 0) AS valued_exposure,
			COALESCE(SUM(CASE WHEN last_valued_ts > 0 THEN unrealized_pnl ELSE 0 END), 0) AS unrealized_pnl,
			COALESCE(SUM(CASE WHEN last_valued_ts > 0 AND current_price > price THEN 1 ELSE 0 END), 0) AS valued_in_profit`).
		Where("wallet = ? AND status = ? AND side = ?", wallet, TradeStatusOpen, "BUY").
		Scan(&agg)
	return agg, result.Error
}

// UpdateProfileOpenAggregates refreshes only the open-position columns of a
// profile row in place. Wallets without a profile yet are left for the next
// full recompute.
func (db *DB) UpdateProfileOpenAggregates(ctx context.Context, wallet string, agg OpenAggregates, ts int64) error {
	var unrealizedROI, unrealizedWinRate float64
	if agg.ValuedExposure > 0 {
		unrealizedROI = agg.UnrealizedPnL / agg.ValuedExposure
	}
	if agg.ValuedCount > 0 {
		unrealizedWinRate = float64(agg.ValuedInProfit) / float64(agg.ValuedCount)
	}
	updates := map[string]interface{}{
		"open_positions":      agg.Positions,
		"open_exposure_usd":   agg.ExposureUSD,
		"unrealized_pnl_usd":  agg.UnrealizedPnL,
		"unrealized_roi":      unrealizedROI,
		"unrealized_win_rate": unrealizedWinRate,
		"updated_ts":          ts,
	}
	return db.conn.WithContext(ctx).
		Model(&TraderProfile{}).
		Where("wallet = ?", wallet).
		Updates(updates).Error
}

// GetProfile retrieves a trader profile, nil when the wallet is unknown
func (db *DB) GetProfile(ctx context.Context, wallet string) (*TraderProfile, error) {
	var profile TraderProfile
	result := db.conn.WithContext(ctx).Where("wallet = ?", wallet).First(&profile)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &profile, nil
}

// SaveProfile writes a full profile snapshot, replacing any existing row
func (db *DB) SaveProfile(ctx context.Context, profile *TraderProfile) error {
	return db.conn.WithContext(ctx).Save(profile).Error
}

// TopProfiles returns the highest-scoring wallets with at least minTrades
func (db *DB) TopProfiles(ctx context.Context, limit, minTrades int) ([]TraderProfile, error) {
	var profiles []TraderProfile
	result := db.conn.WithContext(ctx).
		Where("total_trades >= ?", minTrades).
		Order("insider_score DESC").
		Limit(limit).
		Find(&profiles)
	return profiles, result.Error
}

// ListProfiles returns a ranked page of profiles at or above minScore, plus
// the total match count for pagination.
func (db *DB) ListProfiles(ctx context.Context, minScore float64, limit, offset int) ([]TraderProfile, int64, error) {
	q := db.conn.WithContext(ctx).Model(&TraderProfile{})
	if minScore > 0 {
		q = q.Where("insider_score >= ?", minScore)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	var profiles []TraderProfile
	result := q.Order("insider_score DESC").Limit(limit).Offset(offset).Find(&profiles)
	return profiles, total, result.Error
}

// ProfilesForWallets loads profiles for a wallet set, keyed by address.
// Wallets without a profile are simply absent from the map.
func (db *DB) ProfilesForWallets(ctx context.Context, wallets []string) (map[string]TraderProfile, error) {
	out := make(map[string]TraderProfile, len(wallets))
	if len(wallets) == 0 {
		return out, nil
	}
	var profiles []TraderProfile
	result := db.conn.WithContext(ctx).Where("wallet IN ?", wallets).Find(&profiles)
	if result.Error != nil {
		return nil, result.Error
	}
	for _, p := range profiles {
		out[p.Wallet] = p
	}
	return out, nil
}

// GetMarket retrieves cached market metadata, nil when unknown
func (db *DB) GetMarket(ctx context.Context, conditionID string) (*Market, error) {
	var market Market
	result := db.conn.WithContext(ctx).Where("condition_id = ?", conditionID).First(&market)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &market, nil
}

// UpsertMarket inserts or updates cached market metadata
func (db *DB) UpsertMarket(ctx context.Context, market *Market) error {
	market.UpdatedTS = time.Now().Unix()
	return db.conn.WithContext(ctx).Save(market).Error
}

// TradeFilter narrows ListTrades. Zero values mean no constraint.
type TradeFilter struct {
	Wallet      string
	Market      string
	Status      string
	FlaggedOnly bool
	Since       int64
	Limit       int
	Offset      int
}

// ListTrades returns a filtered page of trades newest first, plus the total
// row count for the filter so the API can paginate.
func (db *DB) ListTrades(ctx context.Context, f TradeFilter) ([]Trade, int64, error) {
	q := db.conn.WithContext(ctx).Model(&Trade{})
	if f.Wallet != "" {
		q = q.Where("wallet = ?", f.Wallet)
	}
	if f.Market != "" {
		q = q.Where("market = ?", f.Market)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.FlaggedOnly {
		q = q.Where("flagged = ?", true)
	}
	if f.Since > 0 {
		q = q.Where("timestamp >= ?", f.Since)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var trades []Trade
	result := q.Order("timestamp DESC").Limit(limit).Offset(f.Offset).Find(&trades)
	return trades, total, result.Error
}

// TrendingTrades returns recent trades that are flagged or at least
// minSizeUSD, newest first.
func (db *DB) TrendingTrades(ctx context.Context, since int64, minSizeUSD float64, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	var trades []Trade
	result := db.conn.WithContext(ctx).
		Where("timestamp >= ?", since).
		Where("flagged = ? OR size_usd >= ?", true, minSizeUSD).
		Order("timestamp DESC").
		Limit(limit).
		Find(&trades)
	return trades, result.Error
}

// MarketActivity is one market's aggregate over a trailing window, used to
// build the watch list.
type MarketActivity struct {
	Market        string
	MarketTitle   string
	TradeCount    int
	VolumeUSD     float64
	FlaggedTrades int
	UniqueWallets int
}

// MarketActivitySince aggregates per-market trade activity newer than the
// cutoff, keeping only markets with at least minTrades fills.
func (db *DB) MarketActivitySince(ctx context.Context, since int64, minTrades int) ([]MarketActivity, error) {
	var rows []MarketActivity
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Select(`market,
			MAX(market_title) AS market_title,
			COUNT(*) AS trade_count,
			SUM(size_usd) AS volume_usd,
			SUM(CASE WHEN flagged THEN 1 ELSE 0 END) AS flagged_trades,
			COUNT(DISTINCT wallet) AS unique_wallets`).
		Where("timestamp >= ?", since).
		Group("market").
		Having("COUNT(*) >= ?", minTrades).
		Scan(&rows)
	return rows, result.Error
}

// MarketTradeLite is the slice of a trade the watch scorer reads
type MarketTradeLite struct {
	Wallet       string
	Price        float64
	SizeUSD      float64
	Flagged      bool
	AnomalyScore float64
	Timestamp    int64
}

// TradesForMarketSince returns one market's fills newer than the cutoff in
// time order, trimmed to the columns the watch scorer needs.
func (db *DB) TradesForMarketSince(ctx context.Context, market string, since int64) ([]MarketTradeLite, error) {
	var rows []MarketTradeLite
	result := db.conn.WithContext(ctx).
		Model(&Trade{}).
		Select("wallet, price, size_usd, flagged, anomaly_score, timestamp").
		Where("market = ? AND timestamp >= ?", market, since).
		Order("timestamp ASC").
		Scan(&rows)
	return rows, result.Error
}

// UpsertMarketWatch refreshes watch list rows, preserving first_seen_ts on
// markets already being watched.
func (db *DB) UpsertMarketWatch(ctx context.Context, rows []*MarketWatch) error {
	if len(rows) == 0 {
		return nil
	}
	return db.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "condition_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"market_title", "category", "trade_count", "volume_usd",
				"flagged_trades", "unique_wallets", "price_volatility",
				"price_change", "suspicion_score", "window_start_ts", "updated_ts",
			}),
		}).
		Create(rows).Error
}

// PruneMarketWatch drops watch rows not refreshed since the cutoff
func (db *DB) PruneMarketWatch(ctx context.Context, updatedBefore int64) (int64, error) {
	result := db.conn.WithContext(ctx).
		Where("updated_ts < ?", updatedBefore).
		Delete(&MarketWatch{})
	return result.RowsAffected, result.Error
}

// ListMarketWatch returns the current watch list, busiest markets first
func (db *DB) ListMarketWatch(ctx context.Context) ([]MarketWatch, error) {
	var rows []MarketWatch
	result := db.conn.WithContext(ctx).
		Order("volume_usd DESC").
		Find(&rows)
	return rows, result.Error
}

// InsertSnapshot stores one order book reading
func (db *DB) InsertSnapshot(ctx context.Context, snapshot *MarketSnapshot) error {
	return db.conn.WithContext(ctx).Create(snapshot).Error
}

// ListSnapshots returns snapshots for a market newer than since, oldest first
func (db *DB) ListSnapshots(ctx context.Context, market string, since int64, limit int) ([]MarketSnapshot, error) {
	q := db.conn.WithContext(ctx).Where("condition_id = ?", market)
	if since > 0 {
		q = q.Where("captured_ts >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []MarketSnapshot
	result := q.Order("captured_ts ASC").Find(&rows)
	return rows, result.Error
}

// PruneSnapshots deletes snapshots older than the retention cutoff
func (db *DB) PruneSnapshots(ctx context.Context, capturedBefore int64) (int64, error) {
	result := db.conn.WithContext(ctx).
		Where("captured_ts < ?", capturedBefore).
		Delete(&MarketSnapshot{})
	return result.RowsAffected, result.Error
}

// Wallets scoring at or above this count as high-signal on the dashboard.
const highScoreCut = 50.0

// SystemStats is the roll-up served by the stats endpoint
type SystemStats struct {
	TotalTrades      int64   `json:"total_trades"`
	FlaggedTrades    int64   `json:"flagged_trades"`
	FlaggedToday     int64   `json:"flagged_today"`
	OpenTrades       int64   `json:"open_trades"`
	ResolvedTrades   int64   `json:"resolved_trades"`
	TrackedWallets   int64   `json:"tracked_wallets"`
	HighScoreWallets int64   `json:"high_score_wallets"`
	AvgInsiderScore  float64 `json:"avg_insider_score"`
	WatchedMarkets   int64   `json:"watched_markets"`
	TotalVolumeUSD   float64 `json:"total_volume_usd"`
}

// Stats collects table-level counts for the stats endpoint
func (db *DB) Stats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats
	conn := db.conn.WithContext(ctx)

	if err := conn.Model(&Trade{}).Count(&stats.TotalTrades).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&Trade{}).Where("flagged = ?", true).Count(&stats.FlaggedTrades).Error; err != nil {
		return nil, err
	}
	todayStart := time.Now().UTC().Truncate(24 * time.Hour).Unix()
	if err := conn.Model(&Trade{}).Where("flagged = ? AND timestamp >= ?", true, todayStart).Count(&stats.FlaggedToday).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&Trade{}).Where("status = ?", TradeStatusOpen).Count(&stats.OpenTrades).Error; err != nil {
		return nil, err
	}
	stats.ResolvedTrades = stats.TotalTrades - stats.OpenTrades
	if err := conn.Model(&TraderProfile{}).Count(&stats.TrackedWallets).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&TraderProfile{}).Where("insider_score >= ?", highScoreCut).Count(&stats.HighScoreWallets).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&MarketWatch{}).Count(&stats.WatchedMarkets).Error; err != nil {
		return nil, err
	}

	var avgScore *float64
	if err := conn.Model(&TraderProfile{}).Select("AVG(insider_score)").Scan(&avgScore).Error; err != nil {
		return nil, err
	}
	if avgScore != nil {
		stats.AvgInsiderScore = *avgScore
	}

	var volume *float64
	if err := conn.Model(&Trade{}).Select("SUM(size_usd)").Scan(&volume).Error; err != nil {
		return nil, err
	}
	if volume != nil {
		stats.TotalVolumeUSD = *volume
	}

	return &stats, nil
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
