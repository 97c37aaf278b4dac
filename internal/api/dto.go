package api

import (
	"encoding/json"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

// TraderSummary is one row of the ranked trader list.
type TraderSummary struct {
	Wallet         string  `json:"wallet"`
	InsiderScore   float64 `json:"insider_score"`
	TotalTrades    int     `json:"total_trades"`
	AvgTradeSize   float64 `json:"avg_trade_size"`
	WinRate        float64 `json:"win_rate"`
	RealizedPnLUSD float64 `json:"realized_pnl_usd"`
	FlaggedTrades  int     `json:"flagged_trades"`
	FlaggedWins    int     `json:"flagged_wins"`
	LastTradeTS    int64   `json:"last_trade_ts"`
}

func newTraderSummary(p storage.TraderProfile) TraderSummary {
	return TraderSummary{
		Wallet:         p.Wallet,
		InsiderScore:   p.InsiderScore,
		TotalTrades:    p.TotalTrades,
		AvgTradeSize:   p.AvgTradeSize,
		WinRate:        p.WinRate,
		RealizedPnLUSD: p.RealizedPnLUSD,
		FlaggedTrades:  p.FlaggedTrades,
		FlaggedWins:    p.FlaggedWins,
		LastTradeTS:    p.LastTradeTS,
	}
}

// TraderDetail is the full profile for a single wallet, score breakdown
// included.
type TraderDetail struct {
	Wallet string `json:"wallet"`

	TotalTrades    int     `json:"total_trades"`
	BuyTrades      int     `json:"buy_trades"`
	SellTrades     int     `json:"sell_trades"`
	YesTrades      int     `json:"yes_trades"`
	NoTrades       int     `json:"no_trades"`
	TotalVolumeUSD float64 `json:"total_volume_usd"`
	AvgTradeSize   float64 `json:"avg_trade_size"`

	ResolvedTrades int     `json:"resolved_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	RealizedPnLUSD float64 `json:"realized_pnl_usd"`
	ROI            float64 `json:"roi"`
	ProfitFactor   float64 `json:"profit_factor"`

	OpenPositions     int     `json:"open_positions"`
	OpenExposureUSD   float64 `json:"open_exposure_usd"`
	UnrealizedPnLUSD  float64 `json:"unrealized_pnl_usd"`
	UnrealizedROI     float64 `json:"unrealized_roi"`
	UnrealizedWinRate float64 `json:"unrealized_win_rate"`

	FlaggedTrades   int `json:"flagged_trades"`
	FlaggedResolved int `json:"flagged_resolved"`
	FlaggedWins     int `json:"flagged_wins"`

	MarketsTraded       int     `json:"markets_traded"`
	MarketConcentration float64 `json:"market_concentration"`
	TopMarket           string  `json:"top_market,omitempty"`
	OutcomeBias         float64 `json:"outcome_bias"`
	OffHoursShare       float64 `json:"off_hours_share"`
	AvgHoursToResolve   float64 `json:"avg_hours_to_resolve"`

	LongshotResolved int     `json:"longshot_resolved"`
	LongshotWinRate  float64 `json:"longshot_win_rate"`
	LargeBetResolved int     `json:"large_bet_resolved"`
	LargeBetWinRate  float64 `json:"large_bet_win_rate"`

	FirstTradeTS       int64   `json:"first_trade_ts"`
	LastTradeTS        int64   `json:"last_trade_ts"`
	FirstActivityTS    int64   `json:"first_activity_ts"`
	WalletAgeDays      float64 `json:"wallet_age_days"`
	DaysSinceLastTrade float64 `json:"days_since_last_trade"`

	InsiderScore   float64         `json:"insider_score"`
	ScoreBreakdown json.RawMessage `json:"score_breakdown,omitempty"`

	UpdatedTS int64 `json:"updated_ts"`
}

func newTraderDetail(p storage.TraderProfile) TraderDetail {
	d := TraderDetail{
		Wallet: p.Wallet,

		TotalTrades:    p.TotalTrades,
		BuyTrades:      p.BuyTrades,
		SellTrades:     p.SellTrades,
		YesTrades:      p.YesTrades,
		NoTrades:       p.NoTrades,
		TotalVolumeUSD: p.TotalVolumeUSD,
		AvgTradeSize:   p.AvgTradeSize,

		ResolvedTrades: p.ResolvedTrades,
		WinningTrades:  p.WinningTrades,
		LosingTrades:   p.LosingTrades,
		WinRate:        p.WinRate,
		RealizedPnLUSD: p.RealizedPnLUSD,
		ROI:            p.ROI,
		ProfitFactor:   p.ProfitFactor,

		OpenPositions:     p.OpenPositions,
		OpenExposureUSD:   p.OpenExposureUSD,
		UnrealizedPnLUSD:  p.UnrealizedPnLUSD,
		UnrealizedROI:     p.UnrealizedROI,
		UnrealizedWinRate: p.UnrealizedWinRate,

		FlaggedTrades:   p.FlaggedTrades,
		FlaggedResolved: p.FlaggedResolved,
		FlaggedWins:     p.FlaggedWins,

		MarketsTraded:       p.MarketsTraded,
		MarketConcentration: p.MarketConcentration,
		TopMarket:           p.TopMarket,
		OutcomeBias:         p.OutcomeBias,
		OffHoursShare:       p.OffHoursShare,
		AvgHoursToResolve:   p.AvgHoursToResolve,

		LongshotResolved: p.LongshotResolved,
		LongshotWinRate:  p.LongshotWinRate,
		LargeBetResolved: p.LargeBetResolved,
		LargeBetWinRate:  p.LargeBetWinRate,

		FirstTradeTS:       p.FirstTradeTS,
		LastTradeTS:        p.LastTradeTS,
		FirstActivityTS:    p.FirstActivityTS,
		WalletAgeDays:      p.WalletAgeDays,
		DaysSinceLastTrade: p.DaysSinceLastTrade,

		InsiderScore: p.InsiderScore,
		UpdatedTS:    p.UpdatedTS,
	}
	if json.Valid([]byte(p.ScoreBreakdown)) {
		d.ScoreBreakdown = json.RawMessage(p.ScoreBreakdown)
	}
	return d
}

// TradeView is one trade row in wallet history responses.
type TradeView struct {
	ID          int64  `json:"id"`
	Wallet      string `json:"wallet"`
	Market      string `json:"market"`
	MarketTitle string `json:"market_title"`
	MarketSlug  string `json:"market_slug,omitempty"`
	EventSlug   string `json:"event_slug,omitempty"`

	Side      string  `json:"side"`
	Outcome   string  `json:"outcome"`
	Price     float64 `json:"price"`
	SizeUSD   float64 `json:"size_usd"`
	Shares    float64 `json:"shares"`
	TxHash    string  `json:"tx_hash,omitempty"`
	Timestamp int64   `json:"timestamp"`

	Flagged      bool    `json:"flagged"`
	FlagReasons  string  `json:"flag_reasons,omitempty"`
	AnomalyScore float64 `json:"anomaly_score"`

	Status            string  `json:"status"`
	Won               bool    `json:"won"`
	RealizedPnLUSD    float64 `json:"realized_pnl_usd"`
	HoursToResolution float64 `json:"hours_to_resolution,omitempty"`
	CurrentPrice      float64 `json:"current_price,omitempty"`
	UnrealizedPnLUSD  float64 `json:"unrealized_pnl_usd,omitempty"`
}

func newTradeView(t storage.Trade) TradeView {
	return TradeView{
		ID:          t.ID,
		Wallet:      t.Wallet,
		Market:      t.Market,
		MarketTitle: t.MarketTitle,
		MarketSlug:  t.MarketSlug,
		EventSlug:   t.EventSlug,

		Side:      t.Side,
		Outcome:   t.Outcome,
		Price:     t.Price,
		SizeUSD:   t.SizeUSD,
		Shares:    t.Shares,
		TxHash:    t.TxHash,
		Timestamp: t.Timestamp,

		Flagged:      t.Flagged,
		FlagReasons:  t.FlagReasons,
		AnomalyScore: t.AnomalyScore,

		Status:            t.Status,
		Won:               t.Won,
		RealizedPnLUSD:    t.RealizedPnL,
		HoursToResolution: t.HoursToResolution,
		CurrentPrice:      t.CurrentPrice,
		UnrealizedPnLUSD:  t.UnrealizedPnL,
	}
}

// TrendingTrade decorates a recent large or flagged trade with how far it
// sits from the wallet's usual size.
type TrendingTrade struct {
	Wallet      string `json:"wallet"`
	Market      string `json:"market"`
	MarketTitle string `json:"market_title"`

	Side    string  `json:"side"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	SizeUSD float64 `json:"size_usd"`

	ZScore       float64 `json:"z_score"`
	DeviationPct float64 `json:"deviation_pct"`
	Flagged      bool    `json:"flagged"`
	FlagReasons  string  `json:"flag_reasons,omitempty"`

	Status           string  `json:"status"`
	Won              bool    `json:"won"`
	RealizedPnLUSD   float64 `json:"realized_pnl_usd"`
	UnrealizedPnLUSD float64 `json:"unrealized_pnl_usd"`

	Timestamp    int64 `json:"timestamp"`
	TradeHourUTC int   `json:"trade_hour_utc"`
}

// newTrendingTrade derives the deviation percentage from the wallet's average
// trade size, zero when the wallet has no usable average yet.
func newTrendingTrade(t storage.Trade, avgSize float64) TrendingTrade {
	deviation := 0.0
	if avgSize > 0 {
		deviation = (t.SizeUSD - avgSize) / avgSize * 100
	}
	return TrendingTrade{
		Wallet:      t.Wallet,
		Market:      t.Market,
		MarketTitle: t.MarketTitle,

		Side:    t.Side,
		Outcome: t.Outcome,
		Price:   t.Price,
		SizeUSD: t.SizeUSD,

		ZScore:       t.AnomalyScore,
		DeviationPct: deviation,
		Flagged:      t.Flagged,
		FlagReasons:  t.FlagReasons,

		Status:           t.Status,
		Won:              t.Won,
		RealizedPnLUSD:   t.RealizedPnL,
		UnrealizedPnLUSD: t.UnrealizedPnL,

		Timestamp:    t.Timestamp,
		TradeHourUTC: t.HourOfDay,
	}
}

// WatchRow is one market on the hot-market watch list.
type WatchRow struct {
	ConditionID   string  `json:"condition_id"`
	MarketTitle   string  `json:"market_title"`
	Category      string  `json:"category"`
	TradeCount    int     `json:"trade_count"`
	VolumeUSD     float64 `json:"volume_usd"`
	FlaggedTrades int     `json:"flagged_trades"`
	UniqueWallets int     `json:"unique_wallets"`

	PriceVolatility float64 `json:"price_volatility"`
	PriceChange     float64 `json:"price_change"`
	SuspicionScore  float64 `json:"suspicion_score"`

	WindowStartTS int64 `json:"window_start_ts"`
	FirstSeenTS   int64 `json:"first_seen_ts"`
	UpdatedTS     int64 `json:"updated_ts"`
}

func newWatchRow(w storage.MarketWatch) WatchRow {
	return WatchRow{
		ConditionID:   w.ConditionID,
		MarketTitle:   w.MarketTitle,
		Category:      w.Category,
		TradeCount:    w.TradeCount,
		VolumeUSD:     w.VolumeUSD,
		FlaggedTrades: w.FlaggedTrades,
		UniqueWallets: w.UniqueWallets,

		PriceVolatility: w.PriceVolatility,
		PriceChange:     w.PriceChange,
		SuspicionScore:  w.SuspicionScore,

		WindowStartTS: w.WindowStartTS,
		FirstSeenTS:   w.FirstSeenTS,
		UpdatedTS:     w.UpdatedTS,
	}
}
