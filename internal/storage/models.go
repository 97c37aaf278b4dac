package storage

import (
	"time"

	"gorm.io/gorm"
)

// Trade lifecycle states. A trade is OPEN until its market resolves.
const (
	TradeStatusOpen     = "OPEN"
	TradeStatusResolved = "RESOLVED"
)

// AppState stores small checkpoint values, like the ingestion cursor, so a
// restart resumes where the last run stopped.
type AppState struct {
	StateKey   string `gorm:"primaryKey;size:64"`
	StateValue string `gorm:"type:text;not null"`
	UpdatedTS  int64  `gorm:"not null;index"`
}

func (AppState) TableName() string {
	return "app_state"
}

// Trade is one normalized Polymarket fill. Rows are append-mostly: ingestion
// inserts them, the resolver settles them, the valuer marks open ones to
// market. DedupKey carries the uniqueness guarantee so replayed fetches and
// overlapping backfills cannot double-insert.
type Trade struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	DedupKey string `gorm:"uniqueIndex;size:128;not null"`

	Wallet       string  `gorm:"size:128;not null;index;index:idx_trades_wallet_ts,priority:1"`
	Market       string  `gorm:"size:128;not null;index;index:idx_trades_market_status,priority:1"`
	MarketTitle  string  `gorm:"size:512"`
	MarketSlug   string  `gorm:"size:255"`
	EventSlug    string  `gorm:"size:255"`
	Side         string  `gorm:"size:10;not null"`
	Outcome      string  `gorm:"size:255;not null"`
	OutcomeIndex int     `gorm:"not null;default:0"`
	Price        float64 `gorm:"type:decimal(10,6);not null"`
	SizeUSD      float64 `gorm:"type:decimal(20,6);not null"`
	Shares       float64 `gorm:"type:decimal(20,6);not null;default:0"`
	TxHash       string  `gorm:"size:128;index"`
	Timestamp    int64   `gorm:"not null;index;index:idx_trades_wallet_ts,priority:2"`
	HourOfDay    int     `gorm:"not null;default:0"`

	Flagged      bool    `gorm:"not null;default:false;index"`
	FlagReasons  string  `gorm:"type:text"`
	AnomalyScore float64 `gorm:"type:decimal(10,4);not null;default:0"`

	Status            string  `gorm:"size:16;not null;default:OPEN;index:idx_trades_market_status,priority:2"`
	Won               bool    `gorm:"not null;default:false"`
	ResolvedOutcome   string  `gorm:"size:255"`
	RealizedPnL       float64 `gorm:"column:realized_pnl;type:decimal(20,6);not null;default:0"`
	ResolvedTS        int64   `gorm:"default:0"`
	HoursToResolution float64 `gorm:"type:decimal(12,2);not null;default:0"`

	CurrentPrice  float64 `gorm:"type:decimal(10,6);not null;default:0"`
	CurrentValue  float64 `gorm:"type:decimal(20,6);not null;default:0"`
	UnrealizedPnL float64 `gorm:"column:unrealized_pnl;type:decimal(20,6);not null;default:0"`
	LastValuedTS  int64   `gorm:"default:0"`

	CreatedTS int64 `gorm:"not null"`
}

func (Trade) TableName() string {
	return "trades"
}

// TraderProfile is the full-recompute rollup of one wallet's history. Every
// field is derived from the trades table; the row is overwritten whole so a
// lost race between recomputes still leaves a self-consistent snapshot.
type TraderProfile struct {
	Wallet string `gorm:"primaryKey;size:128"`

	TotalTrades    int     `gorm:"not null;default:0"`
	BuyTrades      int     `gorm:"not null;default:0"`
	SellTrades     int     `gorm:"not null;default:0"`
	YesTrades      int     `gorm:"not null;default:0"`
	NoTrades       int     `gorm:"not null;default:0"`
	TotalVolumeUSD float64 `gorm:"type:decimal(20,6);not null;default:0"`
	AvgTradeSize   float64 `gorm:"type:decimal(20,6);not null;default:0"`

	ResolvedTrades int     `gorm:"not null;default:0"`
	WinningTrades  int     `gorm:"not null;default:0"`
	LosingTrades   int     `gorm:"not null;default:0"`
	WinRate        float64 `gorm:"type:decimal(5,4);not null;default:0;index"`
	RealizedPnLUSD float64 `gorm:"column:realized_pnl_usd;type:decimal(20,6);not null;default:0"`
	ROI            float64 `gorm:"type:decimal(10,4);not null;default:0"`
	ProfitFactor   float64 `gorm:"type:decimal(12,4);not null;default:0"`

	OpenPositions     int     `gorm:"not null;default:0"`
	OpenExposureUSD   float64 `gorm:"type:decimal(20,6);not null;default:0"`
	UnrealizedPnLUSD  float64 `gorm:"column:unrealized_pnl_usd;type:decimal(20,6);not null;default:0"`
	UnrealizedROI     float64 `gorm:"type:decimal(10,4);not null;default:0"`
	UnrealizedWinRate float64 `gorm:"type:decimal(5,4);not null;default:0"`

	FlaggedTrades   int `gorm:"not null;default:0"`
	FlaggedResolved int `gorm:"not null;default:0"`
	FlaggedWins     int `gorm:"not null;default:0"`

	MarketsTraded       int     `gorm:"not null;default:0"`
	MarketConcentration float64 `gorm:"type:decimal(5,4);not null;default:0"`
	TopMarket           string  `gorm:"size:128"`
	OutcomeBias         float64 `gorm:"type:decimal(5,4);not null;default:0"`
	OffHoursShare       float64 `gorm:"type:decimal(5,4);not null;default:0"`
	AvgHoursToResolve   float64 `gorm:"type:decimal(12,2);not null;default:0"`

	LongshotResolved int     `gorm:"not null;default:0"`
	LongshotWinRate  float64 `gorm:"type:decimal(5,4);not null;default:0"`
	LargeBetResolved int     `gorm:"not null;default:0"`
	LargeBetWinRate  float64 `gorm:"type:decimal(5,4);not null;default:0"`

	FirstTradeTS       int64   `gorm:"default:0"`
	LastTradeTS        int64   `gorm:"default:0;index"`
	FirstActivityTS    int64   `gorm:"default:0"`
	WalletAgeDays      float64 `gorm:"type:decimal(10,2);not null;default:0"`
	DaysSinceLastTrade float64 `gorm:"type:decimal(10,2);not null;default:0"`

	InsiderScore   float64 `gorm:"type:decimal(6,2);not null;default:0;index"`
	ScoreBreakdown string  `gorm:"type:text"`

	UpdatedTS int64 `gorm:"not null"`
}

func (TraderProfile) TableName() string {
	return "trader_profiles"
}

// Market caches Gamma metadata per condition id, including the settled
// outcome once the market closes.
type Market struct {
	ConditionID string `gorm:"primaryKey;size:128"`

	Question string `gorm:"size:512"`
	Slug     string `gorm:"size:255;index"`
	Category string `gorm:"size:128"`
	EndDate  int64  `gorm:"default:0"`

	Volume    float64 `gorm:"type:decimal(20,6);default:0"`
	Liquidity float64 `gorm:"type:decimal(20,6);default:0"`
	Active    bool    `gorm:"default:true"`

	Resolved       bool   `gorm:"not null;default:false;index"`
	WinningOutcome string `gorm:"size:255"`
	ResolvedTS     int64  `gorm:"default:0"`

	UpdatedTS int64 `gorm:"not null"`
}

func (Market) TableName() string {
	return "markets"
}

// MarketWatch is one row per market on the hot-market watch list, rebuilt
// from a trailing activity window by the watch job.
type MarketWatch struct {
	ConditionID string `gorm:"primaryKey;size:128"`

	MarketTitle   string  `gorm:"size:512"`
	Category      string  `gorm:"size:64;index"`
	TradeCount    int     `gorm:"not null;default:0"`
	VolumeUSD     float64 `gorm:"type:decimal(20,6);not null;default:0"`
	FlaggedTrades int     `gorm:"not null;default:0"`
	UniqueWallets int     `gorm:"not null;default:0"`

	PriceVolatility float64 `gorm:"type:decimal(10,6);not null;default:0"`
	PriceChange     float64 `gorm:"type:decimal(10,6);not null;default:0"`
	SuspicionScore  float64 `gorm:"type:decimal(6,2);not null;default:0;index"`

	WindowStartTS int64 `gorm:"not null"`
	FirstSeenTS   int64 `gorm:"not null"`
	UpdatedTS     int64 `gorm:"not null;index"`
}

func (MarketWatch) TableName() string {
	return "market_watch"
}

// MarketSnapshot is a point-in-time order book reading from the CLOB API
// for a watched or pinned market.
type MarketSnapshot struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ConditionID string `gorm:"size:128;not null;index:idx_snapshots_market_ts,priority:1"`
	TokenID     string `gorm:"size:128"`

	MidPrice    float64 `gorm:"type:decimal(10,6);not null;default:0"`
	BestBid     float64 `gorm:"type:decimal(10,6);not null;default:0"`
	BestAsk     float64 `gorm:"type:decimal(10,6);not null;default:0"`
	Spread      float64 `gorm:"type:decimal(10,6);not null;default:0"`
	BidDepthUSD float64 `gorm:"type:decimal(20,6);not null;default:0"`
	AskDepthUSD float64 `gorm:"type:decimal(20,6);not null;default:0"`

	CapturedTS int64 `gorm:"not null;index;index:idx_snapshots_market_ts,priority:2"`
}

func (MarketSnapshot) TableName() string {
	return "market_snapshots"
}

// BeforeCreate hooks for timestamps
func (a *AppState) BeforeCreate(tx *gorm.DB) error {
	if a.UpdatedTS == 0 {
		a.UpdatedTS = time.Now().Unix()
	}
	return nil
}

func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.CreatedTS == 0 {
		t.CreatedTS = time.Now().Unix()
	}
	if t.Status == "" {
		t.Status = TradeStatusOpen
	}
	return nil
}

func (p *TraderProfile) BeforeCreate(tx *gorm.DB) error {
	if p.UpdatedTS == 0 {
		p.UpdatedTS = time.Now().Unix()
	}
	return nil
}

func (m *Market) BeforeCreate(tx *gorm.DB) error {
	if m.UpdatedTS == 0 {
		m.UpdatedTS = time.Now().Unix()
	}
	return nil
}

func (w *MarketWatch) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().Unix()
	if w.FirstSeenTS == 0 {
		w.FirstSeenTS = now
	}
	if w.UpdatedTS == 0 {
		w.UpdatedTS = now
	}
	return nil
}

func (s *MarketSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.CapturedTS == 0 {
		s.CapturedTS = time.Now().Unix()
	}
	return nil
}
