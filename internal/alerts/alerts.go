package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies what raised the alert
type Kind string

const (
	// KindAnomaly fires when ingestion flags a trade against the wallet's
	// size baseline.
	KindAnomaly Kind = "anomaly"
	// KindRetrospective fires when settlement flags a winner in hindsight.
	KindRetrospective Kind = "retrospective"
)

// Event is one suspicious-trade notification
type Event struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	Wallet      string `json:"wallet"`
	WalletShort string `json:"wallet_short"`
	Market      string `json:"market"`
	MarketTitle string `json:"market_title"`

	Side         string  `json:"side"`
	Outcome      string  `json:"outcome"`
	SizeUSD      float64 `json:"size_usd"`
	Price        float64 `json:"price"`
	AnomalyScore float64 `json:"anomaly_score,omitempty"`
	Reasons      string  `json:"reasons"`

	TradeTimestamp int64     `json:"trade_timestamp"`
	Environment    string    `json:"environment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewEvent stamps an event with a fresh id and creation time
func NewEvent(kind Kind) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// Shorten abbreviates a wallet address or tx hash for display
func Shorten(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// Sender delivers events to one destination
type Sender interface {
	Name() string
	Send(ctx context.Context, event *Event) error
}
