package resolution

import (
	"math"
	"testing"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

func TestSettle(t *testing.T) {
	now := int64(1705276800)

	tests := []struct {
		name      string
		trade     storage.Trade
		winner    string
		wantWon   bool
		wantPnL   float64
		wantHours float64
	}{
		{
			name:      "longshot winner pays remaining odds",
			trade:     storage.Trade{ID: 1, Outcome: "Yes", Price: 0.05, SizeUSD: 1000, Timestamp: now - 48*3600},
			winner:    "Yes",
			wantWon:   true,
			wantPnL:   19000, // 1000 * 0.95 / 0.05
			wantHours: 48,
		},
		{
			name:      "even odds winner doubles up",
			trade:     storage.Trade{ID: 2, Outcome: "Yes", Price: 0.5, SizeUSD: 500, Timestamp: now - 12*3600},
			winner:    "Yes",
			wantWon:   true,
			wantPnL:   500,
			wantHours: 12,
		},
		{
			name:      "loser writes off full cost",
			trade:     storage.Trade{ID: 3, Outcome: "No", Price: 0.6, SizeUSD: 300, Timestamp: now - 6*3600},
			winner:    "Yes",
			wantWon:   false,
			wantPnL:   -300,
			wantHours: 6,
		},
		{
			name:      "outcome match is case insensitive",
			trade:     storage.Trade{ID: 4, Outcome: "YES", Price: 0.25, SizeUSD: 100, Timestamp: now - 3600},
			winner:    "yes",
			wantWon:   true,
			wantPnL:   300,
			wantHours: 1,
		},
		{
			name:      "zero entry price wins nothing",
			trade:     storage.Trade{ID: 5, Outcome: "Yes", Price: 0, SizeUSD: 100, Timestamp: now - 3600},
			winner:    "Yes",
			wantWon:   true,
			wantPnL:   0,
			wantHours: 1,
		},
		{
			name:      "near-certain entry wins almost nothing",
			trade:     storage.Trade{ID: 6, Outcome: "Yes", Price: 0.99, SizeUSD: 990, Timestamp: now - 90*60},
			winner:    "Yes",
			wantWon:   true,
			wantPnL:   10,
			wantHours: 1.5,
		},
		{
			name:      "future timestamp clamps hours to zero",
			trade:     storage.Trade{ID: 7, Outcome: "Yes", Price: 0.5, SizeUSD: 100, Timestamp: now + 3600},
			winner:    "Yes",
			wantWon:   true,
			wantPnL:   100,
			wantHours: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settle(tt.trade, tt.winner, now)

			if s.ID != tt.trade.ID {
				t.Errorf("ID: got %d, want %d", s.ID, tt.trade.ID)
			}
			if s.Won != tt.wantWon {
				t.Errorf("Won: got %v, want %v", s.Won, tt.wantWon)
			}
			tolerance := math.Abs(tt.wantPnL) * 0.001
			if tolerance < 0.01 {
				tolerance = 0.01
			}
			if math.Abs(s.RealizedPnL-tt.wantPnL) > tolerance {
				t.Errorf("RealizedPnL: got %.2f, want %.2f", s.RealizedPnL, tt.wantPnL)
			}
			if s.ResolvedOutcome != tt.winner {
				t.Errorf("ResolvedOutcome: got %q, want %q", s.ResolvedOutcome, tt.winner)
			}
			if s.ResolvedTS != now {
				t.Errorf("ResolvedTS: got %d, want %d", s.ResolvedTS, now)
			}
			if math.Abs(s.HoursToResolution-tt.wantHours) > 0.001 {
				t.Errorf("HoursToResolution: got %.3f, want %.3f", s.HoursToResolution, tt.wantHours)
			}
		})
	}
}
