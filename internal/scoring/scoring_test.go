package scoring

import (
	"math"
	"strings"
	"testing"
)

// floatNear allows a 0.1% tolerance (with a small absolute floor) for
// floating point comparison across the score math tests.
func floatNear(t *testing.T, got, want float64, context string) {
	t.Helper()
	tolerance := math.Abs(want) * 0.001
	if tolerance < 0.0001 {
		tolerance = 0.0001
	}
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s: got %.6f, want %.6f", context, got, want)
	}
}

func TestAnomaly(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name        string
		history     []float64
		size        float64
		wantZ       float64
		wantFlagged bool
	}{
		{
			name:        "mean-sized trade scores near zero",
			history:     []float64{95, 100, 105, 98, 102},
			size:        100,
			wantZ:       0,
			wantFlagged: false,
		},
		{
			name:        "no history small trade",
			history:     nil,
			size:        500,
			wantZ:       0,
			wantFlagged: false,
		},
		{
			name:        "no history above fallback threshold",
			history:     nil,
			size:        50000,
			wantZ:       0,
			wantFlagged: true,
		},
		{
			name:        "two samples below fallback threshold",
			history:     []float64{100, 200},
			size:        9999,
			wantZ:       0,
			wantFlagged: false,
		},
		{
			name:        "identical sizes zero variance",
			history:     []float64{100, 100, 100, 100},
			size:        1000000,
			wantZ:       0,
			wantFlagged: false,
		},
		{
			// Wide spread keeps z at 2.25 while the size clears 5x the mean.
			name:        "relative multiple trips without z threshold",
			history:     []float64{1, 1, 1, 1, 10000},
			size:        11000,
			wantZ:       8999.2 / 3999.6,
			wantFlagged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, flagged := Anomaly(tt.history, tt.size, p)
			floatNear(t, z, tt.wantZ, "z-score")
			if flagged != tt.wantFlagged {
				t.Errorf("flagged: got %v, want %v", flagged, tt.wantFlagged)
			}
		})
	}
}

func TestAnomalyOutlierScenario(t *testing.T) {
	p := DefaultParams()

	// Ten trades around $100, then a $100k bet.
	history := []float64{95, 103, 98, 101, 97, 104, 99, 100, 102, 96}
	z, flagged := Anomaly(history, 100000, p)

	if !flagged {
		t.Fatal("expected the $100k outlier to be flagged")
	}
	if z < 100 {
		t.Errorf("expected a very large positive z-score, got %.2f", z)
	}
}

func TestAnomalyFirstTradeFallback(t *testing.T) {
	p := DefaultParams()

	z, flagged := Anomaly(nil, 50000, p)
	if !flagged {
		t.Fatal("expected first-ever $50k trade to flag via fallback")
	}
	if z != 0 {
		t.Errorf("fallback path should score 0, got %.4f", z)
	}
}

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := Mean(values)
	floatNear(t, mean, 5, "mean")
	floatNear(t, StdDev(values, mean), 2, "population std dev")

	if got := Mean(nil); got != 0 {
		t.Errorf("mean of empty slice: got %.4f, want 0", got)
	}
	if got := StdDev(nil, 0); got != 0 {
		t.Errorf("std dev of empty slice: got %.4f, want 0", got)
	}
}

func TestEvaluateResolved(t *testing.T) {
	p := DefaultParams()

	quietHistory := WalletHistory{TradeCount: 10, AvgTradeSize: 5000}

	tests := []struct {
		name       string
		trade      ResolvedTrade
		history    WalletHistory
		wantFlag   bool
		wantReason string // substring match; empty means no reason expected
	}{
		{
			name:     "already flagged is skipped",
			trade:    ResolvedTrade{SizeUSD: 50000, RealizedPnL: 100000, Won: true, Flagged: true},
			history:  quietHistory,
			wantFlag: false,
		},
		{
			name:     "losing trade is skipped",
			trade:    ResolvedTrade{SizeUSD: 50000, RealizedPnL: -50000, Won: false},
			history:  quietHistory,
			wantFlag: false,
		},
		{
			name:       "large winning bet",
			trade:      ResolvedTrade{SizeUSD: 7000, EntryPrice: 0.5, RealizedPnL: 30000, Won: true},
			history:    quietHistory,
			wantFlag:   true,
			wantReason: "Large winning bet",
		},
		{
			name:       "high conviction longshot win",
			trade:      ResolvedTrade{SizeUSD: 5000, EntryPrice: 0.05, RealizedPnL: 10000, Won: true},
			history:    quietHistory,
			wantFlag:   true,
			wantReason: "High conviction",
		},
		{
			name:       "outsized versus wallet average",
			trade:      ResolvedTrade{SizeUSD: 30000, EntryPrice: 0.5, RealizedPnL: 1000, Won: true},
			history:    quietHistory,
			wantFlag:   true,
			wantReason: "Outsized bet",
		},
		{
			name:  "flagged streak pattern",
			trade: ResolvedTrade{SizeUSD: 4000, EntryPrice: 0.5, RealizedPnL: 1000, Won: true},
			history: WalletHistory{
				TradeCount: 20, AvgTradeSize: 5000,
				FlaggedResolved: 4, FlaggedWins: 4,
			},
			wantFlag:   true,
			wantReason: "Suspicious pattern",
		},
		{
			name:  "flagged streak below minimum sample",
			trade: ResolvedTrade{SizeUSD: 4000, EntryPrice: 0.5, RealizedPnL: 1000, Won: true},
			history: WalletHistory{
				TradeCount: 20, AvgTradeSize: 5000,
				FlaggedResolved: 2, FlaggedWins: 2,
			},
			wantFlag: false,
		},
		{
			name:     "modest win no reasons",
			trade:    ResolvedTrade{SizeUSD: 4000, EntryPrice: 0.5, RealizedPnL: 1000, Won: true},
			history:  quietHistory,
			wantFlag: false,
		},
		{
			name:     "thin history skips outsized check",
			trade:    ResolvedTrade{SizeUSD: 9000, EntryPrice: 0.5, RealizedPnL: 1000, Won: true},
			history:  WalletHistory{TradeCount: 2, AvgTradeSize: 100},
			wantFlag: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag, reason := EvaluateResolved(tt.trade, tt.history, p)
			if flag != tt.wantFlag {
				t.Fatalf("flag: got %v, want %v (reason %q)", flag, tt.wantFlag, reason)
			}
			if tt.wantReason != "" && !strings.Contains(reason, tt.wantReason) {
				t.Errorf("reason %q does not contain %q", reason, tt.wantReason)
			}
			if !tt.wantFlag && reason != "" {
				t.Errorf("unflagged trade should carry no reason, got %q", reason)
			}
		})
	}
}

func TestEvaluateResolvedJoinsReasons(t *testing.T) {
	p := DefaultParams()

	trade := ResolvedTrade{SizeUSD: 60000, EntryPrice: 0.05, RealizedPnL: 1140000, Won: true}
	history := WalletHistory{TradeCount: 15, AvgTradeSize: 2000, FlaggedResolved: 5, FlaggedWins: 5}

	flag, reason := EvaluateResolved(trade, history, p)
	if !flag {
		t.Fatal("expected flag")
	}
	for _, want := range []string{"Large winning bet", "High conviction", "Outsized bet", "Suspicious pattern"} {
		if !strings.Contains(reason, want) {
			t.Errorf("reason %q missing %q", reason, want)
		}
	}
	if got := strings.Count(reason, "; "); got != 3 {
		t.Errorf("expected 4 reasons joined by semicolons, got %d separators in %q", got, reason)
	}
}

func TestCompositeBounds(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name string
		agg  Aggregates
	}{
		{"empty history", Aggregates{}},
		{
			"all losing",
			Aggregates{TotalTrades: 30, ResolvedTrades: 30, WinRate: 0, ROI: -1, WalletAgeDays: 400},
		},
		{
			"all winning everything maxed",
			Aggregates{
				TotalTrades: 50, ResolvedTrades: 40, WinningTrades: 40,
				FlaggedTrades: 50, WinRate: 1.0, ROI: 5.0,
				OpenPositions: 10, UnrealizedROI: 2.0, UnrealizedWinRate: 1.0,
				LongshotResolved: 10, LongshotWinRate: 1.0,
				LargeBetResolved: 10, LargeBetWinRate: 1.0,
				MarketConcentration: 1.0, WalletAgeDays: 1,
			},
		},
		{
			"pathological negatives",
			Aggregates{TotalTrades: 5, ResolvedTrades: 5, WinRate: -1, ROI: -99, WalletAgeDays: -5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, b := Composite(tt.agg, p)
			if score < 0 || score > 100 {
				t.Errorf("score out of bounds: %.2f", score)
			}
			if b.Total != score {
				t.Errorf("breakdown total %.2f disagrees with score %.2f", b.Total, score)
			}
		})
	}
}

func TestCompositeComponents(t *testing.T) {
	p := DefaultParams()

	t.Run("win rate gated by minimum resolved sample", func(t *testing.T) {
		agg := Aggregates{TotalTrades: 4, ResolvedTrades: 4, WinRate: 1.0}
		_, b := Composite(agg, p)
		if b.WinRate != 0 {
			t.Errorf("win rate bonus should be gated below %d resolved, got %.2f", p.MinResolved, b.WinRate)
		}

		agg.ResolvedTrades = 5
		agg.TotalTrades = 5
		_, b = Composite(agg, p)
		floatNear(t, b.WinRate, winRatePoints, "win rate at ceiling")
	})

	t.Run("win rate scales linearly between base and ceiling", func(t *testing.T) {
		mid := (p.WinRateBase + p.WinRateCeil) / 2
		agg := Aggregates{TotalTrades: 10, ResolvedTrades: 10, WinRate: mid}
		_, b := Composite(agg, p)
		floatNear(t, b.WinRate, winRatePoints/2, "win rate at midpoint")
	})

	t.Run("unrealized needs two open positions", func(t *testing.T) {
		agg := Aggregates{TotalTrades: 3, OpenPositions: 1, UnrealizedROI: 1.0, UnrealizedWinRate: 1.0}
		_, b := Composite(agg, p)
		if b.Unrealized != 0 {
			t.Errorf("one open position should earn nothing, got %.2f", b.Unrealized)
		}

		agg.OpenPositions = 2
		_, b = Composite(agg, p)
		floatNear(t, b.Unrealized, unrealROIPoints+unrealWinPoints, "unrealized maxed")
	})

	t.Run("concentration needs volume and a high HHI", func(t *testing.T) {
		agg := Aggregates{TotalTrades: 9, MarketConcentration: 1.0}
		_, b := Composite(agg, p)
		if b.Concentration != 0 {
			t.Errorf("below minimum trades should earn nothing, got %.2f", b.Concentration)
		}

		agg.TotalTrades = 10
		agg.MarketConcentration = p.ConcentrationHHIBase
		_, b = Composite(agg, p)
		if b.Concentration != 0 {
			t.Errorf("HHI at base should earn nothing, got %.2f", b.Concentration)
		}

		agg.MarketConcentration = 1.0
		_, b = Composite(agg, p)
		floatNear(t, b.Concentration, concentrationPoints, "single-market specialist")
	})

	t.Run("anomaly bundle caps its two terms", func(t *testing.T) {
		agg := Aggregates{TotalTrades: 20, FlaggedTrades: 20, WalletAgeDays: 0}
		_, b := Composite(agg, p)
		floatNear(t, b.Anomaly, anomalyBundleCap, "bundle cap")
	})

	t.Run("roi floor earns nothing", func(t *testing.T) {
		agg := Aggregates{TotalTrades: 10, ResolvedTrades: 10, ROI: p.ROIFloor}
		_, b := Composite(agg, p)
		if b.ROI != 0 {
			t.Errorf("ROI at floor should earn nothing, got %.2f", b.ROI)
		}
	})
}
