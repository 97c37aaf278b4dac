package profile

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/liyuxiao2/polytracker/internal/scoring"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

func near(t *testing.T, got, want float64, context string) {
	t.Helper()
	tolerance := math.Abs(want) * 0.001
	if tolerance < 0.0001 {
		tolerance = 0.0001
	}
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s: got %.6f, want %.6f", context, got, want)
	}
}

func TestBuildProfileEmpty(t *testing.T) {
	prof, _ := BuildProfile("0xabc", nil, 0, time.Now(), scoring.DefaultParams())
	if prof != nil {
		t.Fatalf("expected nil profile for empty history, got %+v", prof)
	}
}

func TestBuildProfileMixedHistory(t *testing.T) {
	p := scoring.DefaultParams()

	// 2024-01-15 00:00:00 UTC
	dayStart := int64(1705276800)

	trades := []storage.Trade{
		{
			// Longshot winner during off hours, flagged at ingest.
			Market: "0xm1", Side: "BUY", Outcome: "Yes", Price: 0.05, SizeUSD: 100,
			Timestamp: dayStart + 4*3600, Flagged: true,
			Status: storage.TradeStatusResolved, Won: true, RealizedPnL: 1900,
			HoursToResolution: 48,
		},
		{
			Market: "0xm1", Side: "BUY", Outcome: "No", Price: 0.5, SizeUSD: 100,
			Timestamp: dayStart + 12*3600,
			Status:    storage.TradeStatusResolved, Won: false, RealizedPnL: -100,
			HoursToResolution: 24,
		},
		{
			// Open position already marked to market, in profit.
			Market: "0xm2", Side: "BUY", Outcome: "Yes", Price: 0.3, SizeUSD: 300, Shares: 1000,
			Timestamp: dayStart + 13*3600,
			Status:    storage.TradeStatusOpen,
			CurrentPrice: 0.6, CurrentValue: 600, UnrealizedPnL: 300, LastValuedTS: dayStart + 14*3600,
		},
		{
			// Open position not yet valued.
			Market: "0xm2", Side: "BUY", Outcome: "Yes", Price: 0.4, SizeUSD: 500,
			Timestamp: dayStart + 15*3600,
			Status:    storage.TradeStatusOpen,
		},
	}

	now := time.Unix(dayStart+35*86400, 0)
	prof, agg := BuildProfile("0xabc", trades, dayStart, now, p)
	if prof == nil {
		t.Fatal("expected a profile")
	}

	if prof.TotalTrades != 4 {
		t.Errorf("TotalTrades: got %d, want 4", prof.TotalTrades)
	}
	if prof.BuyTrades != 4 || prof.SellTrades != 0 {
		t.Errorf("side tally: got %d/%d, want 4/0", prof.BuyTrades, prof.SellTrades)
	}
	if prof.YesTrades != 3 || prof.NoTrades != 1 {
		t.Errorf("outcome tally: got %d/%d, want 3/1", prof.YesTrades, prof.NoTrades)
	}
	near(t, prof.TotalVolumeUSD, 1000, "TotalVolumeUSD")
	near(t, prof.AvgTradeSize, 250, "AvgTradeSize")

	if prof.ResolvedTrades != 2 || prof.WinningTrades != 1 || prof.LosingTrades != 1 {
		t.Errorf("resolved tally: got %d/%d/%d, want 2/1/1",
			prof.ResolvedTrades, prof.WinningTrades, prof.LosingTrades)
	}
	near(t, prof.WinRate, 0.5, "WinRate")
	near(t, prof.RealizedPnLUSD, 1800, "RealizedPnLUSD")
	near(t, prof.ROI, 9.0, "ROI")                    // 1800 profit on 200 resolved cost
	near(t, prof.ProfitFactor, 19.0, "ProfitFactor") // 1900 gross win over 100 gross loss
	near(t, prof.AvgHoursToResolve, 36, "AvgHoursToResolve")

	if prof.FlaggedTrades != 1 || prof.FlaggedResolved != 1 || prof.FlaggedWins != 1 {
		t.Errorf("flag tally: got %d/%d/%d, want 1/1/1",
			prof.FlaggedTrades, prof.FlaggedResolved, prof.FlaggedWins)
	}

	if prof.LongshotResolved != 1 {
		t.Errorf("LongshotResolved: got %d, want 1", prof.LongshotResolved)
	}
	near(t, prof.LongshotWinRate, 1.0, "LongshotWinRate")

	// No resolved trade exceeds 2x the $250 average.
	if prof.LargeBetResolved != 0 {
		t.Errorf("LargeBetResolved: got %d, want 0", prof.LargeBetResolved)
	}

	if prof.OpenPositions != 2 {
		t.Errorf("OpenPositions: got %d, want 2", prof.OpenPositions)
	}
	near(t, prof.OpenExposureUSD, 800, "OpenExposureUSD")
	near(t, prof.UnrealizedPnLUSD, 300, "UnrealizedPnLUSD")
	near(t, prof.UnrealizedROI, 1.0, "UnrealizedROI") // only the valued $300 position counts
	near(t, prof.UnrealizedWinRate, 1.0, "UnrealizedWinRate")

	if prof.MarketsTraded != 2 {
		t.Errorf("MarketsTraded: got %d, want 2", prof.MarketsTraded)
	}
	near(t, prof.MarketConcentration, 0.5, "MarketConcentration") // two markets at 2/4 each
	near(t, prof.OutcomeBias, 0.5, "OutcomeBias")                 // (3 Yes - 1 No) / 4
	near(t, prof.OffHoursShare, 0.25, "OffHoursShare")

	if prof.FirstTradeTS != dayStart+4*3600 {
		t.Errorf("FirstTradeTS: got %d", prof.FirstTradeTS)
	}
	if prof.LastTradeTS != dayStart+15*3600 {
		t.Errorf("LastTradeTS: got %d", prof.LastTradeTS)
	}
	near(t, prof.WalletAgeDays, 35, "WalletAgeDays")
	near(t, prof.DaysSinceLastTrade, 34.375, "DaysSinceLastTrade")

	near(t, agg.WalletAgeDays, 35, "WalletAgeDays")
	if agg.TotalTrades != prof.TotalTrades || agg.ResolvedTrades != prof.ResolvedTrades {
		t.Error("aggregates disagree with profile counts")
	}
}

func TestBuildProfileDeterministic(t *testing.T) {
	p := scoring.DefaultParams()
	base := int64(1705276800)

	trades := []storage.Trade{
		{Market: "0xm1", Side: "BUY", Outcome: "Yes", Price: 0.1, SizeUSD: 250, Timestamp: base, Flagged: true,
			Status: storage.TradeStatusResolved, Won: true, RealizedPnL: 2250, HoursToResolution: 12},
		{Market: "0xm2", Side: "SELL", Outcome: "No", Price: 0.7, SizeUSD: 90, Timestamp: base + 3600,
			Status: storage.TradeStatusResolved, Won: false, RealizedPnL: -90, HoursToResolution: 6},
		{Market: "0xm2", Side: "BUY", Outcome: "Yes", Price: 0.4, SizeUSD: 400, Timestamp: base + 7200,
			Status: storage.TradeStatusOpen, CurrentPrice: 0.5, CurrentValue: 500, UnrealizedPnL: 100,
			LastValuedTS: base + 10000},
	}

	now := time.Unix(base+10*86400, 0)
	first, firstAgg := BuildProfile("0xabc", trades, base, now, p)
	second, secondAgg := BuildProfile("0xabc", trades, base, now, p)

	// Rebuilding from the same rows and clock must agree in every field.
	if !reflect.DeepEqual(first, second) {
		t.Errorf("profiles diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if firstAgg != secondAgg {
		t.Errorf("aggregates diverged:\nfirst:  %+v\nsecond: %+v", firstAgg, secondAgg)
	}
}

func TestBuildProfileSingleMarketConcentration(t *testing.T) {
	p := scoring.DefaultParams()
	base := int64(1705276800)

	var trades []storage.Trade
	for i := 0; i < 12; i++ {
		trades = append(trades, storage.Trade{
			Market: "0xonly", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 100,
			Timestamp: base + int64(i)*3600,
			Status:    storage.TradeStatusOpen,
		})
	}

	prof, _ := BuildProfile("0xabc", trades, base, time.Unix(base+86400, 0), p)
	near(t, prof.MarketConcentration, 1.0, "single-market HHI")
	if prof.TopMarket != "0xonly" {
		t.Errorf("TopMarket: got %q", prof.TopMarket)
	}
}

func TestBuildProfileLargeBets(t *testing.T) {
	p := scoring.DefaultParams()
	base := int64(1705276800)

	// Average size is (50*4 + 800) / 5 = 200, so only the $800 bet
	// clears the 2x threshold.
	trades := []storage.Trade{
		{Market: "0xm", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 50, Timestamp: base, Status: storage.TradeStatusResolved, Won: false, RealizedPnL: -50},
		{Market: "0xm", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 50, Timestamp: base + 1, Status: storage.TradeStatusResolved, Won: false, RealizedPnL: -50},
		{Market: "0xm", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 50, Timestamp: base + 2, Status: storage.TradeStatusResolved, Won: false, RealizedPnL: -50},
		{Market: "0xm", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 50, Timestamp: base + 3, Status: storage.TradeStatusResolved, Won: false, RealizedPnL: -50},
		{Market: "0xm", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 800, Timestamp: base + 4, Status: storage.TradeStatusResolved, Won: true, RealizedPnL: 800},
	}

	prof, _ := BuildProfile("0xabc", trades, base, time.Unix(base+86400, 0), p)
	if prof.LargeBetResolved != 1 {
		t.Errorf("LargeBetResolved: got %d, want 1", prof.LargeBetResolved)
	}
	near(t, prof.LargeBetWinRate, 1.0, "LargeBetWinRate")
}

func TestBuildProfileAgeClamp(t *testing.T) {
	p := scoring.DefaultParams()
	base := int64(1705276800)

	trades := []storage.Trade{
		{Market: "0xm", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 100, Timestamp: base, Status: storage.TradeStatusOpen},
	}

	// Clock skew can put first activity after "now"; age must not go negative.
	_, agg := BuildProfile("0xabc", trades, base+86400, time.Unix(base, 0), p)
	if agg.WalletAgeDays != 0 {
		t.Errorf("WalletAgeDays: got %.2f, want 0", agg.WalletAgeDays)
	}
}

func TestBuildProfileSellSideExcludedFromOpenPositions(t *testing.T) {
	p := scoring.DefaultParams()
	base := int64(1705276800)

	trades := []storage.Trade{
		{Market: "0xm", Side: "BUY", Outcome: "Yes", Price: 0.5, SizeUSD: 100, Timestamp: base, Status: storage.TradeStatusOpen},
		{Market: "0xm", Side: "SELL", Outcome: "Yes", Price: 0.6, SizeUSD: 200, Timestamp: base + 1, Status: storage.TradeStatusOpen},
	}

	prof, _ := BuildProfile("0xabc", trades, base, time.Unix(base+86400, 0), p)
	if prof.OpenPositions != 1 {
		t.Errorf("OpenPositions: got %d, want 1 (sells carry no open exposure)", prof.OpenPositions)
	}
	near(t, prof.OpenExposureUSD, 100, "OpenExposureUSD")
	if prof.TotalTrades != 2 {
		t.Errorf("TotalTrades: got %d, want 2", prof.TotalTrades)
	}
	if prof.BuyTrades != 1 || prof.SellTrades != 1 {
		t.Errorf("side tally: got %d/%d, want 1/1", prof.BuyTrades, prof.SellTrades)
	}
}

func TestBuildProfileOutcomeBiasAllNo(t *testing.T) {
	p := scoring.DefaultParams()
	base := int64(1705276800)

	trades := []storage.Trade{
		{Market: "0xm", Side: "BUY", Outcome: "No", Price: 0.5, SizeUSD: 100, Timestamp: base, Status: storage.TradeStatusOpen},
		{Market: "0xm", Side: "BUY", Outcome: "NO", Price: 0.5, SizeUSD: 100, Timestamp: base + 1, Status: storage.TradeStatusOpen},
	}

	prof, _ := BuildProfile("0xabc", trades, base, time.Unix(base+86400, 0), p)
	near(t, prof.OutcomeBias, -1.0, "OutcomeBias")
	if prof.YesTrades != 0 || prof.NoTrades != 2 {
		t.Errorf("outcome tally: got %d/%d, want 0/2", prof.YesTrades, prof.NoTrades)
	}
}

func TestBuildProfileOutcomeBiasNonBinary(t *testing.T) {
	p := scoring.DefaultParams()
	base := int64(1705276800)

	// Candidate-style outcomes never count toward the yes/no bias.
	trades := []storage.Trade{
		{Market: "0xm", Side: "BUY", Outcome: "Candidate A", Price: 0.5, SizeUSD: 100, Timestamp: base, Status: storage.TradeStatusOpen},
		{Market: "0xm", Side: "BUY", Outcome: "Candidate B", Price: 0.5, SizeUSD: 100, Timestamp: base + 1, Status: storage.TradeStatusOpen},
	}

	prof, _ := BuildProfile("0xabc", trades, base, time.Unix(base+86400, 0), p)
	near(t, prof.OutcomeBias, 0, "OutcomeBias")
	if prof.YesTrades != 0 || prof.NoTrades != 0 {
		t.Errorf("outcome tally: got %d/%d, want 0/0", prof.YesTrades, prof.NoTrades)
	}
}
