package profile

import (
	"strings"
	"time"

	"github.com/liyuxiao2/polytracker/internal/scoring"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

// Off-hours window in UTC. Trades landing here feed the quiet-hours share.
const (
	offHoursStart = 2
	offHoursEnd   = 6
)

// BuildProfile derives a full trader profile from the wallet's trade rows
// in one pass, plus the aggregates the composite scorer consumes. The score
// fields themselves are left zero for the caller to fill.
//
// firstActivityTS anchors wallet age when known; otherwise the earliest
// trade stands in. Returns nil when the wallet has no trades.
func BuildProfile(wallet string, trades []storage.Trade, firstActivityTS int64, now time.Time, p scoring.Params) (*storage.TraderProfile, scoring.Aggregates) {
	if len(trades) == 0 {
		return nil, scoring.Aggregates{}
	}

	var (
		volume   float64
		firstTS  = trades[0].Timestamp
		lastTS   = trades[0].Timestamp
		offHours int

		buys      int
		sells     int
		yesTrades int
		noTrades  int

		resolved       int
		wins           int
		pnl            float64
		resolvedCost   float64
		grossWin       float64
		grossLoss      float64
		hoursToResolve float64

		flagged         int
		flaggedResolved int
		flaggedWins     int

		longshotResolved int
		longshotWins     int

		openPositions  int
		openExposure   float64
		valuedExposure float64
		unrealizedPnL  float64
		valued         int
		valuedInProfit int

		marketCounts = make(map[string]int)
	)

	type resolvedEntry struct {
		size float64
		won  bool
	}
	resolvedEntries := make([]resolvedEntry, 0, len(trades))

	for _, t := range trades {
		volume += t.SizeUSD
		if t.Timestamp < firstTS {
			firstTS = t.Timestamp
		}
		if t.Timestamp > lastTS {
			lastTS = t.Timestamp
		}

		hour := time.Unix(t.Timestamp, 0).UTC().Hour()
		if hour >= offHoursStart && hour < offHoursEnd {
			offHours++
		}

		marketCounts[t.Market]++

		switch t.Side {
		case "BUY":
			buys++
		case "SELL":
			sells++
		}
		switch strings.ToLower(t.Outcome) {
		case "yes":
			yesTrades++
		case "no":
			noTrades++
		}

		if t.Flagged {
			flagged++
		}

		switch t.Status {
		case storage.TradeStatusResolved:
			resolved++
			resolvedCost += t.SizeUSD
			pnl += t.RealizedPnL
			hoursToResolve += t.HoursToResolution
			if t.RealizedPnL > 0 {
				grossWin += t.RealizedPnL
			} else {
				grossLoss -= t.RealizedPnL
			}
			if t.Won {
				wins++
			}
			if t.Flagged {
				flaggedResolved++
				if t.Won {
					flaggedWins++
				}
			}
			if t.Price > 0 && t.Price < p.LongshotPrice {
				longshotResolved++
				if t.Won {
					longshotWins++
				}
			}
			resolvedEntries = append(resolvedEntries, resolvedEntry{size: t.SizeUSD, won: t.Won})
		case storage.TradeStatusOpen:
			if t.Side == "BUY" {
				openPositions++
				openExposure += t.SizeUSD
				if t.LastValuedTS > 0 {
					valued++
					valuedExposure += t.SizeUSD
					unrealizedPnL += t.UnrealizedPnL
					if t.CurrentPrice > t.Price {
						valuedInProfit++
					}
				}
			}
		}
	}

	total := len(trades)
	avgSize := volume / float64(total)

	// Large bets are judged against the wallet's own average, which needs
	// the full first pass before resolved trades can be classified.
	var largeBetResolved, largeBetWins int
	if avgSize > 0 {
		threshold := p.LargeBetMultiple * avgSize
		for _, e := range resolvedEntries {
			if e.size > threshold {
				largeBetResolved++
				if e.won {
					largeBetWins++
				}
			}
		}
	}

	prof := &storage.TraderProfile{
		Wallet:         wallet,
		TotalTrades:    total,
		BuyTrades:      buys,
		SellTrades:     sells,
		YesTrades:      yesTrades,
		NoTrades:       noTrades,
		TotalVolumeUSD: volume,
		AvgTradeSize:   avgSize,

		ResolvedTrades: resolved,
		WinningTrades:  wins,
		LosingTrades:   resolved - wins,
		RealizedPnLUSD: pnl,

		OpenPositions:    openPositions,
		OpenExposureUSD:  openExposure,
		UnrealizedPnLUSD: unrealizedPnL,

		FlaggedTrades:   flagged,
		FlaggedResolved: flaggedResolved,
		FlaggedWins:     flaggedWins,

		MarketsTraded:    len(marketCounts),
		LongshotResolved: longshotResolved,
		LargeBetResolved: largeBetResolved,

		FirstTradeTS: firstTS,
		LastTradeTS:  lastTS,
	}

	if resolved > 0 {
		prof.WinRate = float64(wins) / float64(resolved)
		prof.AvgHoursToResolve = hoursToResolve / float64(resolved)
	}
	if resolvedCost > 0 {
		prof.ROI = pnl / resolvedCost
	}
	// Profit factor denominator is floored at one dollar of gross loss.
	lossFloor := grossLoss
	if lossFloor < 1 {
		lossFloor = 1
	}
	prof.ProfitFactor = grossWin / lossFloor
	if valuedExposure > 0 {
		prof.UnrealizedROI = unrealizedPnL / valuedExposure
	}
	if valued > 0 {
		prof.UnrealizedWinRate = float64(valuedInProfit) / float64(valued)
	}
	if longshotResolved > 0 {
		prof.LongshotWinRate = float64(longshotWins) / float64(longshotResolved)
	}
	if largeBetResolved > 0 {
		prof.LargeBetWinRate = float64(largeBetWins) / float64(largeBetResolved)
	}

	prof.MarketConcentration, prof.TopMarket = concentration(marketCounts, total)
	if yesTrades+noTrades > 0 {
		prof.OutcomeBias = float64(yesTrades-noTrades) / float64(yesTrades+noTrades)
	}
	prof.OffHoursShare = float64(offHours) / float64(total)

	ageBasis := firstActivityTS
	if ageBasis <= 0 {
		ageBasis = firstTS
	}
	ageDays := now.Sub(time.Unix(ageBasis, 0)).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	prof.WalletAgeDays = ageDays

	sinceLast := now.Sub(time.Unix(lastTS, 0)).Hours() / 24
	if sinceLast < 0 {
		sinceLast = 0
	}
	prof.DaysSinceLastTrade = sinceLast

	agg := scoring.Aggregates{
		TotalTrades:         prof.TotalTrades,
		ResolvedTrades:      prof.ResolvedTrades,
		WinningTrades:       prof.WinningTrades,
		FlaggedTrades:       prof.FlaggedTrades,
		WinRate:             prof.WinRate,
		ROI:                 prof.ROI,
		OpenPositions:       prof.OpenPositions,
		UnrealizedROI:       prof.UnrealizedROI,
		UnrealizedWinRate:   prof.UnrealizedWinRate,
		LongshotResolved:    prof.LongshotResolved,
		LongshotWinRate:     prof.LongshotWinRate,
		LargeBetResolved:    prof.LargeBetResolved,
		LargeBetWinRate:     prof.LargeBetWinRate,
		MarketConcentration: prof.MarketConcentration,
		WalletAgeDays:       ageDays,
	}

	return prof, agg
}

// concentration computes the Herfindahl index over per-market trade counts
// and reports the busiest market alongside it.
func concentration(marketCounts map[string]int, total int) (float64, string) {
	if total == 0 {
		return 0, ""
	}
	var hhi float64
	var top string
	var topCount int
	for market, count := range marketCounts {
		share := float64(count) / float64(total)
		hhi += share * share
		if count > topCount || (count == topCount && market < top) {
			top = market
			topCount = count
		}
	}
	return hhi, top
}
