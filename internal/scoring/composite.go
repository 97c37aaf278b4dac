package scoring

// Point budget per component. The shape of the score is fixed; the
// thresholds feeding each component live in Params.
const (
	winRatePoints       = 25.0
	roiPoints           = 20.0
	unrealROIPoints     = 8.0
	unrealWinPoints     = 7.0
	longshotPoints      = 15.0
	largeBetPoints      = 10.0
	concentrationPoints = 10.0
	newWalletPoints     = 7.0
	flaggedSharePoints  = 8.0
	anomalyBundleCap    = 15.0
	totalCap            = 100.0
)

// Aggregates is the slice of a trader profile the composite score reads.
// The profile maintainer fills it from the wallet's full trade history.
type Aggregates struct {
	TotalTrades    int
	ResolvedTrades int
	WinningTrades  int
	FlaggedTrades  int

	WinRate float64
	ROI     float64

	OpenPositions     int
	UnrealizedROI     float64
	UnrealizedWinRate float64

	LongshotResolved int
	LongshotWinRate  float64

	LargeBetResolved int
	LargeBetWinRate  float64

	MarketConcentration float64 // HHI over per-market trade share

	WalletAgeDays float64
}

// Breakdown reports the points each component contributed. Explicit named
// fields, so callers and logs never deal in loose maps.
type Breakdown struct {
	WinRate       float64
	ROI           float64
	Unrealized    float64
	Longshot      float64
	LargeBet      float64
	Concentration float64
	Anomaly       float64
	Total         float64
}

// Composite turns profile aggregates into the 0-100 insider score. Every
// component is individually capped, the grand total is capped at 100, and
// the whole thing is recomputed fresh on every call - no incremental state.
func Composite(agg Aggregates, p Params) (float64, Breakdown) {
	var b Breakdown

	if agg.ResolvedTrades >= p.MinResolved {
		b.WinRate = winRatePoints * linearScale(agg.WinRate, p.WinRateBase, p.WinRateCeil)
	}

	if agg.ResolvedTrades > 0 {
		b.ROI = roiPoints * linearScale(agg.ROI, p.ROIFloor, p.ROICeil)
	}

	if agg.OpenPositions >= 2 {
		b.Unrealized = unrealROIPoints*linearScale(agg.UnrealizedROI, 0, p.UnrealROICeil) +
			unrealWinPoints*linearScale(agg.UnrealizedWinRate, p.UnrealWinBase, 1.0)
	}

	if agg.LongshotResolved >= p.LongshotMinSample {
		b.Longshot = longshotPoints * linearScale(agg.LongshotWinRate, p.LongshotWinBase, p.LongshotWinCeil)
	}

	if agg.LargeBetResolved >= p.LargeBetMinSample {
		b.LargeBet = largeBetPoints * linearScale(agg.LargeBetWinRate, p.LargeBetWinBase, p.LargeBetWinCeil)
	}

	if agg.TotalTrades >= p.ConcentrationMinTrades && agg.MarketConcentration > p.ConcentrationHHIBase {
		b.Concentration = concentrationPoints * linearScale(agg.MarketConcentration, p.ConcentrationHHIBase, 1.0)
	}

	b.Anomaly = anomalyBundle(agg, p)

	total := b.WinRate + b.ROI + b.Unrealized + b.Longshot + b.LargeBet + b.Concentration + b.Anomaly
	if total > totalCap {
		total = totalCap
	}
	if total < 0 {
		total = 0
	}
	b.Total = total

	return total, b
}

// anomalyBundle combines the "young wallet with real activity" and
// "high share of flagged trades" signals, each capped, then caps the sum.
func anomalyBundle(agg Aggregates, p Params) float64 {
	var bundle float64

	if p.NewWalletDays > 0 && agg.WalletAgeDays < float64(p.NewWalletDays) && agg.TotalTrades >= p.NewWalletMinTrades {
		youth := 1 - agg.WalletAgeDays/float64(p.NewWalletDays)
		bundle += newWalletPoints * youth
	}

	if agg.TotalTrades > 0 {
		share := float64(agg.FlaggedTrades) / float64(agg.TotalTrades)
		pts := share * 10
		if pts > flaggedSharePoints {
			pts = flaggedSharePoints
		}
		bundle += pts
	}

	if bundle > anomalyBundleCap {
		bundle = anomalyBundleCap
	}
	return bundle
}
