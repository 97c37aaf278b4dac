package scoring

import "math"

// Params holds every tunable threshold used by the scoring engine.
// Nothing in the algorithms below hardcodes a cutoff; callers build Params
// from configuration so detection can be retuned without code changes.
type Params struct {
	// Real-time anomaly check
	HistoryLimit     int     // most recent trade sizes considered
	ZThreshold       float64 // |z| above this flags the trade
	FallbackSizeUSD  float64 // absolute flag threshold when history < 3 samples
	RelativeMultiple float64 // size above this multiple of the wallet average also flags

	// Retrospective evaluation of resolved winners
	RetroProfitUSD        float64
	RetroConvictionPrice  float64
	RetroSizeMultiple     float64
	RetroFlaggedWinRate   float64
	RetroFlaggedMinSample int

	// Composite score components
	MinResolved   int
	WinRateBase   float64
	WinRateCeil   float64
	ROIFloor      float64
	ROICeil       float64
	UnrealROICeil float64
	UnrealWinBase float64

	LongshotPrice     float64
	LongshotMinSample int
	LongshotWinBase   float64
	LongshotWinCeil   float64

	LargeBetMultiple  float64
	LargeBetMinSample int
	LargeBetWinBase   float64
	LargeBetWinCeil   float64

	ConcentrationMinTrades int
	ConcentrationHHIBase   float64

	NewWalletDays      int
	NewWalletMinTrades int
}

// DefaultParams returns the production defaults. Tests use these too.
func DefaultParams() Params {
	return Params{
		HistoryLimit:     100,
		ZThreshold:       3.0,
		FallbackSizeUSD:  10000,
		RelativeMultiple: 5.0,

		RetroProfitUSD:        25000,
		RetroConvictionPrice:  0.10,
		RetroSizeMultiple:     5.0,
		RetroFlaggedWinRate:   0.75,
		RetroFlaggedMinSample: 3,

		MinResolved:   5,
		WinRateBase:   0.55,
		WinRateCeil:   0.80,
		ROIFloor:      -0.10,
		ROICeil:       0.50,
		UnrealROICeil: 0.30,
		UnrealWinBase: 0.50,

		LongshotPrice:     0.20,
		LongshotMinSample: 3,
		LongshotWinBase:   0.30,
		LongshotWinCeil:   0.60,

		LargeBetMultiple:  2.0,
		LargeBetMinSample: 3,
		LargeBetWinBase:   0.55,
		LargeBetWinCeil:   0.85,

		ConcentrationMinTrades: 10,
		ConcentrationHHIBase:   0.40,

		NewWalletDays:      30,
		NewWalletMinTrades: 5,
	}
}

// Anomaly scores a candidate trade size against the wallet's recent size
// history. It returns the z-score and whether the trade should be flagged.
//
// With fewer than 3 samples no distribution can be estimated, so the check
// degrades to an absolute-size threshold with a score of zero. A wallet
// whose history has zero variance never flags here (no division by zero).
// A trade flags when the z-score clears the threshold OR the size exceeds a
// multiple of the wallet's own average; either signal alone suffices.
func Anomaly(history []float64, sizeUSD float64, p Params) (float64, bool) {
	if len(history) < 3 {
		return 0, sizeUSD > p.FallbackSizeUSD
	}

	mean := Mean(history)
	std := StdDev(history, mean)
	if std == 0 {
		return 0, false
	}

	z := (sizeUSD - mean) / std
	flagged := math.Abs(z) > p.ZThreshold
	if !flagged && mean > 0 && p.RelativeMultiple > 0 {
		flagged = sizeUSD > p.RelativeMultiple*mean
	}
	return z, flagged
}

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation around the given mean.
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// linearScale maps v onto [0,1] between lo and hi, clamping outside the range.
func linearScale(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	scaled := (v - lo) / (hi - lo)
	if scaled < 0 {
		return 0
	}
	if scaled > 1 {
		return 1
	}
	return scaled
}
