package clobapi

import (
	"github.com/shopspring/decimal"
)

// BookLevel is one price level of the order book. The CLOB API quotes
// prices and sizes as decimal strings.
type BookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Book is the order book for one outcome token
type Book struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Hash      string      `json:"hash"`
	Timestamp string      `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// BookSummary condenses a book into the numbers the snapshot collector
// stores: top of book, spread, and notional depth per side.
type BookSummary struct {
	BestBid     float64
	BestAsk     float64
	Mid         float64
	Spread      float64
	BidDepthUSD float64
	AskDepthUSD float64
}

// Summarize walks both sides of the book with decimal arithmetic so the
// string prices never pick up float rounding before aggregation. Level
// order is not assumed; best bid and ask are found by comparison.
func (b *Book) Summarize() BookSummary {
	var s BookSummary

	bestBid, bidDepth, okBid := sideStats(b.Bids, true)
	bestAsk, askDepth, okAsk := sideStats(b.Asks, false)

	if okBid {
		s.BestBid, _ = bestBid.Float64()
		s.BidDepthUSD, _ = bidDepth.Float64()
	}
	if okAsk {
		s.BestAsk, _ = bestAsk.Float64()
		s.AskDepthUSD, _ = askDepth.Float64()
	}
	if okBid && okAsk {
		two := decimal.NewFromInt(2)
		mid := bestBid.Add(bestAsk).Div(two)
		s.Mid, _ = mid.Float64()
		s.Spread, _ = bestAsk.Sub(bestBid).Float64()
	}

	return s
}

// sideStats returns the best price and total notional for one book side.
// Levels with unparseable numbers are skipped.
func sideStats(levels []BookLevel, wantMax bool) (best, depth decimal.Decimal, ok bool) {
	for _, lvl := range levels {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(lvl.Size)
		if err != nil {
			continue
		}
		depth = depth.Add(price.Mul(size))
		if !ok {
			best = price
			ok = true
			continue
		}
		if wantMax && price.GreaterThan(best) {
			best = price
		}
		if !wantMax && price.LessThan(best) {
			best = price
		}
	}
	return best, depth, ok
}

// midpointResponse is the /midpoint payload
type midpointResponse struct {
	Mid string `json:"mid"`
}
