package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

const (
	trendingWindowHours    = 24
	trendingWindowHoursMax = 168
	trendingMinSizeUSD     = 5000.0
	trendingLimit          = 100
	trendingLimitMax       = 500
)

// trendingStore is the slice of storage the trending feed reads.
type trendingStore interface {
	TrendingTrades(ctx context.Context, since int64, minSizeUSD float64, limit int) ([]storage.Trade, error)
	ProfilesForWallets(ctx context.Context, wallets []string) (map[string]storage.TraderProfile, error)
}

// TradeHandler serves the recent large-or-flagged trade feed.
type TradeHandler struct {
	Store trendingStore
}

func (h *TradeHandler) Register(r *gin.Engine) {
	r.GET("/api/trades/trending", h.trending)
}

func (h *TradeHandler) trending(c *gin.Context) {
	hours := intQuery(c, "hours", trendingWindowHours)
	if hours < 1 {
		hours = 1
	}
	if hours > trendingWindowHoursMax {
		hours = trendingWindowHoursMax
	}
	minSize := floatQuery(c, "min_size", trendingMinSizeUSD)
	if minSize < 0 {
		minSize = 0
	}
	limit := clampLimit(intQuery(c, "limit", trendingLimit), trendingLimit, trendingLimitMax)

	ctx := c.Request.Context()
	since := time.Now().Add(-time.Duration(hours) * time.Hour).Unix()

	trades, err := h.Store.TrendingTrades(ctx, since, minSize, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "list trending trades: "+err.Error())
		return
	}

	profiles, err := h.Store.ProfilesForWallets(ctx, distinctWallets(trades))
	if err != nil {
		fail(c, http.StatusInternalServerError, "load trader profiles: "+err.Error())
		return
	}

	items := make([]TrendingTrade, 0, len(trades))
	for _, t := range trades {
		items = append(items, newTrendingTrade(t, profiles[t.Wallet].AvgTradeSize))
	}
	ok(c, items, map[string]any{
		"hours":        hours,
		"min_size_usd": minSize,
		"count":        len(items),
	})
}

func distinctWallets(trades []storage.Trade) []string {
	seen := make(map[string]struct{}, len(trades))
	var wallets []string
	for _, t := range trades {
		if _, dup := seen[t.Wallet]; dup {
			continue
		}
		seen[t.Wallet] = struct{}{}
		wallets = append(wallets, t.Wallet)
	}
	return wallets
}
