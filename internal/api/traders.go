package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

const (
	traderListLimit    = 50
	traderListLimitMax = 200
	tradePageLimit     = 100
	tradePageLimitMax  = 500
)

// traderStore is the slice of storage the trader endpoints read.
type traderStore interface {
	ListProfiles(ctx context.Context, minScore float64, limit, offset int) ([]storage.TraderProfile, int64, error)
	GetProfile(ctx context.Context, wallet string) (*storage.TraderProfile, error)
	ListTrades(ctx context.Context, f storage.TradeFilter) ([]storage.Trade, int64, error)
}

// recomputer rebuilds one wallet's profile on demand.
type recomputer interface {
	Recompute(ctx context.Context, wallet string) error
}

// TraderHandler serves the ranked trader list and per-wallet drill-downs.
type TraderHandler struct {
	Store    traderStore
	Profiles recomputer
}

func (h *TraderHandler) Register(r *gin.Engine) {
	group := r.Group("/api/traders")
	group.GET("", h.list)
	group.GET("/:address", h.get)
	group.GET("/:address/trades", h.trades)
}

func (h *TraderHandler) list(c *gin.Context) {
	minScore := floatQuery(c, "min_score", 0)
	if minScore < 0 {
		minScore = 0
	}
	limit := clampLimit(intQuery(c, "limit", traderListLimit), traderListLimit, traderListLimitMax)
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	profiles, total, err := h.Store.ListProfiles(c.Request.Context(), minScore, limit, offset)
	if err != nil {
		fail(c, http.StatusInternalServerError, "list traders: "+err.Error())
		return
	}

	items := make([]TraderSummary, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, newTraderSummary(p))
	}
	ok(c, items, paginationMeta(limit, offset, total))
}

func (h *TraderHandler) get(c *gin.Context) {
	wallet := walletParam(c)
	if wallet == "" {
		fail(c, http.StatusBadRequest, "address is required")
		return
	}
	ctx := c.Request.Context()

	profile, err := h.Store.GetProfile(ctx, wallet)
	if err != nil {
		fail(c, http.StatusInternalServerError, "load trader: "+err.Error())
		return
	}

	// A wallet can have trades but no profile yet, when ingest inserted the
	// rows and crashed before the recompute. Build it on demand once.
	if profile == nil && h.Profiles != nil {
		if err := h.Profiles.Recompute(ctx, wallet); err != nil {
			fail(c, http.StatusInternalServerError, "recompute trader: "+err.Error())
			return
		}
		profile, err = h.Store.GetProfile(ctx, wallet)
		if err != nil {
			fail(c, http.StatusInternalServerError, "load trader: "+err.Error())
			return
		}
	}
	if profile == nil {
		fail(c, http.StatusNotFound, "trader not found")
		return
	}
	ok(c, newTraderDetail(*profile), nil)
}

func (h *TraderHandler) trades(c *gin.Context) {
	wallet := walletParam(c)
	if wallet == "" {
		fail(c, http.StatusBadRequest, "address is required")
		return
	}

	limit := clampLimit(intQuery(c, "limit", tradePageLimit), tradePageLimit, tradePageLimitMax)
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	filter := storage.TradeFilter{
		Wallet:      wallet,
		Status:      strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		FlaggedOnly: boolQuery(c, "flagged", false),
		Limit:       limit,
		Offset:      offset,
	}

	trades, total, err := h.Store.ListTrades(c.Request.Context(), filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, "list trades: "+err.Error())
		return
	}

	items := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		items = append(items, newTradeView(t))
	}
	ok(c, items, paginationMeta(limit, offset, total))
}

// walletParam extracts the address path segment the way ingest stores
// wallets, trimmed and lowercased.
func walletParam(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Param("address")))
}
