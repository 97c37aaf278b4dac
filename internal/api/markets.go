package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

// watchStore is the slice of storage the watch-list endpoint reads.
type watchStore interface {
	ListMarketWatch(ctx context.Context) ([]storage.MarketWatch, error)
}

// MarketHandler serves the hot-market watch list.
type MarketHandler struct {
	Store watchStore
}

func (h *MarketHandler) Register(r *gin.Engine) {
	r.GET("/api/markets/watch", h.watch)
}

func (h *MarketHandler) watch(c *gin.Context) {
	rows, err := h.Store.ListMarketWatch(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "list watched markets: "+err.Error())
		return
	}

	category := strings.ToLower(strings.TrimSpace(c.Query("category")))
	minSuspicion := floatQuery(c, "min_suspicion", 0)

	items := make([]WatchRow, 0, len(rows))
	for _, row := range rows {
		if category != "" && row.Category != category {
			continue
		}
		if row.SuspicionScore < minSuspicion {
			continue
		}
		items = append(items, newWatchRow(row))
	}
	ok(c, items, map[string]any{"count": len(items)})
}
