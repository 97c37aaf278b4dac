package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

// statsStore is the slice of storage the stats endpoint reads.
type statsStore interface {
	Stats(ctx context.Context) (*storage.SystemStats, error)
}

// pinger reports whether the database answers.
type pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves liveness and the global dashboard counters.
type SystemHandler struct {
	Store statsStore
	DB    pinger
}

func (h *SystemHandler) Register(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/api/stats", h.stats)
}

func (h *SystemHandler) health(c *gin.Context) {
	if h.DB != nil {
		if err := h.DB.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) stats(c *gin.Context) {
	stats, err := h.Store.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "collect stats: "+err.Error())
		return
	}
	ok(c, stats, nil)
}
