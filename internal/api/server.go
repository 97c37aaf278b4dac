package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/profile"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Server is the read-only HTTP query surface for the dashboard.
type Server struct {
	cfg    *config.Config
	log    *logrus.Logger
	engine *gin.Engine
}

// New assembles the router with all query endpoints registered.
func New(cfg *config.Config, db *storage.DB, profiles *profile.Maintainer, log *logrus.Logger) *Server {
	if strings.EqualFold(cfg.Environment, "production") {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(requestMetrics())

	(&SystemHandler{Store: db, DB: db}).Register(engine)
	(&TraderHandler{Store: db, Profiles: profiles}).Register(engine)
	(&TradeHandler{Store: db}).Register(engine)
	(&MarketHandler{Store: db}).Register(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{cfg: cfg, log: log, engine: engine}
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.API.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("Query API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestMetrics counts requests per matched route and response status.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
