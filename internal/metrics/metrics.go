package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	TradesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_trades_ingested_total",
			Help: "Total number of trades seen by the ingestion pipeline",
		},
		[]string{"status"}, // inserted, duplicate, filtered, invalid
	)

	IngestCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polytracker_ingest_cycle_duration_seconds",
			Help:    "Duration of a full poll-and-score ingestion cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	StreamEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_stream_events_total",
			Help: "Total number of websocket stream events",
		},
		[]string{"status"}, // received, dropped, decode_error
	)

	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polytracker_stream_reconnects_total",
			Help: "Total number of websocket reconnect attempts",
		},
	)

	BackfillPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_backfill_pages_total",
			Help: "Total number of history pages fetched by backfill",
		},
		[]string{"kind"}, // deep, bulk
	)

	// Flag metrics
	FlagsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_flags_raised_total",
			Help: "Total number of trades flagged as suspicious",
		},
		[]string{"kind"}, // zscore, fallback, relative, retrospective
	)

	InsiderScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polytracker_insider_scores",
			Help:    "Distribution of composite insider scores (0-100 scale)",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 75, 80, 85, 90, 95, 100},
		},
	)

	// Upstream API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_api_requests_total",
			Help: "Total number of Polymarket API requests",
		},
		[]string{"api", "endpoint", "status"}, // data/gamma/clob, /trades, success/error
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polytracker_api_request_duration_seconds",
			Help:    "Duration of Polymarket API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api", "endpoint"},
	)

	// Database metrics
	DatabaseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"}, // get/insert/update, success/error
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polytracker_database_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Resolution and valuation metrics
	ResolutionSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polytracker_resolution_sweeps_total",
			Help: "Total number of resolution sweep runs",
		},
	)

	MarketsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polytracker_markets_resolved_total",
			Help: "Total number of markets settled by the resolver",
		},
	)

	ResolutionSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polytracker_resolution_sweep_duration_seconds",
			Help:    "Duration of a resolution sweep",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	ValuationUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_valuation_updates_total",
			Help: "Total number of open-position mark-to-market updates",
		},
		[]string{"status"}, // success, error
	)

	// Profile metrics
	ProfileRecomputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polytracker_profile_recomputes_total",
			Help: "Total number of trader profile recomputes",
		},
	)

	ProfileRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polytracker_profile_recompute_duration_seconds",
			Help:    "Duration of a single trader profile recompute",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Alert metrics
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_alerts_sent_total",
			Help: "Total number of alerts sent",
		},
		[]string{"status", "sink"}, // success/error, log/webhook/kafka
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polytracker_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by the cooldown window",
		},
	)

	// Query API metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytracker_http_requests_total",
			Help: "Total number of query API requests",
		},
		[]string{"route", "status"},
	)

	// Market watch metrics
	WatchedMarkets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polytracker_watched_markets",
			Help: "Number of markets currently on the hot-market watch list",
		},
	)

	SnapshotsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polytracker_snapshots_recorded_total",
			Help: "Total number of market snapshots persisted",
		},
	)
)

// RecordIngest records the outcome of one trade passing through ingestion.
func RecordIngest(status string) {
	TradesIngested.WithLabelValues(status).Inc()
}

// RecordIngestCycle records a completed poll-and-score cycle.
func RecordIngestCycle(duration time.Duration) {
	IngestCycleDuration.Observe(duration.Seconds())
}

// RecordFlag records a suspicious-trade flag by detection kind.
func RecordFlag(kind string) {
	FlagsRaised.WithLabelValues(kind).Inc()
}

// RecordInsiderScore records a freshly computed composite score.
func RecordInsiderScore(score float64) {
	InsiderScores.Observe(score)
}

// RecordAPIRequest records an upstream Polymarket API request.
func RecordAPIRequest(api, endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequests.WithLabelValues(api, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// RecordDatabaseQuery records a database query by logical operation.
func RecordDatabaseQuery(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueries.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordResolutionSweep records a resolver run and how many markets settled.
func RecordResolutionSweep(duration time.Duration, marketsResolved int) {
	ResolutionSweeps.Inc()
	MarketsResolved.Add(float64(marketsResolved))
	ResolutionSweepDuration.Observe(duration.Seconds())
}

// RecordProfileRecompute records one trader profile rebuild.
func RecordProfileRecompute(duration time.Duration) {
	ProfileRecomputes.Inc()
	ProfileRecomputeDuration.Observe(duration.Seconds())
}

// RecordAlert records an alert delivery attempt per sink.
func RecordAlert(sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(status, sink).Inc()
}
