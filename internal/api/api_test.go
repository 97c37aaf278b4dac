package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/liyuxiao2/polytracker/internal/storage"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func newTestEngine(register func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	register(engine)
	return engine
}

func doGet(t *testing.T, engine *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

type stubTraderStore struct {
	profiles []storage.TraderProfile
	total    int64
	byWallet map[string]*storage.TraderProfile
	trades   []storage.Trade

	listErr error

	gotMinScore float64
	gotLimit    int
	gotOffset   int
	gotFilter   storage.TradeFilter
}

func (s *stubTraderStore) ListProfiles(ctx context.Context, minScore float64, limit, offset int) ([]storage.TraderProfile, int64, error) {
	s.gotMinScore = minScore
	s.gotLimit = limit
	s.gotOffset = offset
	return s.profiles, s.total, s.listErr
}

func (s *stubTraderStore) GetProfile(ctx context.Context, wallet string) (*storage.TraderProfile, error) {
	return s.byWallet[wallet], nil
}

func (s *stubTraderStore) ListTrades(ctx context.Context, f storage.TradeFilter) ([]storage.Trade, int64, error) {
	s.gotFilter = f
	return s.trades, int64(len(s.trades)), nil
}

// stubRecomputer writes the prepared profile into the store when called, the
// way a real recompute would.
type stubRecomputer struct {
	store   *stubTraderStore
	profile *storage.TraderProfile
	err     error
	calls   []string
}

func (s *stubRecomputer) Recompute(ctx context.Context, wallet string) error {
	s.calls = append(s.calls, wallet)
	if s.err != nil {
		return s.err
	}
	if s.profile != nil {
		if s.store.byWallet == nil {
			s.store.byWallet = make(map[string]*storage.TraderProfile)
		}
		s.store.byWallet[wallet] = s.profile
	}
	return nil
}

func TestTraderListReturnsRankedSummaries(t *testing.T) {
	store := &stubTraderStore{
		profiles: []storage.TraderProfile{
			{Wallet: "0xaaa", InsiderScore: 91.5, TotalTrades: 40, FlaggedTrades: 6},
			{Wallet: "0xbbb", InsiderScore: 72.0, TotalTrades: 12, FlaggedTrades: 1},
		},
		total: 7,
	}
	handler := &TraderHandler{Store: store}
	engine := newTestEngine(handler.Register)

	rec := doGet(t, engine, "/api/traders?min_score=60&limit=10&offset=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.gotMinScore != 60 || store.gotLimit != 10 || store.gotOffset != 2 {
		t.Errorf("query passthrough = (%v, %v, %v), want (60, 10, 2)",
			store.gotMinScore, store.gotLimit, store.gotOffset)
	}

	env := decodeEnvelope(t, rec)
	if env.Code != 0 {
		t.Errorf("envelope code = %d, want 0", env.Code)
	}
	var items []TraderSummary
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Wallet != "0xaaa" || items[0].InsiderScore != 91.5 {
		t.Errorf("first item = %+v, want 0xaaa at 91.5", items[0])
	}
	if total, _ := env.Meta["total"].(float64); total != 7 {
		t.Errorf("meta total = %v, want 7", env.Meta["total"])
	}
}

func TestTraderListClampsLimit(t *testing.T) {
	store := &stubTraderStore{}
	engine := newTestEngine((&TraderHandler{Store: store}).Register)

	doGet(t, engine, "/api/traders?limit=99999")
	if store.gotLimit != traderListLimitMax {
		t.Errorf("limit = %d, want %d", store.gotLimit, traderListLimitMax)
	}

	doGet(t, engine, "/api/traders?limit=-5")
	if store.gotLimit != traderListLimit {
		t.Errorf("negative limit = %d, want default %d", store.gotLimit, traderListLimit)
	}
}

func TestTraderGetRecomputesOnMiss(t *testing.T) {
	store := &stubTraderStore{}
	rebuild := &stubRecomputer{
		store:   store,
		profile: &storage.TraderProfile{Wallet: "0xabc", InsiderScore: 55, TotalTrades: 9},
	}
	engine := newTestEngine((&TraderHandler{Store: store, Profiles: rebuild}).Register)

	rec := doGet(t, engine, "/api/traders/0xABC")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if len(rebuild.calls) != 1 || rebuild.calls[0] != "0xabc" {
		t.Errorf("recompute calls = %v, want one call with lowercased address", rebuild.calls)
	}

	var detail TraderDetail
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if detail.Wallet != "0xabc" || detail.InsiderScore != 55 {
		t.Errorf("detail = %+v, want rebuilt profile for 0xabc", detail)
	}
}

func TestTraderGetNotFound(t *testing.T) {
	store := &stubTraderStore{}
	rebuild := &stubRecomputer{store: store}
	engine := newTestEngine((&TraderHandler{Store: store, Profiles: rebuild}).Register)

	rec := doGet(t, engine, "/api/traders/0xdead")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(rebuild.calls) != 1 {
		t.Errorf("recompute calls = %d, want 1 before giving up", len(rebuild.calls))
	}
	env := decodeEnvelope(t, rec)
	if env.Code != http.StatusNotFound || env.Message != "trader not found" {
		t.Errorf("envelope = %+v, want 404 trader not found", env)
	}
}

func TestTraderGetRecomputeError(t *testing.T) {
	store := &stubTraderStore{}
	rebuild := &stubRecomputer{store: store, err: errors.New("db down")}
	engine := newTestEngine((&TraderHandler{Store: store, Profiles: rebuild}).Register)

	rec := doGet(t, engine, "/api/traders/0xdead")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestTraderTradesMapsFilter(t *testing.T) {
	store := &stubTraderStore{
		trades: []storage.Trade{
			{ID: 1, Wallet: "0xabc", Market: "0xm1", SizeUSD: 12000, Flagged: true, AnomalyScore: 4.1},
			{ID: 2, Wallet: "0xabc", Market: "0xm2", SizeUSD: 300},
		},
	}
	engine := newTestEngine((&TraderHandler{Store: store}).Register)

	rec := doGet(t, engine, "/api/traders/0xABC/trades?flagged=true&status=open&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := storage.TradeFilter{
		Wallet:      "0xabc",
		Status:      "OPEN",
		FlaggedOnly: true,
		Limit:       5,
	}
	if store.gotFilter != want {
		t.Errorf("filter = %+v, want %+v", store.gotFilter, want)
	}

	env := decodeEnvelope(t, rec)
	var items []TradeView
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(items) != 2 || items[0].ID != 1 || !items[0].Flagged {
		t.Errorf("items = %+v, want both stub trades in order", items)
	}
}

type stubTrendingStore struct {
	trades   []storage.Trade
	profiles map[string]storage.TraderProfile

	gotSince   int64
	gotMinSize float64
	gotLimit   int
}

func (s *stubTrendingStore) TrendingTrades(ctx context.Context, since int64, minSizeUSD float64, limit int) ([]storage.Trade, error) {
	s.gotSince = since
	s.gotMinSize = minSizeUSD
	s.gotLimit = limit
	return s.trades, nil
}

func (s *stubTrendingStore) ProfilesForWallets(ctx context.Context, wallets []string) (map[string]storage.TraderProfile, error) {
	return s.profiles, nil
}

func TestTrendingComputesDeviation(t *testing.T) {
	store := &stubTrendingStore{
		trades: []storage.Trade{
			{Wallet: "0xaaa", Market: "0xm1", SizeUSD: 5000, AnomalyScore: 3.8, Flagged: true},
			{Wallet: "0xbbb", Market: "0xm2", SizeUSD: 8000},
		},
		profiles: map[string]storage.TraderProfile{
			"0xaaa": {Wallet: "0xaaa", AvgTradeSize: 1000},
		},
	}
	engine := newTestEngine((&TradeHandler{Store: store}).Register)

	rec := doGet(t, engine, "/api/trades/trending")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.gotMinSize != trendingMinSizeUSD || store.gotLimit != trendingLimit {
		t.Errorf("defaults = (%v, %v), want (%v, %v)",
			store.gotMinSize, store.gotLimit, trendingMinSizeUSD, trendingLimit)
	}

	env := decodeEnvelope(t, rec)
	var items []TrendingTrade
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	// 5000 against a 1000 average is 400% above it.
	if items[0].DeviationPct != 400 {
		t.Errorf("deviation = %v, want 400", items[0].DeviationPct)
	}
	if items[0].ZScore != 3.8 {
		t.Errorf("z score = %v, want 3.8 from the stored anomaly score", items[0].ZScore)
	}
	// No profile for the second wallet, so no baseline to deviate from.
	if items[1].DeviationPct != 0 {
		t.Errorf("deviation without profile = %v, want 0", items[1].DeviationPct)
	}
}

func TestTrendingClampsWindow(t *testing.T) {
	store := &stubTrendingStore{}
	engine := newTestEngine((&TradeHandler{Store: store}).Register)

	rec := doGet(t, engine, "/api/trades/trending?hours=9999&min_size=-50")
	env := decodeEnvelope(t, rec)
	if hours, _ := env.Meta["hours"].(float64); hours != trendingWindowHoursMax {
		t.Errorf("meta hours = %v, want %d", env.Meta["hours"], trendingWindowHoursMax)
	}
	if store.gotMinSize != 0 {
		t.Errorf("min size = %v, want negative input floored to 0", store.gotMinSize)
	}
}

type stubWatchStore struct {
	rows []storage.MarketWatch
	err  error
}

func (s *stubWatchStore) ListMarketWatch(ctx context.Context) ([]storage.MarketWatch, error) {
	return s.rows, s.err
}

func TestMarketWatchFilters(t *testing.T) {
	store := &stubWatchStore{
		rows: []storage.MarketWatch{
			{ConditionID: "0xm1", Category: "politics", SuspicionScore: 80},
			{ConditionID: "0xm2", Category: "crypto", SuspicionScore: 20},
			{ConditionID: "0xm3", Category: "politics", SuspicionScore: 10},
		},
	}
	engine := newTestEngine((&MarketHandler{Store: store}).Register)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"all rows", "/api/markets/watch", []string{"0xm1", "0xm2", "0xm3"}},
		{"category filter", "/api/markets/watch?category=Politics", []string{"0xm1", "0xm3"}},
		{"suspicion floor", "/api/markets/watch?min_suspicion=50", []string{"0xm1"}},
		{"combined", "/api/markets/watch?category=politics&min_suspicion=50", []string{"0xm1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, engine, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			var items []WatchRow
			if err := json.Unmarshal(env.Data, &items); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if len(items) != len(tt.want) {
				t.Fatalf("items = %d, want %d", len(items), len(tt.want))
			}
			for i, id := range tt.want {
				if items[i].ConditionID != id {
					t.Errorf("items[%d] = %s, want %s", i, items[i].ConditionID, id)
				}
			}
		})
	}
}

type stubStatsStore struct {
	stats *storage.SystemStats
	err   error
}

func (s *stubStatsStore) Stats(ctx context.Context) (*storage.SystemStats, error) {
	return s.stats, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestStatsEnvelope(t *testing.T) {
	store := &stubStatsStore{stats: &storage.SystemStats{
		TotalTrades:      1234,
		FlaggedTrades:    56,
		TrackedWallets:   78,
		HighScoreWallets: 9,
	}}
	engine := newTestEngine((&SystemHandler{Store: store}).Register)

	rec := doGet(t, engine, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var stats storage.SystemStats
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if stats.TotalTrades != 1234 || stats.HighScoreWallets != 9 {
		t.Errorf("stats = %+v, want stub counters back", stats)
	}
}

func TestStatsError(t *testing.T) {
	store := &stubStatsStore{err: errors.New("boom")}
	engine := newTestEngine((&SystemHandler{Store: store}).Register)

	rec := doGet(t, engine, "/api/stats")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"database answering", nil, http.StatusOK},
		{"database down", errors.New("dial refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine((&SystemHandler{DB: &stubPinger{err: tt.pingErr}}).Register)
			rec := doGet(t, engine, "/health")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
