package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/filter"
	"github.com/alanyoungcy/polyscreen/internal/service"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type staticSource struct {
	rows []map[string]string
	err  error
}

func (s staticSource) FetchRows(context.Context) (domain.RawTable, error) {
	if s.err != nil {
		return domain.RawTable{}, s.err
	}
	return domain.NewRawTable(s.rows), nil
}

func row(id, tags, liq, vol, bid, ask, end string) map[string]string {
	return map[string]string{
		"market_id":         id,
		"market_slug":       "m-" + id,
		"event_slug":        "e-" + id,
		"event_title":       "Event " + id,
		"event_tags_labels": tags,
		"liquidity_num":     liq,
		"volume_24h":        vol,
		"bestBid":           bid,
		"bestAsk":           ask,
		"market_endDateIso": end,
		"outcomes_raw":      `["Yes","No"]`,
		"custom_note":       "note-" + id,
	}
}

func sampleRows() []map[string]string {
	return []map[string]string{
		row("m1", "Politics", "1000", "100", "0.40", "0.45", "2026-01-31T00:00:00Z"),
		row("m2", "Sports", "3000", "500", "0.50", "0.52", "2026-01-11T00:00:00Z"),
		row("m3", "Tech", "300", "30", "0.20", "0.25", "2026-02-15T00:00:00Z"),
		row("m4", "Culture", "50", "0", "0.10", "0.30", "2026-01-21T00:00:00Z"),
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMux(t *testing.T, src domain.MarketSource, load bool) (*http.ServeMux, *service.TableService) {
	t.Helper()
	svc := service.NewTableService(src, nil, nil, nil, nil, nil, discard(), service.Options{
		FetchTimeout: time.Second,
		Now:          func() time.Time { return fixedNow },
	})
	if load {
		require.NoError(t, svc.Refresh(context.Background()))
	}
	defaults := Defaults{Filters: filter.DefaultConfig(), Screener: filter.DefaultScreenerConfig()}
	tables := NewTableHandler(svc, "serve", discard())
	markets := NewMarketHandler(svc, defaults, discard())
	views := NewViewHandler(svc, defaults, discard())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", NewHealthHandler().HealthCheck)
	mux.HandleFunc("GET /api/status", tables.GetStatus)
	mux.HandleFunc("POST /api/refresh", tables.Refresh)
	mux.HandleFunc("GET /api/snapshot.csv", tables.SnapshotCSV)
	mux.HandleFunc("GET /api/markets", markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", markets.GetMarket)
	mux.HandleFunc("GET /api/overview", views.Overview)
	mux.HandleFunc("GET /api/domains", views.Domains)
	mux.HandleFunc("GET /api/domains/{domain}", views.DomainMarkets)
	mux.HandleFunc("GET /api/screener", views.Screener)
	return mux, svc
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func ids(t *testing.T, v any) []string {
	t.Helper()
	list, ok := v.([]any)
	require.True(t, ok, "expected a list, got %T", v)
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = item.(map[string]any)["market_id"].(string)
	}
	return out
}

func TestHealth(t *testing.T) {
	mux, _ := newMux(t, staticSource{}, false)
	w, body := do(t, mux, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestViews_NoTableYet(t *testing.T) {
	mux, _ := newMux(t, staticSource{}, false)
	for _, target := range []string{"/api/overview", "/api/markets", "/api/screener", "/api/snapshot.csv"} {
		w, _ := do(t, mux, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
}

func TestMarkets_ListSortedAndPaged(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)
	w, body := do(t, mux, http.MethodGet, "/api/markets?sort=liquidity_num&limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, []string{"m2", "m1"}, ids(t, body["markets"]))
}

func TestMarkets_QueryFilters(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)

	_, body := do(t, mux, http.MethodGet, "/api/markets?domain=Tech,Politics")
	assert.ElementsMatch(t, []string{"m1", "m3"}, ids(t, body["markets"]))

	// Widening the spread range lets m4 back in.
	_, body = do(t, mux, http.MethodGet, "/api/markets?spread=0,0.5")
	assert.Equal(t, float64(4), body["total"])

	_, body = do(t, mux, http.MethodGet, "/api/markets?q=event%20m3")
	assert.Equal(t, []string{"m3"}, ids(t, body["markets"]))
}

func TestMarkets_BadQuery(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)
	for _, target := range []string{
		"/api/markets?liquidity=100",
		"/api/markets?liquidity=500,100",
		"/api/markets?spread=a,b",
		"/api/markets?tradeable=maybe",
		"/api/markets?limit=0",
		"/api/markets?offset=-1",
		"/api/markets?sort=vibes",
		"/api/screener?max_spread=abc",
		"/api/screener?band_time=10,2",
	} {
		w, body := do(t, mux, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestGetMarket(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)

	w, body := do(t, mux, http.MethodGet, "/api/markets/m4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m4", body["market_id"])
	assert.Equal(t, domain.DomainCulture, body["domain"])
	assert.InDelta(t, 0.2, body["spread"].(float64), 1e-9)
	assert.Nil(t, body["p_true"])
	assert.Nil(t, body["edge"])
	assert.Equal(t, "note-m4", body["extra"].(map[string]any)["custom_note"])

	w, _ = do(t, mux, http.MethodGet, "/api/markets/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMarket_Dates(t *testing.T) {
	rows := sampleRows()
	rows[3]["market_startDate"] = "2025-11-01T00:00:00Z"
	rows[3]["market_startDateIso"] = "2025-11-01"
	rows[3]["closedTime"] = "2025-12-20 04:31:42+00"
	mux, _ := newMux(t, staticSource{rows: rows}, true)

	w, body := do(t, mux, http.MethodGet, "/api/markets/m4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-11-01T00:00:00Z", body["market_start_date"])
	assert.Equal(t, "2025-11-01T00:00:00Z", body["market_start_date_iso"])
	assert.Equal(t, "2025-12-20T04:31:42Z", body["closed_time"])
	assert.Equal(t, "2026-01-21T00:00:00Z", body["market_end_date_iso"])

	w, body = do(t, mux, http.MethodGet, "/api/markets/m1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["closed_time"])
}

func TestOverview(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)
	w, body := do(t, mux, http.MethodGet, "/api/overview")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["count"])
	assert.InDelta(t, 4300, body["total_liquidity"].(float64), 1e-9)
	assert.Len(t, body["sample"], 3)
	assert.Equal(t, false, body["no_matches"])
}

func TestDomains(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)

	_, body := do(t, mux, http.MethodGet, "/api/domains")
	doms := body["domains"].([]any)
	require.Len(t, doms, 3)
	first := doms[0].(map[string]any)
	assert.Equal(t, domain.DomainSports, first["domain"])
	assert.InDelta(t, 3000, first["median_liquidity"].(float64), 1e-9)

	w, body := do(t, mux, http.MethodGet, "/api/domains/Finance")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["no_matches"])
	assert.Nil(t, body["stat"].(map[string]any)["median_liquidity"])

	w, _ = do(t, mux, http.MethodGet, "/api/domains/Weather")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScreener(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)

	w, body := do(t, mux, http.MethodGet, "/api/screener")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "screener_score", body["sort_key"])
	assert.Equal(t, []string{"m1", "m3"}, ids(t, body["markets"]))

	_, body = do(t, mux, http.MethodGet, "/api/screener?limit=1&offset=1")
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, []string{"m3"}, ids(t, body["markets"]))

	// Turning the sports/crypto exclusion off admits m2.
	_, body = do(t, mux, http.MethodGet, "/api/screener?exclude_sports_crypto=false&sort=liquidity_num")
	assert.Equal(t, []string{"m2", "m1", "m3"}, ids(t, body["markets"]))
}

func TestStatusAndSnapshot(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, true)

	_, body := do(t, mux, http.MethodGet, "/api/status")
	assert.Equal(t, "serve", body["mode"])
	table := body["table"].(map[string]any)
	assert.Equal(t, true, table["loaded"])
	assert.Equal(t, float64(4), table["rows"])
	assert.Equal(t, "gamma", table["source"])

	w, _ := do(t, mux, http.MethodGet, "/api/snapshot.csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	header, _, _ := strings.Cut(w.Body.String(), "\n")
	assert.Contains(t, header, "market_id")
}

func TestRefresh(t *testing.T) {
	mux, _ := newMux(t, staticSource{rows: sampleRows()}, false)
	w, body := do(t, mux, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refreshed", body["status"])
}

func TestRefresh_FailureKeepsTable(t *testing.T) {
	mux, svc := newMux(t, staticSource{err: errors.New("gamma down")}, false)
	w, body := do(t, mux, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, body["error"], "gamma down")
	assert.Contains(t, svc.Status().LastError, "gamma down")
}
