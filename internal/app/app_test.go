package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyscreen/internal/config"
	"github.com/alanyoungcy/polyscreen/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func gammaServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	end := time.Now().UTC().Add(30 * 24 * time.Hour).Format(time.RFC3339)
	soon := time.Now().UTC().Add(10 * 24 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`[
	  {"id": "1", "slug": "election", "title": "Who wins the election?",
	   "tags": [{"label": "Politics", "slug": "politics"}],
	   "markets": [{"id": "a", "slug": "a", "question": "Will A win?",
	     "liquidityNum": 1000, "volume24hr": 100, "bestBid": 0.40, "bestAsk": 0.45,
	     "endDateIso": %q, "outcomes": "[\"Yes\",\"No\"]"}]},
	  {"id": "2", "slug": "final", "title": "Who wins the final?",
	   "tags": [{"label": "Sports", "slug": "sports"}],
	   "markets": [{"id": "b", "slug": "b", "question": "Will B win?",
	     "liquidityNum": "3000", "volume24hr": "500", "bestBid": 0.50, "bestAsk": 0.52,
	     "endDateIso": %q, "outcomes": "[\"Yes\",\"No\"]"}]}
	]`, end, soon)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/events", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, gammaURL, mode string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Mode = mode
	cfg.Polymarket.GammaHost = gammaURL
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "snap", "markets.csv")
	cfg.Fetch.RequestsPerSecond = 100
	cfg.Fetch.RetryBackoff.Duration = time.Millisecond
	cfg.Server.Enabled = false
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestFetchThenScreen(t *testing.T) {
	var calls atomic.Int32
	srv := gammaServer(t, &calls)
	cfg := testConfig(t, srv.URL, "fetch")

	fetch := New(cfg, discard(), ScreenOptions{})
	require.NoError(t, fetch.Run(context.Background()))
	fetch.Close()
	assert.Equal(t, int32(1), calls.Load())

	data, err := os.ReadFile(cfg.Snapshot.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "market_id")
	assert.Contains(t, string(data), "Will A win?")

	// Screen mode builds from the stored snapshot without calling Gamma.
	cfg.Mode = "screen"
	var out bytes.Buffer
	screen := New(cfg, discard(), ScreenOptions{Format: "json", Out: &out})
	require.NoError(t, screen.Run(context.Background()))
	screen.Close()
	assert.Equal(t, int32(1), calls.Load())

	var res struct {
		SortKey string `json:"sort_key"`
		Markets []struct {
			Rank          int      `json:"rank"`
			ID            string   `json:"market_id"`
			Domain        string   `json:"domain"`
			ScreenerScore *float64 `json:"screener_score"`
		} `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "screener_score", res.SortKey)
	require.Len(t, res.Markets, 1)
	assert.Equal(t, "a", res.Markets[0].ID)
	assert.Equal(t, domain.DomainPolitics, res.Markets[0].Domain)
	require.NotNil(t, res.Markets[0].ScreenerScore)
}

func TestFetchMode_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	cfg := testConfig(t, srv.URL, "fetch")
	cfg.Fetch.Retries = 0

	a := New(cfg, discard(), ScreenOptions{})
	defer a.Close()
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	_, statErr := os.Stat(cfg.Snapshot.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestServeMode_StopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	srv := gammaServer(t, &calls)
	cfg := testConfig(t, srv.URL, "serve")

	deps, cleanup, err := Wire(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	a := New(cfg, discard(), ScreenOptions{})
	go func() { done <- a.ServeMode(ctx, deps) }()

	require.Eventually(t, func() bool { return deps.Tables.Status().Loaded }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve mode did not stop")
	}
}

func TestWriteScreenTable(t *testing.T) {
	m := domain.NewMarket()
	m.ID = "x"
	m.Question = "Will it rain?"
	m.Domain = domain.DomainOther
	m.ScreenerScore = 0.5
	m.Liquidity = 1234.4

	var buf bytes.Buffer
	require.NoError(t, writeScreenTable(&buf, []domain.Market{m}))
	out := buf.String()
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "0.500")
	assert.Contains(t, out, "1234")
	assert.Contains(t, out, "Will it rain?")
}

func TestCellAndTruncate(t *testing.T) {
	assert.Equal(t, "-", cell(math.NaN(), 2))
	assert.Equal(t, "0.12", cell(0.123, 2))
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
