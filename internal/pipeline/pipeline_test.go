package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/platform/polymarket"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEvent(t *testing.T, raw string) polymarket.APIEvent {
	t.Helper()
	var ev polymarket.APIEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	return ev
}

const sampleEvent = `{
  "id": "10", "slug": "ev", "title": "Event", "closed": false,
  "tags": [{"label": "Politics", "slug": "politics"}, {"label": " ", "slug": "blank"}, {"label": "Elections"}],
  "markets": [
    {"id": "a", "slug": "m-a", "liquidityNum": "500", "bestBid": 0.4, "bestAsk": 0.45,
     "outcomes": "[\"Yes\",\"No\"]", "categories": [{"label": "US"}]},
    {"id": "closed", "closed": true, "liquidityNum": 500},
    {"id": "inactive", "active": false, "liquidityNum": 500},
    {"id": "nobook", "enableOrderBook": false, "liquidityNum": 500},
    {"id": "thin", "liquidity": "5"}
  ]
}`

func TestFlattenEvent(t *testing.T) {
	ev := decodeEvent(t, sampleEvent)
	rows := FlattenEvent(ev, FlattenOptions{OnlyTradeable: true, MinLiquidity: 10})
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "a", r["market_id"])
	assert.Equal(t, "10", r["event_id"])
	assert.Equal(t, "Politics|Elections", r["event_tags_labels"])
	assert.Equal(t, "politics|blank", r["event_tags_slugs"])
	assert.Equal(t, "US", r["market_categories_labels"])
	assert.Equal(t, "500", r["liquidity_num"])
	assert.Equal(t, "0.4", r["bestBid"])
	assert.Equal(t, "0", r["volume_24h"])
	assert.Equal(t, `["Yes","No"]`, r["outcomes_raw"])
	assert.Equal(t, "true", r["accepting_orders"])
	assert.Equal(t, "", r["ready"])
}

func TestFlattenEvent_NotTradeableKeptWhenAllowed(t *testing.T) {
	ev := decodeEvent(t, sampleEvent)
	rows := FlattenEvent(ev, FlattenOptions{})
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r["market_id"])
	}
	assert.Equal(t, []string{"a", "nobook", "thin"}, ids)
}

func TestFlattenEvent_ClosedEventDefault(t *testing.T) {
	ev := decodeEvent(t, `{"id": "1", "closed": true, "markets": [{"id": "x"}, {"id": "y", "closed": false}]}`)
	rows := FlattenEvent(ev, FlattenOptions{})
	require.Len(t, rows, 1)
	assert.Equal(t, "y", rows[0]["market_id"])
}

type pagedEvents struct {
	mu     sync.Mutex
	pages  [][]polymarket.APIEvent
	fail   map[int]int // offset -> remaining failures
	err    error
	calls  []int
	limits []int
}

func (p *pagedEvents) GetEvents(_ context.Context, limit, offset int) ([]polymarket.APIEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, offset)
	p.limits = append(p.limits, limit)
	if p.fail[offset] > 0 {
		p.fail[offset]--
		return nil, p.err
	}
	idx := offset / limit
	if idx >= len(p.pages) {
		return nil, nil
	}
	return p.pages[idx], nil
}

func events(n int, prefix string) []polymarket.APIEvent {
	out := make([]polymarket.APIEvent, n)
	for i := range out {
		raw := `{"id": "` + prefix + `", "markets": [{"id": "` + prefix + string(rune('a'+i)) + `"}]}`
		_ = json.Unmarshal([]byte(raw), &out[i])
	}
	return out
}

func fastConfig() FetcherConfig {
	return FetcherConfig{
		PageSize:          2,
		RequestsPerSecond: 1000,
		Burst:             10,
		RetryBackoff:      time.Millisecond,
	}
}

func TestFetchRows_PaginatesUntilShortPage(t *testing.T) {
	src := &pagedEvents{pages: [][]polymarket.APIEvent{events(2, "p"), events(2, "q"), events(1, "r")}}
	f := NewMarketFetcher(src, fastConfig(), nil, discard())

	raw, err := f.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 5)
	assert.Equal(t, []int{0, 2, 4}, src.calls)
	assert.True(t, raw.Has("market_id"))
	assert.True(t, raw.Has("event_id"))
}

func TestFetchRows_StopsOnEmptyPage(t *testing.T) {
	src := &pagedEvents{pages: [][]polymarket.APIEvent{events(2, "p")}}
	f := NewMarketFetcher(src, fastConfig(), nil, discard())

	raw, err := f.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 2)
	assert.Equal(t, []int{0, 2}, src.calls)
}

func TestFetchRows_RetriesTransientFailure(t *testing.T) {
	src := &pagedEvents{
		pages: [][]polymarket.APIEvent{events(1, "p")},
		fail:  map[int]int{0: 1},
		err:   domain.ErrRateLimited,
	}
	cfg := fastConfig()
	cfg.Retries = 2
	f := NewMarketFetcher(src, cfg, nil, discard())

	raw, err := f.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 1)
	assert.Equal(t, []int{0, 0}, src.calls)
}

func TestFetchRows_FailureIsFetchFailed(t *testing.T) {
	boom := errors.New("connection refused")
	src := &pagedEvents{fail: map[int]int{0: 10}, err: boom}
	cfg := fastConfig()
	cfg.Retries = 1
	f := NewMarketFetcher(src, cfg, nil, discard())

	_, err := f.FetchRows(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetchRows_BreakerOpens(t *testing.T) {
	src := &pagedEvents{fail: map[int]int{0: 100}, err: errors.New("503")}
	cfg := fastConfig()
	cfg.Retries = 5
	f := NewMarketFetcher(src, cfg, nil, discard())

	_, err := f.FetchRows(context.Background())
	require.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Len(t, src.calls, 3)
}

func TestFetchRows_UnauthorizedNotRetried(t *testing.T) {
	src := &pagedEvents{fail: map[int]int{0: 5}, err: domain.ErrUnauthorized}
	cfg := fastConfig()
	cfg.Retries = 3
	f := NewMarketFetcher(src, cfg, nil, discard())

	_, err := f.FetchRows(context.Background())
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Len(t, src.calls, 1)
}

func TestFetchRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewMarketFetcher(&pagedEvents{}, fastConfig(), nil, discard())
	_, err := f.FetchRows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type countingRefresher struct{ n atomic.Int32 }

func (c *countingRefresher) Refresh(context.Context) error {
	c.n.Add(1)
	return errors.New("upstream down")
}

func TestScheduler_TicksUntilCancelled(t *testing.T) {
	target := &countingRefresher{}
	s := NewScheduler(target, 5*time.Millisecond, discard())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.GreaterOrEqual(t, target.n.Load(), int32(2))
}

func TestScheduler_Disabled(t *testing.T) {
	target := &countingRefresher{}
	s := NewScheduler(target, 0, discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.Zero(t, target.n.Load())
}
