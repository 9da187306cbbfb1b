package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

func TestFloat_MalformedBecomesMissing(t *testing.T) {
	assert.Equal(t, 0.42, Float(" 0.42 "))
	assert.Equal(t, 1500.0, Float("1.5e3"))
	for _, s := range []string{"", "  ", "abc", "1,000", "inf", "-Inf", "NaN"} {
		assert.True(t, math.IsNaN(Float(s)), "expected NaN for %q", s)
	}
}

func TestTime_LayoutsAndUTC(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, want.Equal(Time("2025-03-01T12:00:00Z")))
	assert.True(t, want.Equal(Time("2025-03-01T14:00:00+02:00")))
	assert.True(t, want.Equal(Time("2025-03-01 12:00:00+00:00")))
	assert.True(t, want.Equal(Time("2025-03-01T12:00:00")))
	assert.True(t, want.Equal(Time("2025-03-01 12:00:00")))
	assert.True(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Equal(Time("2025-03-01")))

	closed := time.Date(2024, 11, 6, 4, 31, 42, 0, time.UTC)
	assert.True(t, closed.Equal(Time("2024-11-06 04:31:42+00")))
	assert.True(t, closed.Equal(Time("2024-11-06T04:31:42+0000")))
	assert.True(t, closed.Equal(Time("2024-11-06 06:31:42+0200")))
	assert.True(t, closed.Equal(Time("2024-11-06T04:31:42+00")))
	assert.True(t, closed.Add(123*time.Millisecond).Equal(Time("2024-11-06 04:31:42.123+00")))

	assert.Equal(t, time.UTC, Time("2025-03-01T14:00:00+02:00").Location())
	assert.True(t, Time("not a date").IsZero())
	assert.True(t, Time("").IsZero())
}

func TestBool_DefaultOnUnknown(t *testing.T) {
	assert.True(t, Bool("TRUE", false))
	assert.True(t, Bool("1", false))
	assert.False(t, Bool("False", true))
	assert.False(t, Bool("no", true))
	assert.True(t, Bool("", true))
	assert.False(t, Bool("maybe", false))
}

func TestRow_TypedFieldsAndPassThrough(t *testing.T) {
	m := Row(map[string]string{
		"market_id":         "m1",
		"market_question":   "Will it rain?",
		"bestBid":           "0.40",
		"bestAsk":           "oops",
		"market_endDateIso": "2025-06-01T00:00:00Z",
		"market_closed":     "",
		"accepting_orders":  "false",
		"resolutionSource":  "https://example.com",
	})

	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "Will it rain?", m.Question)
	assert.Equal(t, 0.40, m.BestBid)
	assert.True(t, math.IsNaN(m.BestAsk))
	assert.True(t, math.IsNaN(m.Liquidity))
	assert.False(t, m.MarketEndDateISO.IsZero())
	assert.True(t, m.Active)
	assert.False(t, m.Closed)
	assert.True(t, m.EnableOrderBook)
	assert.False(t, m.AcceptingOrders)
	assert.Equal(t, "https://example.com", m.Extra["resolutionSource"])
}

func TestTable_DuplicateIDsAndNotices(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{"market_id", "bestBid", "bestAsk", "liquidity_num"},
		Rows: []map[string]string{
			{"market_id": "a", "liquidity_num": "10"},
			{"market_id": "b", "liquidity_num": "20"},
			{"market_id": "a", "liquidity_num": "30"},
		},
	}

	markets, notices := Table(raw)

	require.Len(t, markets, 2)
	assert.Equal(t, 10.0, markets[0].Liquidity)
	assert.Equal(t, "b", markets[1].ID)
	assert.Contains(t, notices, "dropped 1 rows with a duplicate market_id")
	assert.Contains(t, notices, "column event_tags_labels absent: all domain flags false, domain Other")
	for _, n := range notices {
		assert.NotContains(t, n, "bestBid/bestAsk")
	}
}

func TestTable_Empty(t *testing.T) {
	markets, notices := Table(domain.RawTable{})
	assert.Empty(t, markets)
	assert.NotEmpty(t, notices)
}
