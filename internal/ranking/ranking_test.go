package ranking

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

func withSpread(id string, spread float64) domain.Market {
	m := domain.NewMarket()
	m.ID = id
	m.Spread = spread
	m.QualityScore = spread
	return m
}

func order(markets []domain.Market) []string {
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = m.ID
	}
	return out
}

func TestSort_AscendingNaNLast(t *testing.T) {
	ms := []domain.Market{
		withSpread("a", 0.05),
		withSpread("nan", math.NaN()),
		withSpread("b", 0.01),
		withSpread("c", 0.05),
	}
	require.NoError(t, Sort(ms, BySpread))
	assert.Equal(t, []string{"b", "a", "c", "nan"}, order(ms))
}

func TestSort_DescendingNaNLastAndStable(t *testing.T) {
	ms := []domain.Market{
		withSpread("nan", math.NaN()),
		withSpread("a", 0.3),
		withSpread("b", 0.9),
		withSpread("c", 0.3),
	}
	require.NoError(t, Sort(ms, ByQuality))
	assert.Equal(t, []string{"b", "a", "c", "nan"}, order(ms))
}

func TestSort_DefaultKeyIsScreener(t *testing.T) {
	a, b := domain.NewMarket(), domain.NewMarket()
	a.ID, a.ScreenerScore = "a", 0.2
	b.ID, b.ScreenerScore = "b", 0.8
	ms := []domain.Market{a, b}
	require.NoError(t, Sort(ms, ""))
	assert.Equal(t, []string{"b", "a"}, order(ms))
}

func TestSort_UnknownKey(t *testing.T) {
	err := Sort(nil, "event_title")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestSort_Empty(t *testing.T) {
	assert.NoError(t, Sort([]domain.Market{}, ByTime))
}

func TestDirections(t *testing.T) {
	want := map[string]bool{
		ByScreener: true, ByQuality: true, ByAlpha: true, ByLiquidity: true,
		ByVolume24h: true, BySpread: false, ByTime: false,
	}
	for _, k := range Keys() {
		desc, err := Descending(k)
		require.NoError(t, err)
		assert.Equal(t, want[k], desc, k)
	}
	assert.Len(t, Keys(), len(want))
}
