package filter

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

func mk(id, dom string, liq, vol24, spread, days float64) domain.Market {
	m := domain.NewMarket()
	m.ID = id
	m.Domain = dom
	m.Liquidity = liq
	m.Volume24h = vol24
	m.Spread = spread
	m.TimeToResolutionDays = days
	return m
}

func ids(markets []domain.Market) []string {
	out := make([]string, 0, len(markets))
	for _, m := range markets {
		out = append(out, m.ID)
	}
	return out
}

func sample() []domain.Market {
	closed := mk("closed", "Politics", 900, 50, 0.02, 10)
	closed.Closed = true
	noBook := mk("nobook", "Politics", 900, 50, 0.02, 10)
	noBook.EnableOrderBook = false
	updown := mk("updown", "Crypto Prices", 300, 40, 0.01, 1)
	updown.EventTitle = "Bitcoin UP OR DOWN today"
	binary := mk("binary", "Tech", 100, 10, 0.03, 20)
	binary.IsBinaryLike = true
	binary.Question = "Will the launch slip?"
	return []domain.Market{
		mk("pol", "Politics", 500, 200, 0.05, 30),
		closed,
		noBook,
		updown,
		binary,
		mk("nospread", "Sports", 800, 100, math.NaN(), 15),
		mk("notime", "Culture", 700, 100, 0.04, math.NaN()),
		mk("noliq", "Finance", math.NaN(), 5, 0.02, 5),
	}
}

func TestTradeableOnly_Idempotent(t *testing.T) {
	once := TradeableOnly(sample())
	twice := TradeableOnly(once)
	assert.Equal(t, ids(once), ids(twice))
	assert.NotContains(t, ids(once), "closed")
	assert.NotContains(t, ids(once), "nobook")
}

func TestInDomains_EmptySelectionDoesNotFilter(t *testing.T) {
	in := sample()
	assert.Equal(t, ids(in), ids(InDomains(in, nil)))
	assert.Equal(t, ids(in), ids(InDomains(in, []string{})))
	assert.Equal(t, []string{"pol", "closed", "nobook"}, ids(InDomains(in, []string{"Politics"})))

	cfg := DefaultConfig()
	cfg.Domains = []string{}
	all, _, err := Apply(in, cfg)
	require.NoError(t, err)
	cfg.Domains = DomainOptions(in)
	selected, _, err := Apply(in, cfg)
	require.NoError(t, err)
	assert.Equal(t, ids(all), ids(selected))
}

func TestApply_Defaults(t *testing.T) {
	out, rep, err := Apply(sample(), DefaultConfig())
	require.NoError(t, err)

	// nospread fails the default spread range, notime the time range,
	// updown the title exclusion.
	assert.Equal(t, []string{"pol", "binary", "noliq"}, ids(out))
	assert.False(t, rep.NoMatches())

	require.NotNil(t, rep.Liquidity)
	assert.Equal(t, Range{0, 800}, rep.Liquidity.Bounds)
	assert.Equal(t, Range{0, 800}, rep.Liquidity.Default)
	require.NotNil(t, rep.Spread)
	assert.Equal(t, Range{0, 0.05}, rep.Spread.Bounds)
	assert.Equal(t, Range{0, 0.05}, rep.Spread.Default)
	require.NotNil(t, rep.TimeToResolution)
	assert.Equal(t, Range{1, 30}, rep.TimeToResolution.Bounds)
	assert.Equal(t, Range{1, 30}, rep.TimeToResolution.Default)

	assert.Equal(t, StepTradeable, rep.Steps[0].Name)
	assert.Equal(t, 6, rep.Steps[0].Remaining)
	assert.Equal(t, StepUpOrDown, rep.Steps[len(rep.Steps)-1].Name)
}

func TestApply_ShortCircuitsOnEmpty(t *testing.T) {
	m := mk("x", "Politics", 10, 10, 0.01, 5)
	m.Active = false

	out, rep, err := Apply([]domain.Market{m}, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, rep.NoMatches())
	require.Len(t, rep.Steps, 1)
	assert.Nil(t, rep.Liquidity)
	assert.Nil(t, rep.TimeToResolution)
}

func TestApply_EmptyInput(t *testing.T) {
	out, rep, err := Apply(nil, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, rep.NoMatches())
}

func TestApply_ExplicitRanges(t *testing.T) {
	cfg := Config{
		Liquidity:        &Range{0, 600},
		Spread:           &Range{0, 1},
		TimeToResolution: &Range{-30, 1e9},
	}
	out, _, err := Apply(sample(), cfg)
	require.NoError(t, err)
	// Missing liquidity is 0, missing spread is 1.0, missing time is 1e9.
	assert.Equal(t, []string{"pol", "updown", "binary", "noliq"}, ids(out))

	cfg.Liquidity = &Range{0, 1000}
	out, _, err = Apply(sample(), cfg)
	require.NoError(t, err)
	assert.Contains(t, ids(out), "nospread")
	assert.Contains(t, ids(out), "notime")
}

func TestApply_InvalidRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spread = &Range{0.2, 0.1}
	_, _, err := Apply(sample(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	cfg.Spread = &Range{math.NaN(), 0.1}
	_, _, err = Apply(sample(), cfg)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestApply_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search = "e"
	a, ra, err := Apply(sample(), cfg)
	require.NoError(t, err)
	b, rb, err := Apply(sample(), cfg)
	require.NoError(t, err)
	assert.Equal(t, ids(a), ids(b))
	assert.Equal(t, ra, rb)
}

func TestSearch_QuestionOrTitle(t *testing.T) {
	in := sample()
	assert.Equal(t, []string{"binary"}, ids(Search(in, "LAUNCH")))
	assert.Equal(t, []string{"updown"}, ids(Search(in, "bitcoin")))
	assert.Empty(t, Search(in, "nothing matches this"))
}

func TestExcludeUpOrDown_CaseInsensitive(t *testing.T) {
	assert.NotContains(t, ids(ExcludeUpOrDown(sample())), "updown")
}

func TestBinaryOnly(t *testing.T) {
	assert.Equal(t, []string{"binary"}, ids(BinaryOnly(sample())))
}

func TestPositiveActivity(t *testing.T) {
	in := []domain.Market{
		mk("a", "", 1, 1, 0, 0),
		mk("b", "", 0, 1, 0, 0),
		mk("c", "", 1, math.NaN(), 0, 0),
	}
	assert.Equal(t, []string{"a"}, ids(PositiveActivity(in)))
}

func TestTimeSlider_Clamps(t *testing.T) {
	s := timeSlider([]domain.Market{mk("a", "", 0, 0, 0, -100), mk("b", "", 0, 0, 0, 1000)})
	assert.Equal(t, Range{-30, 365}, s.Bounds)
	assert.Equal(t, Range{0, 90}, s.Default)

	s = timeSlider([]domain.Market{mk("a", "", 0, 0, 0, math.NaN())})
	assert.Equal(t, Range{-30, 365}, s.Bounds)

	s = timeSlider([]domain.Market{mk("a", "", 0, 0, 0, -5), mk("b", "", 0, 0, 0, -1)})
	assert.Equal(t, Range{-5, 365}, s.Bounds)
	assert.Equal(t, Range{0, 90}, s.Default)
}

func TestSpreadSlider_NoValues(t *testing.T) {
	s := spreadSlider([]domain.Market{mk("a", "", 0, 0, math.NaN(), 0)})
	assert.Equal(t, Range{0, 0.3}, s.Bounds)
	assert.Equal(t, Range{0, 0.10}, s.Default)

	s = spreadSlider([]domain.Market{mk("a", "", 0, 0, 0.004, 0)})
	assert.Equal(t, Range{0, 0.01}, s.Bounds)
	assert.Equal(t, Range{0, 0.01}, s.Default)
}

func TestScreen_Defaults(t *testing.T) {
	in := []domain.Market{
		mk("keep", "Politics", 500, 50, 0.05, 30),
		mk("sports", "Sports", 500, 50, 0.05, 30),
		mk("cryptoprices", "Crypto Prices", 500, 50, 0.05, 30),
		mk("thin", "Politics", 150, 50, 0.05, 30),
		mk("wide", "Politics", 500, 50, 0.13, 30),
		mk("nospread", "Politics", 500, 50, math.NaN(), 30),
		mk("quiet", "Politics", 500, 19, 0.05, 30),
		mk("soon", "Politics", 500, 50, 0.05, 1),
		mk("notime", "Politics", 500, 50, 0.05, math.NaN()),
		mk("edge", "Tech", 5000, 20, 0.12, 120),
	}
	out, err := Screen(in, DefaultScreenerConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"keep", "edge"}, ids(out))
}

func TestScreen_TogglesOff(t *testing.T) {
	in := []domain.Market{mk("sports", "Sports", 10, 0, math.NaN(), math.NaN())}
	out, err := Screen(in, ScreenerConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"sports"}, ids(out))
}

func TestScreen_InvalidThreshold(t *testing.T) {
	c := DefaultScreenerConfig()
	c.Time = Range{120, 2}
	_, err := Screen(nil, c)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}
