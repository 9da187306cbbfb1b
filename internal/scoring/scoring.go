// Package scoring holds the three composite tradeability scores: quality,
// screener and alpha. All of them are pure functions of a market's columns
// plus, where noted, an explicit liquidity maximum for the scope being
// scored.
package scoring

import (
	"math"
	"strings"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

const (
	weightLiquidity = 0.35
	weightVolume    = 0.30
	weightSpread    = 0.20
	weightTime      = 0.15
)

// MaxLiquidity returns the largest liquidity in markets with missing values
// counted as 0.
func MaxLiquidity(markets []domain.Market) float64 {
	maxLiq := 0.0
	for i := range markets {
		if v := domain.OrZero(markets[i].Liquidity); v > maxLiq {
			maxLiq = v
		}
	}
	return maxLiq
}

// logShare is log1p(v)/log1p(maxV), clamped to [0,1].
func logShare(v, maxV float64) float64 {
	v = math.Max(v, 0)
	return clamp01(math.Log1p(v) / math.Log1p(maxV))
}

func volumeScore(vol24h float64) float64 {
	return math.Min(math.Max(domain.OrZero(vol24h), 0)/1000, 1)
}

// Quality scores general tradeability in [0,1]. maxLiquidity is the
// table-wide maximum computed once per build; when it is not positive every
// liquidity component is 0. Missing spread counts as 1.0 and missing time as
// 100 days.
func Quality(m domain.Market, maxLiquidity float64) float64 {
	liq := 0.0
	if maxLiquidity > 0 {
		liq = logShare(domain.OrZero(m.Liquidity), maxLiquidity)
	}
	spread := math.Max(domain.Or(m.Spread, 1.0), 0)
	spreadScore := 1 - math.Min(spread/0.10, 1)
	days := math.Max(domain.Or(m.TimeToResolutionDays, 100), 0)
	timeScore := 1 - math.Min(days/100, 1)

	return finite(weightLiquidity*liq +
		weightVolume*volumeScore(m.Volume24h) +
		weightSpread*spreadScore +
		weightTime*timeScore)
}

// Screener ranks markets inside an already narrowed candidate set.
// maxLiquidity is the maximum of that set and is treated as 1 when not
// positive. Time is scored on a triangle peaking at 45 days within [3,90].
// Missing spread counts as 1.0 and missing time as 90 days.
func Screener(m domain.Market, maxLiquidity float64) float64 {
	if maxLiquidity <= 0 {
		maxLiquidity = 1
	}
	liq := logShare(domain.OrZero(m.Liquidity), maxLiquidity)
	spread := math.Max(domain.Or(m.Spread, 1.0), 0)
	spreadScore := 1 - math.Min(spread/0.05, 1)
	days := math.Min(math.Max(domain.Or(m.TimeToResolutionDays, 90), 3), 90)
	timeScore := 1 - math.Min(math.Abs(days-45)/45, 1)

	return finite(weightLiquidity*liq +
		weightVolume*volumeScore(m.Volume24h) +
		weightSpread*spreadScore +
		weightTime*timeScore)
}

// Alpha looks for mid-band markets: the banded liquidity, volume, spread and
// time components scaled by the domain multiplier and by m.QualityScore.
func Alpha(m domain.Market) float64 {
	raw := 0.30*LiquidityBand.At(m.Liquidity) +
		0.25*VolumeBand.At(m.Volume24h) +
		0.20*SpreadBand.At(m.Spread) +
		0.25*TimeBand.At(m.TimeToResolutionDays)
	return finite(raw * DomainMultiplier(m.Domain, m.EventTitle) * m.QualityScore)
}

// DomainMultiplier weights a domain for the alpha score. Titles containing
// "Up or Down" (exact case) are halved on top of the domain weight.
func DomainMultiplier(label, eventTitle string) float64 {
	var base float64
	switch label {
	case domain.DomainElections, domain.DomainGlobalElection, domain.DomainPolitics:
		base = 1.0
	case domain.DomainTech, domain.DomainFinance, domain.DomainCrypto:
		base = 0.9
	case domain.DomainCulture:
		base = 0.7
	case domain.DomainSports:
		base = 0.4
	default:
		base = 0.8
	}
	if strings.Contains(eventTitle, "Up or Down") {
		base *= 0.5
	}
	return base
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
