// Package feature derives the per-market columns that the filters and scores
// read: spread, mid price, time to resolution, the binary heuristic, domain
// classification and the quality score.
package feature

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/classify"
	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/scoring"
)

const polymarketBaseURL = "https://polymarket.com"

// Derive fills the derived columns of every market in place and returns the
// table-wide liquidity maximum that the quality scores were computed against.
// now anchors time_to_resolution_days. Alpha and screener scores stay missing;
// they only exist inside the screener view.
func Derive(markets []domain.Market, now time.Time) float64 {
	for i := range markets {
		deriveRow(&markets[i], now)
	}
	maxLiq := scoring.MaxLiquidity(markets)
	for i := range markets {
		markets[i].QualityScore = scoring.Quality(markets[i], maxLiq)
	}
	return maxLiq
}

func deriveRow(m *domain.Market, now time.Time) {
	m.Spread = Spread(m.BestBid, m.BestAsk)
	m.MidPrice = MidPrice(m.BestBid, m.BestAsk)
	m.TimeToResolutionDays = DaysUntil(ResolutionTime(*m), now)
	m.IsBinaryLike = IsBinaryLike(m.OutcomesRaw)
	m.Flags = classify.Flags(m.TagsLabels)
	m.Domain = classify.Domain(m.Flags)
	m.PTrue = math.NaN()
	m.ImpliedProb = m.MidPrice
	m.Edge = math.NaN()
	m.AlphaScore = math.NaN()
	m.ScreenerScore = math.NaN()
	m.URL = URL(m.EventSlug, m.Slug)
}

// Spread is ask minus bid; missing if either side is.
func Spread(bid, ask float64) float64 {
	return ask - bid
}

// MidPrice is the bid/ask midpoint; missing if either side is.
func MidPrice(bid, ask float64) float64 {
	return (bid + ask) / 2
}

// ResolutionTime picks the first present of market_endDateIso,
// market_endDate and event_endDate.
func ResolutionTime(m domain.Market) time.Time {
	for _, t := range []time.Time{m.MarketEndDateISO, m.MarketEndDate, m.EventEndDate} {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// DaysUntil returns the fractional days from now to t, negative when t is in
// the past, or NaN when t is missing.
func DaysUntil(t, now time.Time) float64 {
	if t.IsZero() {
		return math.NaN()
	}
	return t.Sub(now).Hours() / 24
}

// IsBinaryLike reports whether raw lists exactly two non-empty outcomes. A
// bracketed value is read as a list with quoted items; otherwise it is split
// on commas, or pipes when there are no commas.
func IsBinaryLike(raw string) bool {
	text := strings.TrimSpace(raw)
	if text == "" {
		return false
	}

	var candidates []string
	switch {
	case strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]"):
		for _, part := range strings.Split(text[1:len(text)-1], ",") {
			part = strings.TrimSpace(part)
			part = strings.Trim(part, `"`)
			part = strings.Trim(part, `'`)
			candidates = append(candidates, part)
		}
	case strings.Contains(text, ","):
		candidates = strings.Split(text, ",")
	case strings.Contains(text, "|"):
		candidates = strings.Split(text, "|")
	default:
		candidates = []string{text}
	}

	tokens := 0
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			tokens++
		}
	}
	return tokens == 2
}

// URL links to the event page, or to the market page when the event slug is
// unknown. It is empty when neither slug is known.
func URL(eventSlug, marketSlug string) string {
	switch {
	case eventSlug != "":
		return polymarketBaseURL + "/event/" + url.PathEscape(eventSlug)
	case marketSlug != "":
		return polymarketBaseURL + "/market/" + url.PathEscape(marketSlug)
	default:
		return ""
	}
}
