package service

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/alanyoungcy/polyscreen/internal/classify"
	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/filter"
	"github.com/alanyoungcy/polyscreen/internal/ranking"
	"github.com/alanyoungcy/polyscreen/internal/scoring"
)

const (
	overviewSample      = 20
	domainMarketsSample = 50
)

// Distribution summarises one numeric column between its 5th and 95th
// percentiles, with missing values counted as 0.
type Distribution struct {
	P5       float64 `json:"p5"`
	P95      float64 `json:"p95"`
	Outliers int     `json:"outliers_excluded"`
}

// DomainCount is the number of markets carrying one domain label.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Overview is the summary of the globally filtered table.
type Overview struct {
	Filters        filter.Report   `json:"filters"`
	Count          int             `json:"count"`
	TotalLiquidity float64         `json:"total_liquidity"`
	TotalVolume24h float64         `json:"total_volume_24h"`
	Liquidity      *Distribution   `json:"liquidity,omitempty"`
	Volume24h      *Distribution   `json:"volume_24h,omitempty"`
	Domains        []DomainCount   `json:"domains"`
	Sample         []domain.Market `json:"-"`
	NoMatches      bool            `json:"no_matches"`
}

// DomainStat aggregates one domain. Medians skip missing values and are
// missing themselves when every value is.
type DomainStat struct {
	Domain          string  `json:"domain"`
	Count           int     `json:"count"`
	MedianLiquidity float64 `json:"-"`
	MedianVolume24h float64 `json:"-"`
	MedianSpread    float64 `json:"-"`
	MedianQuality   float64 `json:"-"`
}

// DomainStats is the per-domain breakdown of the filtered table.
type DomainStats struct {
	Filters   filter.Report `json:"filters"`
	Domains   []DomainStat  `json:"domains"`
	NoMatches bool          `json:"no_matches"`
}

// DomainMarkets is the filtered table narrowed to one domain.
type DomainMarkets struct {
	Filters   filter.Report   `json:"filters"`
	Stat      DomainStat      `json:"stat"`
	Markets   []domain.Market `json:"-"`
	NoMatches bool            `json:"no_matches"`
}

// ScreenerResult is the screener view: filtered, screened, scored and
// sorted.
type ScreenerResult struct {
	Filters   filter.Report   `json:"filters"`
	SortKey   string          `json:"sort_key"`
	Domains   []DomainStat    `json:"domains"`
	Markets   []domain.Market `json:"-"`
	NoMatches bool            `json:"no_matches"`
}

// MarketList is a sorted, paginated slice of the filtered table.
type MarketList struct {
	Filters   filter.Report   `json:"filters"`
	Total     int             `json:"total"`
	SortKey   string          `json:"sort_key,omitempty"`
	Markets   []domain.Market `json:"-"`
	NoMatches bool            `json:"no_matches"`
}

// ListQuery selects and orders rows for Markets.
type ListQuery struct {
	Filters filter.Config
	// SortKey empty keeps table order.
	SortKey string
	Offset  int
	Limit   int
}

// ScreenerQuery configures the screener view.
type ScreenerQuery struct {
	Filters  filter.Config
	Screener filter.ScreenerConfig
	SortKey  string
}

// BuildOverview summarises markets after the global chain and, when
// positiveOnly is set, after dropping rows without liquidity or 24h volume.
func BuildOverview(markets []domain.Market, cfg filter.Config, positiveOnly bool) (Overview, error) {
	rows, rep, err := filter.Apply(markets, cfg)
	if err != nil {
		return Overview{}, fmt.Errorf("service: overview: %w", err)
	}
	if positiveOnly && len(rows) > 0 {
		rows = filter.PositiveActivity(rows)
		rep.Steps = append(rep.Steps, filter.Step{Name: "positive_activity", Remaining: len(rows)})
	}

	ov := Overview{Filters: rep, Count: len(rows), Domains: domainCounts(rows), NoMatches: len(rows) == 0}
	for i := range rows {
		ov.TotalLiquidity += domain.OrZero(rows[i].Liquidity)
		ov.TotalVolume24h += domain.OrZero(rows[i].Volume24h)
	}
	ov.Liquidity = distribution(rows, func(m *domain.Market) float64 { return m.Liquidity })
	ov.Volume24h = distribution(rows, func(m *domain.Market) float64 { return m.Volume24h })
	ov.Sample = rows[:min(overviewSample, len(rows))]
	return ov, nil
}

// BuildDomainStats groups the filtered markets by domain, ordered by median
// liquidity descending.
func BuildDomainStats(markets []domain.Market, cfg filter.Config) (DomainStats, error) {
	rows, rep, err := filter.Apply(markets, cfg)
	if err != nil {
		return DomainStats{}, fmt.Errorf("service: domain stats: %w", err)
	}
	stats := groupStats(rows)
	sortByMedianLiquidity(stats)
	return DomainStats{Filters: rep, Domains: stats, NoMatches: len(rows) == 0}, nil
}

// BuildDomainMarkets narrows the filtered markets to label. Unknown labels
// yield domain.ErrNotFound.
func BuildDomainMarkets(markets []domain.Market, cfg filter.Config, label string) (DomainMarkets, error) {
	if !slices.Contains(classify.Labels(), label) {
		return DomainMarkets{}, fmt.Errorf("service: domain %q: %w", label, domain.ErrNotFound)
	}
	rows, rep, err := filter.Apply(markets, cfg)
	if err != nil {
		return DomainMarkets{}, fmt.Errorf("service: domain markets: %w", err)
	}
	var sub []domain.Market
	for i := range rows {
		if rows[i].Domain == label {
			sub = append(sub, rows[i])
		}
	}
	stat := DomainStat{Domain: label, Count: len(sub)}
	fillMedians(&stat, sub)
	return DomainMarkets{
		Filters:   rep,
		Stat:      stat,
		Markets:   sub[:min(domainMarketsSample, len(sub))],
		NoMatches: len(sub) == 0,
	}, nil
}

// BuildScreener runs the global chain, then the screener predicates, then
// scores the survivors against their own liquidity maximum and sorts them.
func BuildScreener(markets []domain.Market, q ScreenerQuery) (ScreenerResult, error) {
	key := q.SortKey
	if key == "" {
		key = ranking.Default
	}
	if _, err := ranking.Descending(key); err != nil {
		return ScreenerResult{}, fmt.Errorf("service: screener: %w", err)
	}

	rows, rep, err := filter.Apply(markets, q.Filters)
	if err != nil {
		return ScreenerResult{}, fmt.Errorf("service: screener: %w", err)
	}
	rows, err = filter.Screen(rows, q.Screener)
	if err != nil {
		return ScreenerResult{}, fmt.Errorf("service: screener: %w", err)
	}
	rows = slices.Clone(rows)

	maxLiq := scoring.MaxLiquidity(rows)
	for i := range rows {
		rows[i].ScreenerScore = scoring.Screener(rows[i], maxLiq)
		rows[i].AlphaScore = scoring.Alpha(rows[i])
	}

	stats := groupStats(rows)
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })

	if err := ranking.Sort(rows, key); err != nil {
		return ScreenerResult{}, fmt.Errorf("service: screener: %w", err)
	}
	return ScreenerResult{
		Filters:   rep,
		SortKey:   key,
		Domains:   stats,
		Markets:   rows,
		NoMatches: len(rows) == 0,
	}, nil
}

// BuildMarketList filters, optionally sorts, and pages markets.
func BuildMarketList(markets []domain.Market, q ListQuery) (MarketList, error) {
	rows, rep, err := filter.Apply(markets, q.Filters)
	if err != nil {
		return MarketList{}, fmt.Errorf("service: markets: %w", err)
	}
	if q.SortKey != "" {
		rows = slices.Clone(rows)
		if err := ranking.Sort(rows, q.SortKey); err != nil {
			return MarketList{}, fmt.Errorf("service: markets: %w", err)
		}
	}
	total := len(rows)
	lo := min(max(q.Offset, 0), total)
	hi := total
	if q.Limit > 0 {
		hi = min(lo+q.Limit, total)
	}
	return MarketList{
		Filters:   rep,
		Total:     total,
		SortKey:   q.SortKey,
		Markets:   rows[lo:hi],
		NoMatches: total == 0,
	}, nil
}

func domainCounts(rows []domain.Market) []DomainCount {
	counts := make(map[string]int)
	for i := range rows {
		counts[rows[i].Domain]++
	}
	out := make([]DomainCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DomainCount{Domain: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

// groupStats returns one DomainStat per domain present, by domain name.
func groupStats(rows []domain.Market) []DomainStat {
	groups := make(map[string][]domain.Market)
	for i := range rows {
		groups[rows[i].Domain] = append(groups[rows[i].Domain], rows[i])
	}
	out := make([]DomainStat, 0, len(groups))
	for d, sub := range groups {
		st := DomainStat{Domain: d, Count: len(sub)}
		fillMedians(&st, sub)
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

func fillMedians(st *DomainStat, rows []domain.Market) {
	st.MedianLiquidity = median(rows, func(m *domain.Market) float64 { return m.Liquidity })
	st.MedianVolume24h = median(rows, func(m *domain.Market) float64 { return m.Volume24h })
	st.MedianSpread = median(rows, func(m *domain.Market) float64 { return m.Spread })
	st.MedianQuality = median(rows, func(m *domain.Market) float64 { return m.QualityScore })
}

// sortByMedianLiquidity orders descending with missing medians last and
// ties by name.
func sortByMedianLiquidity(stats []DomainStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i].MedianLiquidity, stats[j].MedianLiquidity
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return false
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		}
		return a > b
	})
}

// median ignores missing values.
func median(rows []domain.Market, value func(*domain.Market) float64) float64 {
	vals := make([]float64, 0, len(rows))
	for i := range rows {
		if v := value(&rows[i]); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// distribution is nil when every value is 0 or missing.
func distribution(rows []domain.Market, value func(*domain.Market) float64) *Distribution {
	vals := make([]float64, len(rows))
	maxV := 0.0
	for i := range rows {
		vals[i] = domain.OrZero(value(&rows[i]))
		maxV = math.Max(maxV, vals[i])
	}
	if maxV <= 0 {
		return nil
	}
	sort.Float64s(vals)
	d := &Distribution{P5: quantile(vals, 0.05), P95: quantile(vals, 0.95)}
	for i := range rows {
		v := value(&rows[i])
		if math.IsNaN(v) {
			continue
		}
		if v < d.P5 || v > d.P95 {
			d.Outliers++
		}
	}
	return d
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
