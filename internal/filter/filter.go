// Package filter implements the ordered predicate chain applied to a built
// table, plus the narrower predicate sets used by the overview and screener
// views. Every step narrows the working set that later steps derive their
// default ranges from.
package filter

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// Chain step names, in application order.
const (
	StepTradeable = "tradeable"
	StepLiquidity = "liquidity"
	StepVolume    = "volume_24h"
	StepSpread    = "spread"
	StepTime      = "time_to_resolution"
	StepDomain    = "domain"
	StepSearch    = "search"
	StepBinary    = "binary_like"
	StepUpOrDown  = "exclude_up_or_down"
)

// Config selects the global predicates. A nil range applies the default
// derived from the rows that reach that step.
type Config struct {
	TradeableOnly    bool
	Liquidity        *Range
	Volume24h        *Range
	Spread           *Range
	TimeToResolution *Range
	// Domains restricts rows to the listed labels. An empty list does not
	// filter by domain at all.
	Domains         []string
	Search          string
	BinaryOnly      bool
	ExcludeUpOrDown bool
}

// DefaultConfig returns the initial selection: tradeable only and "Up or
// Down" titles excluded, every range at its derived default.
func DefaultConfig() Config {
	return Config{
		TradeableOnly:   true,
		ExcludeUpOrDown: true,
	}
}

// Validate rejects ranges that cannot match anything by construction.
func (c Config) Validate() error {
	checks := []struct {
		name string
		r    *Range
	}{
		{StepLiquidity, c.Liquidity},
		{StepVolume, c.Volume24h},
		{StepSpread, c.Spread},
		{StepTime, c.TimeToResolution},
	}
	for _, ch := range checks {
		if ch.r == nil {
			continue
		}
		if err := ch.r.validate(ch.name); err != nil {
			return err
		}
	}
	return nil
}

// Step records how many rows remained after one predicate.
type Step struct {
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
}

// Report describes a chain run. Sliders are nil for steps the chain never
// reached because the working set was already empty.
type Report struct {
	Input            int      `json:"input"`
	Steps            []Step   `json:"steps"`
	Liquidity        *Slider  `json:"liquidity,omitempty"`
	Volume24h        *Slider  `json:"volume_24h,omitempty"`
	Spread           *Slider  `json:"spread,omitempty"`
	TimeToResolution *Slider  `json:"time_to_resolution,omitempty"`
	DomainOptions    []string `json:"domain_options,omitempty"`
}

// NoMatches reports whether the chain ended with zero rows.
func (r Report) NoMatches() bool {
	if len(r.Steps) == 0 {
		return r.Input == 0
	}
	return r.Steps[len(r.Steps)-1].Remaining == 0
}

// Apply runs the global chain over markets and returns the surviving rows in
// their original order. The input slice is not modified. Once the working set
// is empty the remaining steps are skipped.
func Apply(markets []domain.Market, cfg Config) ([]domain.Market, Report, error) {
	rep := Report{Input: len(markets)}
	if err := cfg.Validate(); err != nil {
		return nil, rep, err
	}

	work := markets
	record := func(name string) bool {
		rep.Steps = append(rep.Steps, Step{Name: name, Remaining: len(work)})
		return len(work) > 0
	}
	if len(work) == 0 {
		return []domain.Market{}, rep, nil
	}

	if cfg.TradeableOnly {
		work = TradeableOnly(work)
		if !record(StepTradeable) {
			return work, rep, nil
		}
	}

	s := liquiditySlider(work)
	s.Applied = pick(cfg.Liquidity, s.Default)
	rep.Liquidity = &s
	work = LiquidityIn(work, s.Applied)
	if !record(StepLiquidity) {
		return work, rep, nil
	}

	v := volumeSlider(work)
	v.Applied = pick(cfg.Volume24h, v.Default)
	rep.Volume24h = &v
	work = VolumeIn(work, v.Applied)
	if !record(StepVolume) {
		return work, rep, nil
	}

	sp := spreadSlider(work)
	sp.Applied = pick(cfg.Spread, sp.Default)
	rep.Spread = &sp
	work = SpreadIn(work, sp.Applied)
	if !record(StepSpread) {
		return work, rep, nil
	}

	tt := timeSlider(work)
	tt.Applied = pick(cfg.TimeToResolution, tt.Default)
	rep.TimeToResolution = &tt
	work = TimeIn(work, tt.Applied)
	if !record(StepTime) {
		return work, rep, nil
	}

	rep.DomainOptions = DomainOptions(work)
	work = InDomains(work, cfg.Domains)
	if !record(StepDomain) {
		return work, rep, nil
	}

	if cfg.Search != "" {
		work = Search(work, cfg.Search)
		if !record(StepSearch) {
			return work, rep, nil
		}
	}

	if cfg.BinaryOnly {
		work = BinaryOnly(work)
		if !record(StepBinary) {
			return work, rep, nil
		}
	}

	if cfg.ExcludeUpOrDown {
		work = ExcludeUpOrDown(work)
		record(StepUpOrDown)
	}

	return work, rep, nil
}

// keep returns the markets for which pred holds, in order, as a new slice.
func keep(markets []domain.Market, pred func(*domain.Market) bool) []domain.Market {
	out := make([]domain.Market, 0, len(markets))
	for i := range markets {
		if pred(&markets[i]) {
			out = append(out, markets[i])
		}
	}
	return out
}

// TradeableOnly keeps active, open markets with an order book that accept
// orders.
func TradeableOnly(markets []domain.Market) []domain.Market {
	return keep(markets, func(m *domain.Market) bool { return m.Tradeable() })
}

// LiquidityIn keeps markets whose liquidity, missing counted as 0, lies in r.
func LiquidityIn(markets []domain.Market, r Range) []domain.Market {
	return keep(markets, func(m *domain.Market) bool { return r.Contains(domain.OrZero(m.Liquidity)) })
}

// VolumeIn keeps markets whose 24h volume, missing counted as 0, lies in r.
func VolumeIn(markets []domain.Market, r Range) []domain.Market {
	return keep(markets, func(m *domain.Market) bool { return r.Contains(domain.OrZero(m.Volume24h)) })
}

// SpreadIn keeps markets whose spread, missing counted as 1.0, lies in r.
func SpreadIn(markets []domain.Market, r Range) []domain.Market {
	return keep(markets, func(m *domain.Market) bool { return r.Contains(domain.Or(m.Spread, 1.0)) })
}

// TimeIn keeps markets whose days to resolution, missing counted as 1e9, lie
// in r.
func TimeIn(markets []domain.Market, r Range) []domain.Market {
	return keep(markets, func(m *domain.Market) bool { return r.Contains(domain.Or(m.TimeToResolutionDays, 1e9)) })
}

// InDomains keeps markets whose domain is listed. An empty list keeps
// everything.
func InDomains(markets []domain.Market, domains []string) []domain.Market {
	if len(domains) == 0 {
		return markets
	}
	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		set[d] = true
	}
	return keep(markets, func(m *domain.Market) bool { return set[m.Domain] })
}

// Search keeps markets whose question or event title contains q, ignoring
// case.
func Search(markets []domain.Market, q string) []domain.Market {
	q = strings.ToLower(q)
	return keep(markets, func(m *domain.Market) bool {
		return strings.Contains(strings.ToLower(m.Question), q) ||
			strings.Contains(strings.ToLower(m.EventTitle), q)
	})
}

// BinaryOnly keeps markets with exactly two outcomes.
func BinaryOnly(markets []domain.Market) []domain.Market {
	return keep(markets, func(m *domain.Market) bool { return m.IsBinaryLike })
}

// ExcludeUpOrDown drops markets whose event title mentions "up or down" in
// any case.
func ExcludeUpOrDown(markets []domain.Market) []domain.Market {
	return keep(markets, func(m *domain.Market) bool {
		return !strings.Contains(strings.ToLower(m.EventTitle), "up or down")
	})
}

// PositiveActivity keeps markets with both liquidity and 24h volume above 0.
func PositiveActivity(markets []domain.Market) []domain.Market {
	return keep(markets, func(m *domain.Market) bool {
		return domain.OrZero(m.Liquidity) > 0 && domain.OrZero(m.Volume24h) > 0
	})
}

// DomainOptions lists the distinct non-empty domains in markets, sorted.
func DomainOptions(markets []domain.Market) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range markets {
		d := markets[i].Domain
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
