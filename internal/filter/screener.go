package filter

import (
	"fmt"
	"math"
	"regexp"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// ScreenerConfig toggles the screener predicates applied on top of the
// global chain. Thresholds are inclusive.
type ScreenerConfig struct {
	ExcludeSportsCrypto bool
	ActiveOnly          bool
	LiquidityBand       bool
	Liquidity           Range
	SpreadCap           bool
	MaxSpread           float64
	MinVolume           bool
	MinVolume24h        float64
	TimeWindow          bool
	Time                Range
}

// DefaultScreenerConfig enables every screener predicate with its stock
// thresholds.
func DefaultScreenerConfig() ScreenerConfig {
	return ScreenerConfig{
		ExcludeSportsCrypto: true,
		ActiveOnly:          true,
		LiquidityBand:       true,
		Liquidity:           Range{200, 5000},
		SpreadCap:           true,
		MaxSpread:           0.12,
		MinVolume:           true,
		MinVolume24h:        20,
		TimeWindow:          true,
		Time:                Range{2, 120},
	}
}

// Validate checks the enabled thresholds.
func (c ScreenerConfig) Validate() error {
	if c.LiquidityBand {
		if err := c.Liquidity.validate("screener liquidity"); err != nil {
			return err
		}
	}
	if c.TimeWindow {
		if err := c.Time.validate("screener time"); err != nil {
			return err
		}
	}
	if c.SpreadCap {
		if err := (Range{0, c.MaxSpread}).validate("screener spread"); err != nil {
			return err
		}
	}
	if c.MinVolume && math.IsNaN(c.MinVolume24h) {
		return fmt.Errorf("filter: screener volume threshold is NaN: %w", domain.ErrInvalidConfig)
	}
	return nil
}

var (
	reSportsDomain = regexp.MustCompile(`(?i)\bSports\b`)
	reCryptoDomain = regexp.MustCompile(`(?i)\bCrypto\b`)
)

// Screen applies the enabled screener predicates in order and returns the
// survivors. Missing time to resolution never passes the time window.
func Screen(markets []domain.Market, c ScreenerConfig) ([]domain.Market, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	work := markets
	if c.ExcludeSportsCrypto && len(work) > 0 {
		work = keep(work, func(m *domain.Market) bool {
			return !reSportsDomain.MatchString(m.Domain) && !reCryptoDomain.MatchString(m.Domain)
		})
	}
	if c.ActiveOnly && len(work) > 0 {
		work = TradeableOnly(work)
	}
	if c.LiquidityBand && len(work) > 0 {
		work = LiquidityIn(work, c.Liquidity)
	}
	if c.SpreadCap && len(work) > 0 {
		work = keep(work, func(m *domain.Market) bool {
			return math.Max(domain.Or(m.Spread, 1.0), 0) <= c.MaxSpread
		})
	}
	if c.MinVolume && len(work) > 0 {
		work = keep(work, func(m *domain.Market) bool { return domain.OrZero(m.Volume24h) >= c.MinVolume24h })
	}
	if c.TimeWindow && len(work) > 0 {
		work = keep(work, func(m *domain.Market) bool {
			return !math.IsNaN(m.TimeToResolutionDays) && c.Time.Contains(m.TimeToResolutionDays)
		})
	}
	return work, nil
}
