// Package ranking orders filtered markets by a named sort key.
package ranking

import (
	"fmt"
	"math"
	"slices"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// Sort keys. Each has a fixed direction.
const (
	ByScreener  = "screener_score"
	ByQuality   = "quality_score"
	ByAlpha     = "alpha_score"
	ByLiquidity = "liquidity_num"
	ByVolume24h = "volume_24h"
	BySpread    = "spread"
	ByTime      = "time_to_resolution_days"
)

// Default is the key used when none is given.
const Default = ByScreener

type sortKey struct {
	name       string
	value      func(*domain.Market) float64
	descending bool
}

var sortKeys = []sortKey{
	{ByScreener, func(m *domain.Market) float64 { return m.ScreenerScore }, true},
	{ByQuality, func(m *domain.Market) float64 { return m.QualityScore }, true},
	{ByAlpha, func(m *domain.Market) float64 { return m.AlphaScore }, true},
	{ByLiquidity, func(m *domain.Market) float64 { return m.Liquidity }, true},
	{ByVolume24h, func(m *domain.Market) float64 { return m.Volume24h }, true},
	{BySpread, func(m *domain.Market) float64 { return m.Spread }, false},
	{ByTime, func(m *domain.Market) float64 { return m.TimeToResolutionDays }, false},
}

// Keys lists the accepted sort keys.
func Keys() []string {
	out := make([]string, len(sortKeys))
	for i, k := range sortKeys {
		out[i] = k.name
	}
	return out
}

// Descending reports the direction of a known key.
func Descending(key string) (bool, error) {
	k, err := lookup(key)
	if err != nil {
		return false, err
	}
	return k.descending, nil
}

func lookup(key string) (sortKey, error) {
	if key == "" {
		key = Default
	}
	for _, k := range sortKeys {
		if k.name == key {
			return k, nil
		}
	}
	return sortKey{}, fmt.Errorf("ranking: unknown sort key %q: %w", key, domain.ErrInvalidConfig)
}

// Sort orders markets in place by key. The sort is stable, and rows with a
// missing value always come last whatever the direction. An empty key means
// Default.
func Sort(markets []domain.Market, key string) error {
	k, err := lookup(key)
	if err != nil {
		return err
	}
	slices.SortStableFunc(markets, func(a, b domain.Market) int {
		va, vb := k.value(&a), k.value(&b)
		na, nb := math.IsNaN(va), math.IsNaN(vb)
		switch {
		case na && nb:
			return 0
		case na:
			return 1
		case nb:
			return -1
		}
		if k.descending {
			va, vb = vb, va
		}
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return 0
		}
	})
	return nil
}
