// Package forecast attaches externally estimated true probabilities to
// markets and derives the edge against the implied probability.
package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// Estimator produces p_true estimates keyed by market id. Markets without an
// entry keep a missing p_true.
type Estimator interface {
	Estimate(ctx context.Context, markets []domain.Market) (map[string]float64, error)
	Name() string
}

// Noop never estimates anything.
type Noop struct{}

// Estimate returns no estimates.
func (Noop) Estimate(context.Context, []domain.Market) (map[string]float64, error) {
	return nil, nil
}

// Name returns the estimator identifier.
func (Noop) Name() string { return "noop" }

// Attach sets p_true and edge = p_true - implied_prob for every market est
// returns a finite estimate for. It returns how many markets were updated.
func Attach(ctx context.Context, markets []domain.Market, est Estimator) (int, error) {
	if est == nil {
		return 0, nil
	}
	estimates, err := est.Estimate(ctx, markets)
	if err != nil {
		return 0, fmt.Errorf("forecast: %s estimate: %w", est.Name(), err)
	}
	if len(estimates) == 0 {
		return 0, nil
	}
	n := 0
	for i := range markets {
		p, ok := estimates[markets[i].ID]
		if !ok || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		markets[i].PTrue = p
		markets[i].Edge = p - markets[i].ImpliedProb
		n++
	}
	return n, nil
}
