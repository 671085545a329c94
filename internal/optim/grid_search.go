package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/experiment"
	"github.com/san-kum/fibrilsim/internal/metrics"
)

// EnergyMetric names the total energy in sweep objectives.
const EnergyMetric = "energy"

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search grows and evaluates base with every combination of the grid and
// returns the point minimising metricName together with every trial.
// Points whose parameters fail validation or growth are recorded with
// their error and skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Params, metricName string) (map[string]float64, float64, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("%d parameters with %d ranges", len(g.paramNames), len(g.ranges))
	}
	for _, name := range g.paramNames {
		if err := base.Clone().Set(name, 0); err != nil {
			return nil, 0, nil, err
		}
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(current map[string]float64) {
		val, err := evaluate(ctx, base, current, metricName)
		trials = append(trials, Trial{Params: current, Value: val, Err: err})
		if err == nil && val < best {
			best = val
			bestParams = current
		}
	})
	if err != nil {
		return nil, 0, trials, err
	}
	if bestParams == nil {
		return nil, 0, trials, fmt.Errorf("no grid point succeeded")
	}
	return bestParams, best, trials, nil
}

func evaluate(ctx context.Context, base *config.Params, point map[string]float64, metricName string) (float64, error) {
	cfg := base.Clone()
	for name, v := range point {
		if err := cfg.Set(name, v); err != nil {
			return 0, err
		}
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(metrics.Standard()); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}

	if metricName == EnergyMetric {
		return result.Force.Energy, nil
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", metricName)
	}
	return val, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
