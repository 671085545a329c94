package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
)

func TestGridSearchMinimisesEnergy(t *testing.T) {
	base := config.DefaultParams()
	base.Seed = 8
	base.Cutoff = 0
	base.Growth.AngleSpread = 0
	base.AngleStyle = config.AngleCosineSquared

	g := NewGridSearch([]string{"angle_theta0"}, [][]float64{{2.0, 2.5, math.Pi}})
	best, val, trials, err := g.Search(context.Background(), base, EnergyMetric)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(trials) != 3 {
		t.Errorf("expected 3 trials, got %d", len(trials))
	}
	if val > 1e-9 {
		t.Errorf("expected a relaxed chain at the best point, got energy %g", val)
	}
	if len(best) != 1 {
		t.Errorf("expected one parameter in best point, got %v", best)
	}
}

func TestGridSearchRecordsFailures(t *testing.T) {
	base := config.DefaultParams()
	base.Seed = 2

	g := NewGridSearch([]string{"min_separation", "angle_k0"}, [][]float64{{0.5, 5}, {1, 2}})
	best, _, trials, err := g.Search(context.Background(), base, "max_force")
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 4 {
		t.Fatalf("expected 4 trials, got %d", len(trials))
	}

	failed := 0
	for _, tr := range trials {
		if tr.Err != nil {
			failed++
			if !errors.Is(tr.Err, dynamo.ErrParameterBounds) {
				t.Errorf("unexpected trial error %v", tr.Err)
			}
		}
	}
	if failed != 2 {
		t.Errorf("expected 2 failed trials, got %d", failed)
	}
	if best["min_separation"] != 0.5 {
		t.Errorf("best point should come from a valid separation, got %v", best)
	}
}

func TestGridSearchErrors(t *testing.T) {
	base := config.DefaultParams()

	if _, _, _, err := NewGridSearch([]string{"nope"}, [][]float64{{1}}).Search(context.Background(), base, EnergyMetric); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected unknown parameter error, got %v", err)
	}
	if _, _, _, err := NewGridSearch([]string{"bond_k0"}, nil).Search(context.Background(), base, EnergyMetric); err == nil {
		t.Error("expected mismatched ranges to fail")
	}
	if _, _, _, err := NewGridSearch([]string{"bond_k0"}, [][]float64{{1}}).Search(context.Background(), base, "nope"); err == nil {
		t.Error("expected unknown metric to fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, _, err := NewGridSearch([]string{"bond_k0"}, [][]float64{{1, 2}}).Search(ctx, base, EnergyMetric); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}
