package experiment

import (
	"context"
	"sync"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/metrics"
)

// Ensemble grows independent replicas of one parameter set, replica i
// seeded with seedStart+i.
type Ensemble struct {
	cfg       *config.Params
	numRuns   int
	seedStart int64
}

func NewEnsemble(cfg *config.Params, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{cfg: cfg, numRuns: numRuns, seedStart: seedStart}
}

// Run returns results in replica order, or the first replica error.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := e.cfg.Clone()
			cfgCopy.Seed = e.seedStart + int64(idx)

			exp := New(cfgCopy)
			if err := exp.Setup(metrics.Standard()); err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = exp.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Seed of replica i.
func (e *Ensemble) Seed(i int) int64 { return e.seedStart + int64(i) }
