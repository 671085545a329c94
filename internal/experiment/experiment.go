package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/fibrilsim/internal/compute"
	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/forcefield"
	"github.com/san-kum/fibrilsim/internal/growth"
	"github.com/san-kum/fibrilsim/internal/metrics"
	"github.com/san-kum/fibrilsim/internal/topology"
)

// Result is one grown and evaluated fibril system.
type Result struct {
	Positions dynamo.Positions
	Cell      []float64
	Topology  *topology.Topology
	Force     *forcefield.Result
	Growth    growth.Stats
	Metrics   map[string]float64
}

type Experiment struct {
	cfg        *config.Params
	randSource *rand.Rand
	kernel     *forcefield.Kernel
	metrics    []metrics.Metric

	top *topology.Topology
	ff  forcefield.Params
}

func New(cfg *config.Params) *Experiment {
	return &Experiment{
		cfg:        cfg,
		randSource: growth.NewRand(cfg.Seed),
		kernel:     forcefield.NewKernel(compute.GetBackend()),
	}
}

// WithKernel replaces the default kernel, which runs on the active backend.
func (e *Experiment) WithKernel(k *forcefield.Kernel) *Experiment {
	e.kernel = k
	return e
}

// Setup validates the parameters and builds the bonded topology and
// force-field tables shared by Run and Evaluate.
func (e *Experiment) Setup(ms []metrics.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	top, err := topology.Build(topology.Chain(e.cfg.NFibril(), e.cfg.LFibril, 1))
	if err != nil {
		return err
	}

	e.top = top
	e.ff = forcefield.ParamsFromConfig(e.cfg, top, e.vdwMatrix())
	e.metrics = ms
	return nil
}

func (e *Experiment) vdwMatrix() *topology.Matrix {
	if e.cfg.Cutoff == 0 || (e.cfg.VdwCode == 0 && e.cfg.VdwBondedCode == 0) {
		return nil
	}
	return topology.ChainVdw(e.cfg.NFibril(), e.cfg.LFibril, e.cfg.VdwBondedCode, e.cfg.VdwCode)
}

// Run grows the fibrils and evaluates the force field on the result.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.top == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	pos, stats, err := growth.Grow(growth.ParamsFromConfig(e.cfg), e.randSource)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := e.Evaluate(pos)
	if err != nil {
		return nil, err
	}
	res.Growth = stats
	return res, nil
}

// Evaluate computes forces and metrics for an existing configuration.
func (e *Experiment) Evaluate(pos dynamo.Positions) (*Result, error) {
	if e.top == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if len(pos) != e.top.N {
		return nil, fmt.Errorf("%w: %d positions for %d beads", dynamo.ErrDimensionMismatch, len(pos), e.top.N)
	}

	cell := e.cfg.Cell()
	force, err := e.kernel.Compute(pos, cell, e.top, e.ff)
	if err != nil {
		return nil, err
	}

	for _, m := range e.metrics {
		m.Reset()
	}
	sample := metrics.Sample{Positions: pos, Cell: cell, Topology: e.top, Result: force}

	return &Result{
		Positions: pos,
		Cell:      cell,
		Topology:  e.top,
		Force:     force,
		Metrics:   metrics.Collect(sample, e.metrics),
	}, nil
}
