package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fibrilsim/internal/compute"
	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/forcefield"
	"github.com/san-kum/fibrilsim/internal/metrics"
)

func TestRunBundle(t *testing.T) {
	cfg := config.GetPreset("bundle")
	cfg.Seed = 7

	exp := New(cfg)
	if err := exp.Setup(metrics.Standard()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Positions) != cfg.NBead() {
		t.Errorf("expected %d beads, got %d", cfg.NBead(), len(res.Positions))
	}
	if want := cfg.NFibril() * (cfg.LFibril - 1); res.Topology.NBonds() != want {
		t.Errorf("expected %d bonds, got %d", want, res.Topology.NBonds())
	}
	if want := cfg.NFibril() * (cfg.LFibril - 2); res.Topology.NAngles() != want {
		t.Errorf("expected %d angles, got %d", want, res.Topology.NAngles())
	}
	if math.IsNaN(res.Force.Energy) {
		t.Error("energy is NaN")
	}
	if res.Metrics["min_separation"] < cfg.Growth.MinSeparation {
		t.Errorf("beads closer than %f: %f", cfg.Growth.MinSeparation, res.Metrics["min_separation"])
	}
	if res.Growth.SeedAttempts < cfg.NFibril() {
		t.Errorf("expected at least %d seed attempts, got %d", cfg.NFibril(), res.Growth.SeedAttempts)
	}
}

func TestRunReproducible(t *testing.T) {
	cfg := config.DefaultParams()
	cfg.Seed = 99

	run := func() *Result {
		exp := New(cfg)
		if err := exp.Setup(nil); err != nil {
			t.Fatal(err)
		}
		res, err := exp.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	a, b := run(), run()
	if a.Force.Energy != b.Force.Energy {
		t.Errorf("same seed gave energies %f and %f", a.Force.Energy, b.Force.Energy)
	}
}

func TestEvaluateMatchesRun(t *testing.T) {
	cfg := config.GetPreset("3d")
	cfg.Seed = 3

	exp := New(cfg).WithKernel(forcefield.NewKernel(compute.NewCPUBackendWorkers(1)))
	if err := exp.Setup(metrics.Standard()); err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	again, err := exp.Evaluate(res.Positions.Clone())
	if err != nil {
		t.Fatal(err)
	}
	if again.Force.Energy != res.Force.Energy {
		t.Errorf("expected energy %f, got %f", res.Force.Energy, again.Force.Energy)
	}
	if again.Metrics["pressure"] != res.Metrics["pressure"] {
		t.Errorf("expected pressure %f, got %f", res.Metrics["pressure"], again.Metrics["pressure"])
	}
}

func TestExperimentErrors(t *testing.T) {
	cfg := config.DefaultParams()
	exp := New(cfg)

	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}

	if err := exp.Setup(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Evaluate(dynamo.NewPositions(3, 2)); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exp.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}

	bad := config.DefaultParams()
	bad.LFibril = 0
	if err := New(bad).Setup(nil); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected parameter error, got %v", err)
	}
}

func TestEnsemble(t *testing.T) {
	cfg := config.DefaultParams()
	ens := NewEnsemble(cfg, 4, 100)

	results, err := ens.Run(context.Background())
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 replicas, got %d", len(results))
	}

	single := New(func() *config.Params { c := cfg.Clone(); c.Seed = ens.Seed(2); return c }())
	if err := single.Setup(nil); err != nil {
		t.Fatal(err)
	}
	want, err := single.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := range want.Positions {
		for a := range want.Positions[i] {
			if results[2].Positions[i][a] != want.Positions[i][a] {
				t.Fatalf("replica 2 differs from a serial run with seed %d", ens.Seed(2))
			}
		}
	}

	if cfg.Seed != 0 {
		t.Errorf("ensemble modified the shared params: seed %d", cfg.Seed)
	}
}

func TestEnsembleError(t *testing.T) {
	cfg := config.DefaultParams()
	cfg.LFibril = 0
	if _, err := NewEnsemble(cfg, 2, 1).Run(context.Background()); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected parameter error, got %v", err)
	}
}
