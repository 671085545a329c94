package metrics

import (
	"math"

	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/forcefield"
	"github.com/san-kum/fibrilsim/internal/topology"
)

// Sample is one evaluated configuration.
type Sample struct {
	Positions dynamo.Positions
	Cell      []float64
	Topology  *topology.Topology
	Result    *forcefield.Result
}

// Metric accumulates a scalar over observed samples.
type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Standard returns the metrics recorded with every run.
func Standard() []Metric {
	return []Metric{
		NewPressure(),
		NewBondStrain(),
		NewMinSeparation(),
		NewMaxForce(),
	}
}

// Collect observes s with each metric and returns their values by name.
func Collect(s Sample, ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Observe(s)
		out[m.Name()] = m.Value()
	}
	return out
}

// PressureMetric averages the configurational pressure.
type PressureMetric struct {
	name    string
	sum     float64
	samples int
}

func NewPressure() *PressureMetric {
	return &PressureMetric{name: "pressure"}
}

func (p *PressureMetric) Name() string { return p.name }

func (p *PressureMetric) Observe(s Sample) {
	if s.Result == nil || s.Result.Virial == nil {
		return
	}
	v, err := Pressure(s.Result.Virial, s.Cell)
	if err != nil {
		return
	}
	p.sum += v
	p.samples++
}

func (p *PressureMetric) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.sum / float64(p.samples)
}

func (p *PressureMetric) Reset() {
	p.sum = 0
	p.samples = 0
}

// BondStrain tracks the largest relative deviation of a bond from the mean
// length of the first observed sample.
type BondStrain struct {
	name     string
	ref      float64
	maxDrift float64
	samples  int
}

func NewBondStrain() *BondStrain {
	return &BondStrain{name: "bond_strain"}
}

func (b *BondStrain) Name() string { return b.name }

func (b *BondStrain) Observe(s Sample) {
	if s.Topology == nil {
		return
	}
	rb, err := BondLengths(s.Positions, s.Cell, s.Topology)
	if err != nil || len(rb) == 0 {
		return
	}
	if b.samples == 0 {
		b.ref = Summarize(rb).Mean
	}
	b.samples++
	for _, r := range rb {
		b.maxDrift = math.Max(b.maxDrift, math.Abs(r-b.ref)/b.ref)
	}
}

func (b *BondStrain) Value() float64 { return b.maxDrift }

func (b *BondStrain) Reset() {
	b.ref = 0
	b.maxDrift = 0
	b.samples = 0
}

// MinSeparationMetric keeps the closest approach seen.
type MinSeparationMetric struct {
	name string
	min  float64
}

func NewMinSeparation() *MinSeparationMetric {
	return &MinSeparationMetric{name: "min_separation", min: math.Inf(1)}
}

func (m *MinSeparationMetric) Name() string { return m.name }

func (m *MinSeparationMetric) Observe(s Sample) {
	m.min = math.Min(m.min, MinSeparation(s.Positions, s.Cell))
}

func (m *MinSeparationMetric) Value() float64 {
	if math.IsInf(m.min, 1) {
		return 0
	}
	return m.min
}

func (m *MinSeparationMetric) Reset() { m.min = math.Inf(1) }

type MaxForce struct {
	name string
	max  float64
}

func NewMaxForce() *MaxForce {
	return &MaxForce{name: "max_force"}
}

func (m *MaxForce) Name() string { return m.name }

func (m *MaxForce) Observe(s Sample) {
	if s.Result == nil {
		return
	}
	for _, f := range ForceMagnitudes(s.Result.Forces) {
		m.max = math.Max(m.max, f)
	}
}

func (m *MaxForce) Value() float64 { return m.max }

func (m *MaxForce) Reset() { m.max = 0 }
