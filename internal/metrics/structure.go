package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/geometry"
	"github.com/san-kum/fibrilsim/internal/pbc"
	"github.com/san-kum/fibrilsim/internal/topology"
)

// Summary describes a sample of lengths, angles or magnitudes.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize returns the zero Summary for an empty sample.
func Summarize(x []float64) Summary {
	if len(x) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(x), Min: floats.Min(x), Max: floats.Max(x)}
	if len(x) == 1 {
		s.Mean = x[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	return s
}

func Volume(cell []float64) float64 {
	return floats.Prod(cell)
}

// Stress is the virial divided by the cell volume.
func Stress(virial *mat.Dense, cell []float64) (*mat.Dense, error) {
	r, c := virial.Dims()
	if r != len(cell) || c != len(cell) {
		return nil, fmt.Errorf("%w: virial is %dx%d for a %d-axis cell", dynamo.ErrDimensionMismatch, r, c, len(cell))
	}
	if err := pbc.CheckCell(cell, len(cell)); err != nil {
		return nil, err
	}
	var s mat.Dense
	s.Scale(1/Volume(cell), virial)
	return &s, nil
}

// Pressure is the configurational pressure tr(W)/(dim·V).
func Pressure(virial *mat.Dense, cell []float64) (float64, error) {
	s, err := Stress(virial, cell)
	if err != nil {
		return 0, err
	}
	return mat.Trace(s) / float64(len(cell)), nil
}

// BondLengths returns the minimum-image length of every bond.
func BondLengths(pos dynamo.Positions, cell []float64, top *topology.Topology) ([]float64, error) {
	if err := top.Validate(len(pos)); err != nil {
		return nil, err
	}
	out := make([]float64, len(top.Bonds))
	for b, bond := range top.Bonds {
		out[b] = math.Sqrt(pbc.Distance2(pos[bond.I], pos[bond.J], cell))
	}
	return out, nil
}

func BondStats(pos dynamo.Positions, cell []float64, top *topology.Topology) (Summary, error) {
	rb, err := BondLengths(pos, cell, top)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rb), nil
}

// Angles returns every i-j-k angle in [0, π], measured between
// p_j - p_k and p_j - p_i.
func Angles(pos dynamo.Positions, cell []float64, top *topology.Topology) ([]float64, error) {
	if err := top.Validate(len(pos)); err != nil {
		return nil, err
	}
	dim := len(cell)
	u := make([]float64, dim)
	v := make([]float64, dim)
	out := make([]float64, len(top.Angles))
	for n, a := range top.Angles {
		for ax := 0; ax < dim; ax++ {
			u[ax] = pbc.MinimumImage(pos[a.J][ax]-pos[a.K][ax], cell[ax])
			v[ax] = pbc.MinimumImage(pos[a.J][ax]-pos[a.I][ax], cell[ax])
		}
		ru, rv := geometry.Norm(u), geometry.Norm(v)
		if dim == 2 {
			out[n] = math.Abs(geometry.CosSinTheta2D(u, v, ru, rv).Angle())
		} else {
			out[n] = geometry.CosSinTheta3D(u, v, ru, rv).Angle()
		}
	}
	return out, nil
}

func AngleStats(pos dynamo.Positions, cell []float64, top *topology.Topology) (Summary, error) {
	th, err := Angles(pos, cell, top)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(th), nil
}

// MinSeparation is the smallest minimum-image distance between any two
// beads, or +Inf with fewer than two beads.
func MinSeparation(pos dynamo.Positions, cell []float64) float64 {
	min2 := math.Inf(1)
	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			if r2 := pbc.Distance2(pos[i], pos[j], cell); r2 < min2 {
				min2 = r2
			}
		}
	}
	return math.Sqrt(min2)
}

func ForceMagnitudes(forces dynamo.Positions) []float64 {
	out := make([]float64, len(forces))
	for i, f := range forces {
		out[i] = floats.Norm(f, 2)
	}
	return out
}
