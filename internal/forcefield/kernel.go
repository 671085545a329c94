// Package forcefield evaluates bonded and non-bonded energies, forces and
// the virial tensor of a bead configuration.
//
// Three terms are summed:
//
//   - bonds: k (r - r0)² per bonded pair, with constants chosen by bond code
//   - angles: k (1 + cos θ), or k (cos θ - cos θ0)², per angle triplet
//   - non-bonded: code·LJ(r) - LJ(rc) for every pair with a nonzero vdw
//     code inside the cutoff, bonded or not
//
// Forces are the exact negative gradient of the energy. Each pair and each
// triplet contributes forces that sum to zero. The virial is accumulated as
// Σ F_i ⊗ r_ij and is symmetric for any rotation-invariant potential.
package forcefield

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fibrilsim/internal/compute"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/geometry"
	"github.com/san-kum/fibrilsim/internal/pbc"
	"github.com/san-kum/fibrilsim/internal/topology"
)

type Terms struct {
	Bond  float64 `json:"bond"`
	Angle float64 `json:"angle"`
	Vdw   float64 `json:"vdw"`
}

type Result struct {
	Forces dynamo.Positions
	Energy float64
	Terms  Terms
	// Virial is dim×dim with W[a][b] = Σ F[a] r[b].
	Virial *mat.Dense
}

// Kernel evaluates the force field on a compute backend.
type Kernel struct {
	backend compute.Backend
}

func NewKernel(backend compute.Backend) *Kernel {
	return &Kernel{backend: backend}
}

// Compute runs the default kernel on the active backend.
func Compute(pos dynamo.Positions, cell []float64, top *topology.Topology, p Params) (*Result, error) {
	return NewKernel(compute.GetBackend()).Compute(pos, cell, top, p)
}

func Compute2D(pos dynamo.Positions, cell []float64, top *topology.Topology, p Params) (*Result, error) {
	if len(cell) != 2 {
		return nil, fmt.Errorf("%w: 2D kernel given %d-axis cell", dynamo.ErrDimensionMismatch, len(cell))
	}
	return Compute(pos, cell, top, p)
}

func Compute3D(pos dynamo.Positions, cell []float64, top *topology.Topology, p Params) (*Result, error) {
	if len(cell) != 3 {
		return nil, fmt.Errorf("%w: 3D kernel given %d-axis cell", dynamo.ErrDimensionMismatch, len(cell))
	}
	return Compute(pos, cell, top, p)
}

func (k *Kernel) Compute(pos dynamo.Positions, cell []float64, top *topology.Topology, p Params) (*Result, error) {
	dim := len(cell)
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: unsupported dimension %d", dynamo.ErrDimensionMismatch, dim)
	}
	n := len(pos)
	if err := top.Validate(n); err != nil {
		return nil, err
	}
	if err := p.check(top, n); err != nil {
		return nil, err
	}

	d, err := pbc.Distances(pos, cell)
	if err != nil {
		return nil, err
	}

	rb := make([]float64, len(top.Bonds))
	dynamo.ParallelFor(len(rb), 256, func(start, end int) {
		for b := start; b < end; b++ {
			rb[b] = d.R(top.Bonds[b].I, top.Bonds[b].J)
		}
	})

	bond := k.backend.Reduce(len(top.Bonds), n, dim, func(start, end int, acc *compute.Accumulator) {
		bondTerm(d, top.Bonds[start:end], rb[start:end], p, acc)
	})

	var angle *compute.Accumulator
	if dim == 2 {
		angle = k.backend.Reduce(top.NAngles(), n, dim, func(start, end int, acc *compute.Accumulator) {
			angleTerm2D(d, top, rb, start, end, p, acc)
		})
	} else {
		angle = k.backend.Reduce(top.NAngles(), n, dim, func(start, end int, acc *compute.Accumulator) {
			angleTerm3D(d, top, rb, start, end, p, acc)
		})
	}

	total := compute.NewAccumulator(n, dim)
	total.Merge(bond)
	total.Merge(angle)

	res := &Result{
		Terms: Terms{Bond: bond.Energy, Angle: angle.Energy},
	}

	if p.Vdw != nil {
		vdw := k.backend.Reduce(n, n, dim, func(start, end int, acc *compute.Accumulator) {
			vdwTerm(d, start, end, p, acc)
		})
		total.Merge(vdw)
		res.Terms.Vdw = vdw.Energy
	}

	res.Forces = dynamo.Positions(total.ForceRows())
	res.Energy = total.Energy
	res.Virial = mat.NewDense(dim, dim, total.Virial)
	return res, nil
}

func bondTerm(d pbc.Displacements, bonds []topology.Bond, rb []float64, p Params, acc *compute.Accumulator) {
	dim := d.Dim()
	f := make([]float64, dim)
	r := make([]float64, dim)
	for b, bond := range bonds {
		c := p.Bonds[bond.Code-1]
		dr := rb[b] - c.R0
		acc.Energy += c.K * dr * dr

		// F_i = -dE/dr · r_ij / r
		scale := -2 * c.K * dr / rb[b]
		for a := 0; a < dim; a++ {
			r[a] = d[a][bond.I][bond.J]
			f[a] = scale * r[a]
		}
		acc.AddPair(bond.I, bond.J, f, r)
	}
}

// angleDE returns E and dE/dcos for one angle.
func angleDE(p Params, a int, cos float64) (e, g float64) {
	k := p.angleK(a)
	if p.AngleStyle == CosineSquared {
		dc := cos - p.CosTheta0
		return k * dc * dc, 2 * k * dc
	}
	return k * (1 + cos), k
}

// gather copies the displacement-table entry for one angle half.
func gather(d pbc.Displacements, v topology.Pair, out []float64) {
	for a := range out {
		out[a] = d[a][v.I][v.J]
	}
}

func angleTerm2D(d pbc.Displacements, top *topology.Topology, rb []float64, start, end int, p Params, acc *compute.Accumulator) {
	u := make([]float64, 2)
	v := make([]float64, 2)
	fk := make([]float64, 2)
	fi := make([]float64, 2)
	fj := make([]float64, 2)
	ru := make([]float64, 2)
	rv := make([]float64, 2)

	for a := start; a < end; a++ {
		ang := top.Angles[a]
		ab := top.AngleBonds[a]
		gather(d, ab.Vectors[0], u)
		gather(d, ab.Vectors[1], v)

		th := geometry.CosSinTheta2D(u, v, rb[ab.Bonds[0]], rb[ab.Bonds[1]])
		e, g := angleDE(p, a, th.Cos)
		acc.Energy += e

		du, dv := th.Gradients(u, v)
		for x := 0; x < 2; x++ {
			fk[x] = g * du[x]
			fi[x] = g * dv[x]
			fj[x] = -(fk[x] + fi[x])
			ru[x] = -u[x]
			rv[x] = -v[x]
		}
		acc.AddForce(ang.K, fk)
		acc.AddForce(ang.I, fi)
		acc.AddForce(ang.J, fj)
		acc.AddVirial(fk, ru)
		acc.AddVirial(fi, rv)
	}
}

func angleTerm3D(d pbc.Displacements, top *topology.Topology, rb []float64, start, end int, p Params, acc *compute.Accumulator) {
	u := make([]float64, 3)
	v := make([]float64, 3)
	fk := make([]float64, 3)
	fi := make([]float64, 3)
	fj := make([]float64, 3)
	ru := make([]float64, 3)
	rv := make([]float64, 3)

	for a := start; a < end; a++ {
		ang := top.Angles[a]
		ab := top.AngleBonds[a]
		gather(d, ab.Vectors[0], u)
		gather(d, ab.Vectors[1], v)

		th := geometry.CosSinTheta3D(u, v, rb[ab.Bonds[0]], rb[ab.Bonds[1]])
		e, g := angleDE(p, a, th.Cos)
		acc.Energy += e

		du, dv := th.Gradients(u, v)
		for x := 0; x < 3; x++ {
			fk[x] = g * du[x]
			fi[x] = g * dv[x]
			fj[x] = -(fk[x] + fi[x])
			ru[x] = -u[x]
			rv[x] = -v[x]
		}
		acc.AddForce(ang.K, fk)
		acc.AddForce(ang.I, fi)
		acc.AddForce(ang.J, fj)
		acc.AddVirial(fk, ru)
		acc.AddVirial(fi, rv)
	}
}

func vdwTerm(d pbc.Displacements, start, end int, p Params, acc *compute.Accumulator) {
	dim := d.Dim()
	rc2 := p.Cutoff * p.Cutoff
	shift := p.shift()
	f := make([]float64, dim)
	r := make([]float64, dim)

	for i := start; i < end; i++ {
		for _, nb := range p.Vdw.Neighbors(i) {
			j := nb.Index
			if j <= i {
				continue
			}
			r2 := d.R2(i, j)
			if p.Cutoff > 0 && r2 > rc2 {
				continue
			}
			rij := math.Sqrt(r2)
			e, dedr := p.lj(rij)
			code := float64(nb.Code)
			acc.Energy += code*e - shift

			scale := -code * dedr / rij
			for a := 0; a < dim; a++ {
				r[a] = d[a][i][j]
				f[a] = scale * r[a]
			}
			acc.AddPair(i, j, f, r)
		}
	}
}
