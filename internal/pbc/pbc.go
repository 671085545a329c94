// Package pbc implements minimum-image displacements in a periodic
// rectangular cell.
package pbc

import (
	"fmt"
	"math"

	"github.com/san-kum/fibrilsim/internal/dynamo"
)

// rows per goroutine below which Distances stays serial
const minRowChunk = 32

// Displacements is indexed [axis][i][j] and holds pos[i]-pos[j] mapped to
// the minimum image.
type Displacements [][][]float64

// CheckCell verifies the cell has dim strictly positive finite lengths.
func CheckCell(cell []float64, dim int) error {
	if len(cell) != dim {
		return fmt.Errorf("%w: cell has %d axes, positions have %d", dynamo.ErrDimensionMismatch, len(cell), dim)
	}
	for a, l := range cell {
		if !(l > 0) || math.IsInf(l, 0) {
			return fmt.Errorf("%w: cell length %g on axis %d", dynamo.ErrParameterBounds, l, a)
		}
	}
	return nil
}

// MinimumImage maps d onto the nearest periodic copy when |d| exceeds half
// the cell length. MinimumImage(-d, l) == -MinimumImage(d, l) exactly.
func MinimumImage(d, length float64) float64 {
	if math.Abs(d) > 0.5*length {
		d -= length * math.Round(d/length)
	}
	return d
}

// Wrap maps x into [0, length).
func Wrap(x, length float64) float64 {
	r := math.Mod(x, length)
	if r < 0 {
		r += length
	}
	if r >= length {
		r = 0
	}
	return r
}

// WrapPositions wraps every coordinate in place.
func WrapPositions(pos dynamo.Positions, cell []float64) {
	for _, row := range pos {
		for a := range row {
			row[a] = Wrap(row[a], cell[a])
		}
	}
}

// Distances computes the per-axis minimum-image displacement matrices.
func Distances(pos dynamo.Positions, cell []float64) (Displacements, error) {
	dim := len(cell)
	if err := CheckCell(cell, dim); err != nil {
		return nil, err
	}
	if err := pos.CheckShape(dim); err != nil {
		return nil, err
	}

	n := len(pos)
	d := make(Displacements, dim)
	for a := range d {
		flat := make([]float64, n*n)
		d[a] = make([][]float64, n)
		for i := range d[a] {
			d[a][i] = flat[i*n : (i+1)*n : (i+1)*n]
		}
	}

	// each worker owns the pairs whose smaller index falls in its rows
	dynamo.ParallelFor(n, minRowChunk, func(start, end int) {
		for i := start; i < end; i++ {
			for j := i + 1; j < n; j++ {
				for a := 0; a < dim; a++ {
					v := MinimumImage(pos[i][a]-pos[j][a], cell[a])
					d[a][i][j] = v
					d[a][j][i] = -v
				}
			}
		}
	})

	return d, nil
}

func (d Displacements) Dim() int { return len(d) }

func (d Displacements) N() int {
	if len(d) == 0 {
		return 0
	}
	return len(d[0])
}

// Vector gathers the displacement from bead j to bead i.
func (d Displacements) Vector(i, j int) []float64 {
	v := make([]float64, len(d))
	for a := range d {
		v[a] = d[a][i][j]
	}
	return v
}

func (d Displacements) R2(i, j int) float64 {
	r2 := 0.0
	for a := range d {
		r2 += d[a][i][j] * d[a][i][j]
	}
	return r2
}

func (d Displacements) R(i, j int) float64 {
	return math.Sqrt(d.R2(i, j))
}

// Distance2 returns the squared minimum-image distance between two free
// points.
func Distance2(p, q, cell []float64) float64 {
	r2 := 0.0
	for a := range cell {
		v := MinimumImage(p[a]-q[a], cell[a])
		r2 += v * v
	}
	return r2
}
