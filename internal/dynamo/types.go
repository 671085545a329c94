package dynamo

import (
	"fmt"
	"math"
)

// Positions holds one row of coordinates per bead.
type Positions [][]float64

func NewPositions(n, dim int) Positions {
	flat := make([]float64, n*dim)
	p := make(Positions, n)
	for i := range p {
		p[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return p
}

func (p Positions) Clone() Positions {
	c := make(Positions, len(p))
	for i := range p {
		c[i] = append([]float64(nil), p[i]...)
	}
	return c
}

// Dim returns the width of the first row, or 0 for an empty array.
func (p Positions) Dim() int {
	if len(p) == 0 {
		return 0
	}
	return len(p[0])
}

func (p Positions) IsValid() bool {
	for _, row := range p {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// CheckShape verifies every row has exactly dim coordinates.
func (p Positions) CheckShape(dim int) error {
	for i, row := range p {
		if len(row) != dim {
			return fmt.Errorf("%w: bead %d has %d coordinates, want %d", ErrDimensionMismatch, i, len(row), dim)
		}
	}
	return nil
}

// Translate returns a copy shifted by the given vector.
func (p Positions) Translate(shift []float64) Positions {
	c := p.Clone()
	for i := range c {
		for a := range c[i] {
			if a < len(shift) {
				c[i][a] += shift[a]
			}
		}
	}
	return c
}

// Flat returns the coordinates in row-major order.
func (p Positions) Flat() []float64 {
	out := make([]float64, 0, len(p)*p.Dim())
	for _, row := range p {
		out = append(out, row...)
	}
	return out
}
