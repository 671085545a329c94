package topology

import (
	"fmt"

	"github.com/san-kum/fibrilsim/internal/dynamo"
)

// Matrix is a dense N×N table of interaction codes. Code 0 means no
// interaction. It backs both the bond matrix and the van-der-Waals matrix.
type Matrix struct {
	n     int
	codes []int
}

// Neighbor is one nonzero entry of a matrix row.
type Neighbor struct {
	Index int
	Code  int
}

func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, codes: make([]int, n*n)}
}

// FromRows copies rows verbatim. It does not symmetrize, so Validate can
// report what the caller actually supplied.
func FromRows(rows [][]int) (*Matrix, error) {
	n := len(rows)
	m := NewMatrix(n)
	for i, row := range rows {
		if len(row) != n {
			return nil, &dynamo.TopologyError{I: i, J: len(row), Reason: fmt.Sprintf("row has %d columns in a %d-row matrix", len(row), n)}
		}
		copy(m.codes[i*n:(i+1)*n], row)
	}
	return m, nil
}

func (m *Matrix) N() int { return m.n }

func (m *Matrix) At(i, j int) int {
	return m.codes[i*m.n+j]
}

// Set writes code to (i, j) and (j, i).
func (m *Matrix) Set(i, j, code int) {
	m.codes[i*m.n+j] = code
	m.codes[j*m.n+i] = code
}

// Validate checks symmetry, a zero diagonal and non-negative codes.
func (m *Matrix) Validate() error {
	for i := 0; i < m.n; i++ {
		if c := m.At(i, i); c != 0 {
			return &dynamo.TopologyError{I: i, J: i, Reason: fmt.Sprintf("nonzero diagonal code %d", c)}
		}
		for j := i + 1; j < m.n; j++ {
			c := m.At(i, j)
			if c != m.At(j, i) {
				return &dynamo.TopologyError{I: i, J: j, Reason: fmt.Sprintf("asymmetric codes %d and %d", c, m.At(j, i))}
			}
			if c < 0 {
				return &dynamo.TopologyError{I: i, J: j, Reason: fmt.Sprintf("negative code %d", c)}
			}
		}
	}
	return nil
}

// Neighbors lists the nonzero entries of row i in ascending column order.
func (m *Matrix) Neighbors(i int) []Neighbor {
	var out []Neighbor
	row := m.codes[i*m.n : (i+1)*m.n]
	for j, c := range row {
		if c != 0 {
			out = append(out, Neighbor{Index: j, Code: c})
		}
	}
	return out
}

// Rows returns a copy of the matrix as nested slices.
func (m *Matrix) Rows() [][]int {
	rows := make([][]int, m.n)
	for i := range rows {
		rows[i] = append([]int(nil), m.codes[i*m.n:(i+1)*m.n]...)
	}
	return rows
}

// MaxCode returns the largest code present.
func (m *Matrix) MaxCode() int {
	hi := 0
	for _, c := range m.codes {
		if c > hi {
			hi = c
		}
	}
	return hi
}

// Chain builds the bond matrix of nFibril independent linear fibrils of
// lFibril beads each. Fibril f owns beads [f*lFibril, (f+1)*lFibril).
func Chain(nFibril, lFibril, code int) *Matrix {
	m := NewMatrix(nFibril * lFibril)
	for f := 0; f < nFibril; f++ {
		base := f * lFibril
		for b := 0; b < lFibril-1; b++ {
			m.Set(base+b, base+b+1, code)
		}
	}
	return m
}

// ChainVdw builds the non-bonded matrix matching Chain: every distinct pair
// gets code, and pairs bonded along a fibril get bondedCode.
func ChainVdw(nFibril, lFibril, bondedCode, code int) *Matrix {
	n := nFibril * lFibril
	m := NewMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := code
			if j == i+1 && i/lFibril == j/lFibril {
				c = bondedCode
			}
			m.Set(i, j, c)
		}
	}
	return m
}
