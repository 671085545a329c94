// Package topology derives bond, angle and angle-bond index lists from a
// symmetric bond matrix.
//
// Lists are rebuilt from scratch whenever the matrix changes. Build is
// deterministic: the bond list follows a row-major scan of the upper
// triangle and angles are emitted per central bead in ascending order.
package topology

import "github.com/san-kum/fibrilsim/internal/dynamo"

// Pair is an ordered (row, column) entry of the displacement tables.
type Pair struct {
	I, J int
}

// Bond joins beads I < J with a bond class code.
type Bond struct {
	I, J int
	Code int
}

// Angle is the triplet I-J-K with J bonded to both ends and I < K.
type Angle struct {
	I, J, K int
}

// AngleBond locates the two halves of an angle. Half 0 is the J→K bond and
// half 1 is the J→I bond. Bonds holds their positions in the bond list and
// Vectors the displacement-table entries to gather.
type AngleBond struct {
	Bonds   [2]int
	Vectors [2]Pair
}

type Topology struct {
	N          int
	Bonds      []Bond
	Angles     []Angle
	AngleBonds []AngleBond
}

func Build(m *Matrix) (*Topology, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := m.N()
	top := &Topology{N: n}
	neighbors := make([][]int, n)
	bondIndex := make(map[Pair]int)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := m.At(i, j)
			if c == 0 {
				continue
			}
			bondIndex[Pair{i, j}] = len(top.Bonds)
			top.Bonds = append(top.Bonds, Bond{I: i, J: j, Code: c})
			neighbors[i] = append(neighbors[i], j)
			neighbors[j] = append(neighbors[j], i)
		}
	}

	lookup := func(a, b int) int {
		if a > b {
			a, b = b, a
		}
		return bondIndex[Pair{a, b}]
	}

	// row-major scan leaves each neighbor list sorted
	for j := 0; j < n; j++ {
		nb := neighbors[j]
		for a := 0; a < len(nb); a++ {
			for b := a + 1; b < len(nb); b++ {
				i, k := nb[a], nb[b]
				top.Angles = append(top.Angles, Angle{I: i, J: j, K: k})
				top.AngleBonds = append(top.AngleBonds, AngleBond{
					Bonds:   [2]int{lookup(j, k), lookup(j, i)},
					Vectors: [2]Pair{{j, k}, {j, i}},
				})
			}
		}
	}

	return top, nil
}

func (t *Topology) NBonds() int  { return len(t.Bonds) }
func (t *Topology) NAngles() int { return len(t.Angles) }

// Validate checks every index against n beads and the bond list length.
func (t *Topology) Validate(n int) error {
	for b, bond := range t.Bonds {
		for _, idx := range []int{bond.I, bond.J} {
			if idx < 0 || idx >= n {
				return &dynamo.IndexError{Kind: "bond", Entry: b, Index: idx, N: n}
			}
		}
		if bond.I == bond.J {
			return &dynamo.IndexError{Kind: "bond", Entry: b, Index: bond.J, N: n}
		}
	}
	for a, ang := range t.Angles {
		for _, idx := range []int{ang.I, ang.J, ang.K} {
			if idx < 0 || idx >= n {
				return &dynamo.IndexError{Kind: "angle", Entry: a, Index: idx, N: n}
			}
		}
	}
	if len(t.AngleBonds) != len(t.Angles) {
		return &dynamo.IndexError{Kind: "angle bond", Entry: len(t.AngleBonds), Index: len(t.AngleBonds), N: len(t.Angles)}
	}
	for a, ab := range t.AngleBonds {
		for _, b := range ab.Bonds {
			if b < 0 || b >= len(t.Bonds) {
				return &dynamo.IndexError{Kind: "angle bond", Entry: a, Index: b, N: len(t.Bonds)}
			}
		}
		for _, v := range ab.Vectors {
			for _, idx := range []int{v.I, v.J} {
				if idx < 0 || idx >= n {
					return &dynamo.IndexError{Kind: "angle vector", Entry: a, Index: idx, N: n}
				}
			}
		}
	}
	return nil
}
