package growth

import (
	"math"

	"github.com/san-kum/fibrilsim/internal/pbc"
)

// total bins kept below this regardless of cell size
const maxBins = 1 << 18

// grid is a periodic cell list over placed beads. Bins are at least
// minSep wide, so every bead closer than minSep to a query point lies in
// the query bin or one of its direct neighbours.
type grid struct {
	cell  []float64
	nb    []int
	width []float64
	bins  [][]int
}

func newGrid(cell []float64, minSep float64) *grid {
	dim := len(cell)
	capAxis := int(math.Pow(maxBins, 1/float64(dim)))
	g := &grid{
		cell:  cell,
		nb:    make([]int, dim),
		width: make([]float64, dim),
	}
	total := 1
	for a, l := range cell {
		n := int(l / minSep)
		if n < 1 {
			n = 1
		}
		if n > capAxis {
			n = capAxis
		}
		g.nb[a] = n
		g.width[a] = l / float64(n)
		total *= n
	}
	g.bins = make([][]int, total)
	return g
}

func (g *grid) coord(x []float64, a int) int {
	c := int(pbc.Wrap(x[a], g.cell[a]) / g.width[a])
	if c >= g.nb[a] {
		c = g.nb[a] - 1
	}
	return c
}

func (g *grid) index(x []float64) int {
	idx := 0
	for a := range g.cell {
		idx = idx*g.nb[a] + g.coord(x, a)
	}
	return idx
}

func (g *grid) insert(i int, x []float64) {
	k := g.index(x)
	g.bins[k] = append(g.bins[k], i)
}

// remove drops bead i, which must be the most recent insert into its bin.
func (g *grid) remove(i int, x []float64) {
	k := g.index(x)
	bin := g.bins[k]
	if n := len(bin); n > 0 && bin[n-1] == i {
		g.bins[k] = bin[:n-1]
	}
}

// offsets lists the distinct neighbour shifts along an axis of n bins.
func offsets(n int) []int {
	switch {
	case n >= 3:
		return []int{-1, 0, 1}
	case n == 2:
		return []int{0, 1}
	default:
		return []int{0}
	}
}

// visit calls fn for every bead in the bins around x until fn returns false.
func (g *grid) visit(x []float64, fn func(j int) bool) {
	dim := len(g.cell)
	base := make([]int, dim)
	for a := range base {
		base[a] = g.coord(x, a)
	}

	var walk func(a, idx int) bool
	walk = func(a, idx int) bool {
		if a == dim {
			for _, j := range g.bins[idx] {
				if !fn(j) {
					return false
				}
			}
			return true
		}
		for _, o := range offsets(g.nb[a]) {
			c := (base[a] + o + g.nb[a]) % g.nb[a]
			if !walk(a+1, idx*g.nb[a]+c) {
				return false
			}
		}
		return true
	}
	walk(0, 0)
}
