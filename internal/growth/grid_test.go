package growth

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/san-kum/fibrilsim/internal/pbc"
)

func TestGridFindsNearbyBeads(t *testing.T) {
	for _, cell := range [][]float64{{10, 7}, {6, 6, 9}, {2.5, 30}} {
		rng := rand.New(rand.NewSource(int64(len(cell))))
		const minSep = 1.2
		g := newGrid(cell, minSep)

		pts := make([][]float64, 200)
		for i := range pts {
			pts[i] = make([]float64, len(cell))
			for a := range cell {
				pts[i][a] = rng.Float64() * cell[a]
			}
			g.insert(i, pts[i])
		}

		for q := 0; q < 50; q++ {
			x := make([]float64, len(cell))
			for a := range cell {
				x[a] = rng.Float64() * cell[a]
			}
			seen := map[int]bool{}
			g.visit(x, func(j int) bool {
				if seen[j] {
					t.Fatalf("cell %v: bead %d visited twice", cell, j)
				}
				seen[j] = true
				return true
			})
			for i, p := range pts {
				if pbc.Distance2(x, p, cell) < minSep*minSep && !seen[i] {
					t.Errorf("cell %v: bead %d within %g of query but not visited", cell, i, minSep)
				}
			}
		}
	}
}

func TestGridRemoveAndStop(t *testing.T) {
	g := newGrid([]float64{8, 8}, 1)
	x := []float64{3.5, 3.5}
	g.insert(0, x)
	g.insert(1, x)
	g.insert(2, []float64{4.2, 3.1})

	var got []int
	g.visit(x, func(j int) bool {
		got = append(got, j)
		return true
	})
	sort.Ints(got)
	if len(got) != 3 {
		t.Fatalf("visited %v, want 3 beads", got)
	}

	g.remove(2, []float64{4.2, 3.1})
	g.remove(1, x)
	calls := 0
	g.visit(x, func(j int) bool {
		calls++
		if j != 0 {
			t.Errorf("visited removed bead %d", j)
		}
		return false
	})
	if calls != 1 {
		t.Errorf("visit kept going after stop: %d calls", calls)
	}
}

func TestOffsets(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{{1, 1}, {2, 2}, {3, 3}, {40, 3}}
	for _, tt := range tests {
		if got := len(offsets(tt.n)); got != tt.want {
			t.Errorf("offsets(%d) has %d shifts, want %d", tt.n, got, tt.want)
		}
	}
}
