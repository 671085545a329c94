package compute

// Accumulator collects forces, potential energy and the virial for one
// worker. Forces and Virial are stored row-major.
type Accumulator struct {
	N      int
	Dim    int
	Forces []float64
	Energy float64
	Virial []float64
}

func NewAccumulator(n, dim int) *Accumulator {
	return &Accumulator{
		N:      n,
		Dim:    dim,
		Forces: make([]float64, n*dim),
		Virial: make([]float64, dim*dim),
	}
}

// AddPair applies f to bead i and -f to bead j, and adds f ⊗ r to the
// virial, where r is the displacement from j to i.
func (a *Accumulator) AddPair(i, j int, f, r []float64) {
	fi := a.Forces[i*a.Dim : (i+1)*a.Dim]
	fj := a.Forces[j*a.Dim : (j+1)*a.Dim]
	for x := 0; x < a.Dim; x++ {
		fi[x] += f[x]
		fj[x] -= f[x]
	}
	a.AddVirial(f, r)
}

// AddForce adds f to bead i without touching the virial.
func (a *Accumulator) AddForce(i int, f []float64) {
	fi := a.Forces[i*a.Dim : (i+1)*a.Dim]
	for x := 0; x < a.Dim; x++ {
		fi[x] += f[x]
	}
}

// AddVirial adds the outer product f ⊗ r.
func (a *Accumulator) AddVirial(f, r []float64) {
	for x := 0; x < a.Dim; x++ {
		for y := 0; y < a.Dim; y++ {
			a.Virial[x*a.Dim+y] += f[x] * r[y]
		}
	}
}

func (a *Accumulator) Merge(other *Accumulator) {
	for i, v := range other.Forces {
		a.Forces[i] += v
	}
	for i, v := range other.Virial {
		a.Virial[i] += v
	}
	a.Energy += other.Energy
}

// ForceRows returns the forces as one row per bead, sharing storage.
func (a *Accumulator) ForceRows() [][]float64 {
	rows := make([][]float64, a.N)
	for i := range rows {
		rows[i] = a.Forces[i*a.Dim : (i+1)*a.Dim : (i+1)*a.Dim]
	}
	return rows
}
