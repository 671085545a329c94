package growth

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/geometry"
	"github.com/san-kum/fibrilsim/internal/pbc"
)

type Params struct {
	Cell    []float64
	NFibril int
	LFibril int
	BondR0  float64
	// Theta0 is the preferred i-j-k angle; π grows straight chains.
	Theta0 float64
	// AngleSpread bounds the uniform noise added to the deflection.
	AngleSpread   float64
	MinSeparation float64
	MaxAttempts   int
	MaxRetries    int
}

func ParamsFromConfig(cfg *config.Params) Params {
	return Params{
		Cell:          cfg.Cell(),
		NFibril:       cfg.NFibril(),
		LFibril:       cfg.LFibril,
		BondR0:        cfg.BondR0,
		Theta0:        cfg.AngleTheta0,
		AngleSpread:   cfg.Growth.AngleSpread,
		MinSeparation: cfg.Growth.MinSeparation,
		MaxAttempts:   cfg.Growth.MaxAttempts,
		MaxRetries:    cfg.Growth.MaxRetries,
	}
}

func (p Params) Validate() error {
	dim := len(p.Cell)
	if dim != 2 && dim != 3 {
		return fmt.Errorf("%w: growth needs a 2D or 3D cell, got %d axes", dynamo.ErrDimensionMismatch, dim)
	}
	if err := pbc.CheckCell(p.Cell, dim); err != nil {
		return err
	}
	if p.NFibril < 1 || p.LFibril < 1 {
		return fmt.Errorf("%w: need at least one fibril of one bead, got %d×%d", dynamo.ErrParameterBounds, p.NFibril, p.LFibril)
	}
	if !(p.BondR0 > 0) {
		return fmt.Errorf("%w: bond length %g", dynamo.ErrParameterBounds, p.BondR0)
	}
	if p.MinSeparation < 0 || p.MinSeparation >= p.BondR0 {
		return fmt.Errorf("%w: min separation %g must lie in [0, %g)", dynamo.ErrParameterBounds, p.MinSeparation, p.BondR0)
	}
	for a, l := range p.Cell {
		if l <= 2*p.BondR0 {
			return fmt.Errorf("%w: cell length %g on axis %d not above twice the bond length", dynamo.ErrParameterBounds, l, a)
		}
	}
	if p.MaxAttempts < 1 || p.MaxRetries < 1 {
		return fmt.Errorf("%w: attempts %d and retries %d must be positive", dynamo.ErrParameterBounds, p.MaxAttempts, p.MaxRetries)
	}
	return nil
}

// Stats counts the work done by one growth run.
type Stats struct {
	SeedAttempts   int
	ExtendAttempts int
	Retries        int
}

// NewRand seeds a generator, falling back to the clock for seed 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Grow places every bead of every fibril and returns positions wrapped into
// the cell. Fibril f occupies rows [f*LFibril, (f+1)*LFibril).
func Grow(p Params, rng *rand.Rand) (dynamo.Positions, Stats, error) {
	if err := p.Validate(); err != nil {
		return nil, Stats{}, err
	}

	s := newState(p, rng)
	for f := 0; f < p.NFibril; f++ {
		if err := s.growFibril(f); err != nil {
			return nil, s.stats, err
		}
	}
	return s.pos, s.stats, nil
}

// FromConfig grows fibrils for cfg using its seed.
func FromConfig(cfg *config.Params) (dynamo.Positions, Stats, error) {
	return Grow(ParamsFromConfig(cfg), NewRand(cfg.Seed))
}

// state is the mutable context of one growth run.
type state struct {
	p      Params
	dim    int
	rng    *rand.Rand
	pos    dynamo.Positions
	placed int
	grid   *grid
	minSq  float64
	stats  Stats
}

func newState(p Params, rng *rand.Rand) *state {
	s := &state{
		p:     p,
		dim:   len(p.Cell),
		rng:   rng,
		pos:   dynamo.NewPositions(p.NFibril*p.LFibril, len(p.Cell)),
		minSq: p.MinSeparation * p.MinSeparation,
	}
	if p.MinSeparation > 0 {
		s.grid = newGrid(p.Cell, p.MinSeparation)
	}
	return s
}

func (s *state) growFibril(f int) error {
	mark := s.placed
	failedAt := 0

	for retry := 0; retry < s.p.MaxRetries; retry++ {
		if retry > 0 {
			s.stats.Retries++
		}
		if err := s.seed(f); err != nil {
			return err
		}
		bead, ok := s.extend()
		if ok {
			return nil
		}
		failedAt = bead
		s.rollback(mark)
	}

	return &dynamo.GrowthError{
		Stage:    dynamo.StageExtend,
		Fibril:   f,
		Bead:     failedAt,
		Attempts: s.p.MaxAttempts,
		Retries:  s.p.MaxRetries,
	}
}

func (s *state) seed(f int) error {
	x := make([]float64, s.dim)
	for attempt := 0; attempt < s.p.MaxAttempts; attempt++ {
		s.stats.SeedAttempts++
		for a := range x {
			x[a] = s.rng.Float64() * s.p.Cell[a]
		}
		if s.clear(x) {
			s.place(x)
			return nil
		}
	}
	return &dynamo.GrowthError{Stage: dynamo.StageSeed, Fibril: f, Attempts: s.p.MaxAttempts}
}

// extend adds the remaining beads of the current fibril and reports the
// chain position that exhausted its attempts.
func (s *state) extend() (int, bool) {
	start := s.placed - 1
	x := make([]float64, s.dim)

	for b := 1; b < s.p.LFibril; b++ {
		prev := s.pos[start+b-1]
		ok := false
		for attempt := 0; attempt < s.p.MaxAttempts; attempt++ {
			s.stats.ExtendAttempts++
			var dir []float64
			if b == 1 {
				dir = s.randomDirection()
			} else {
				dir = s.deflect(s.pos[start+b-2], prev)
			}
			for a := range x {
				x[a] = pbc.Wrap(prev[a]+s.p.BondR0*dir[a], s.p.Cell[a])
			}
			if s.clear(x) {
				s.place(x)
				ok = true
				break
			}
		}
		if !ok {
			return b, false
		}
	}
	return 0, true
}

func (s *state) place(x []float64) {
	copy(s.pos[s.placed], x)
	if s.grid != nil {
		s.grid.insert(s.placed, s.pos[s.placed])
	}
	s.placed++
}

func (s *state) rollback(mark int) {
	for i := s.placed - 1; i >= mark; i-- {
		if s.grid != nil {
			s.grid.remove(i, s.pos[i])
		}
		for a := range s.pos[i] {
			s.pos[i][a] = 0
		}
	}
	s.placed = mark
}

// clear reports whether x keeps the minimum separation to every placed bead.
func (s *state) clear(x []float64) bool {
	if s.grid == nil {
		return true
	}
	ok := true
	s.grid.visit(x, func(j int) bool {
		if pbc.Distance2(x, s.pos[j], s.p.Cell) < s.minSq {
			ok = false
		}
		return ok
	})
	return ok
}

func (s *state) randomDirection() []float64 {
	phi := 2 * math.Pi * s.rng.Float64()
	sin, cos := math.Sincos(phi)
	if s.dim == 2 {
		return []float64{cos, sin}
	}
	z := 2*s.rng.Float64() - 1
	r := math.Sqrt(1 - z*z)
	return []float64{r * cos, r * sin, z}
}

// deflect turns the previous bond direction by π - θ0 plus noise, so the
// angle at the previous bead trends toward θ0.
func (s *state) deflect(before, prev []float64) []float64 {
	e := make([]float64, s.dim)
	for a := range e {
		e[a] = pbc.MinimumImage(prev[a]-before[a], s.p.Cell[a])
	}
	e = geometry.UnitVector(e)

	alpha := math.Pi - s.p.Theta0
	if s.p.AngleSpread > 0 {
		alpha += s.p.AngleSpread * (2*s.rng.Float64() - 1)
	}
	sa, ca := math.Sincos(alpha)

	if s.dim == 2 {
		if s.rng.Intn(2) == 1 {
			sa = -sa
		}
		return []float64{ca*e[0] - sa*e[1], sa*e[0] + ca*e[1]}
	}

	e1, e2 := perpendicular(e)
	sp, cp := math.Sincos(2 * math.Pi * s.rng.Float64())
	dir := make([]float64, 3)
	for a := range dir {
		dir[a] = ca*e[a] + sa*(cp*e1[a]+sp*e2[a])
	}
	return dir
}

// perpendicular completes the unit vector e to an orthonormal basis.
func perpendicular(e []float64) (e1, e2 []float64) {
	axis := 0
	for a := 1; a < 3; a++ {
		if math.Abs(e[a]) < math.Abs(e[axis]) {
			axis = a
		}
	}
	t := make([]float64, 3)
	t[axis] = 1
	for a := range t {
		t[a] -= e[axis] * e[a]
	}
	e1 = geometry.UnitVector(t)
	c := geometry.Cross(e, e1)
	return e1, c[:]
}
