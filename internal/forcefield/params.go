package forcefield

import (
	"fmt"
	"math"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/topology"
)

type AngleStyle string

const (
	// Cosine is k (1 + cos θ), minimal for a straight chain.
	Cosine AngleStyle = config.AngleCosine
	// CosineSquared is k (cos θ - cos θ0)².
	CosineSquared AngleStyle = config.AngleCosineSquared
)

// BondClass holds the harmonic constants for one bond code.
type BondClass struct {
	K  float64
	R0 float64
}

// Params is the immutable view of the force field the kernel reads.
type Params struct {
	// Bonds is indexed by bond code minus one.
	Bonds []BondClass
	// AngleK holds one stiffness per angle, or a single value for all.
	AngleK     []float64
	AngleStyle AngleStyle
	CosTheta0  float64

	Sigma   float64
	Epsilon float64
	// Cutoff of 0 disables truncation and shifting.
	Cutoff float64
	// Vdw gates the non-bonded term; nil switches it off.
	Vdw *topology.Matrix
}

// ParamsFromConfig expands cfg into kernel parameters for top, with one
// stiffness entry per angle.
func ParamsFromConfig(cfg *config.Params, top *topology.Topology, vdw *topology.Matrix) Params {
	nClass := 1
	for _, bc := range cfg.BondClasses {
		if bc.Code > nClass {
			nClass = bc.Code
		}
	}
	for _, b := range top.Bonds {
		if b.Code > nClass {
			nClass = b.Code
		}
	}

	bonds := make([]BondClass, nClass)
	for c := range bonds {
		bonds[c] = BondClass{K: cfg.BondK0, R0: cfg.BondR0}
	}
	for _, bc := range cfg.BondClasses {
		bonds[bc.Code-1] = BondClass{K: bc.K, R0: bc.R0}
	}

	angleK := make([]float64, top.NAngles())
	for a := range angleK {
		angleK[a] = cfg.AngleK0
	}

	return Params{
		Bonds:      bonds,
		AngleK:     angleK,
		AngleStyle: AngleStyle(cfg.AngleStyle),
		CosTheta0:  math.Cos(cfg.AngleTheta0),
		Sigma:      cfg.VdwSigma,
		Epsilon:    cfg.VdwEpsilon,
		Cutoff:     cfg.Cutoff,
		Vdw:        vdw,
	}
}

func (p Params) check(top *topology.Topology, n int) error {
	for b, bond := range top.Bonds {
		if bond.Code < 1 || bond.Code > len(p.Bonds) {
			return &dynamo.IndexError{Kind: "bond class", Entry: b, Index: bond.Code - 1, N: len(p.Bonds)}
		}
	}
	if na := top.NAngles(); na > 0 && len(p.AngleK) != 1 && len(p.AngleK) != na {
		return fmt.Errorf("%w: %d angle stiffness values for %d angles", dynamo.ErrDimensionMismatch, len(p.AngleK), na)
	}
	switch p.AngleStyle {
	case Cosine, CosineSquared:
	default:
		return fmt.Errorf("%w: unknown angle style %q", dynamo.ErrParameterBounds, p.AngleStyle)
	}
	if p.Vdw != nil {
		if p.Vdw.N() != n {
			return fmt.Errorf("%w: vdw matrix is %d×%d for %d beads", dynamo.ErrDimensionMismatch, p.Vdw.N(), p.Vdw.N(), n)
		}
		if !(p.Sigma > 0) {
			return fmt.Errorf("%w: sigma must be positive, got %g", dynamo.ErrParameterBounds, p.Sigma)
		}
	}
	return nil
}

func (p Params) angleK(a int) float64 {
	if len(p.AngleK) == 1 {
		return p.AngleK[0]
	}
	return p.AngleK[a]
}

// lj returns the 12-6 potential and its radial derivative at r.
func (p Params) lj(r float64) (e, dedr float64) {
	sr2 := p.Sigma * p.Sigma / (r * r)
	sr6 := sr2 * sr2 * sr2
	sr12 := sr6 * sr6
	e = 4 * p.Epsilon * (sr12 - sr6)
	dedr = 24 * p.Epsilon * (sr6 - 2*sr12) / r
	return e, dedr
}

func (p Params) shift() float64 {
	if p.Cutoff <= 0 {
		return 0
	}
	e, _ := p.lj(p.Cutoff)
	return e
}
