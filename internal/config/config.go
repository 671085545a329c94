package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fibrilsim/internal/dynamo"
)

const (
	DefaultNDim        = 2
	DefaultLFibril     = 10
	DefaultSigma       = 1.0
	DefaultEpsilon     = 1.0
	DefaultCutoff      = 3.0
	DefaultBondK0      = 1.0
	DefaultAngleK0     = 1.0
	DefaultVdwCode     = 1
	DefaultBondedCode  = 8
	DefaultMinSep      = 1.0
	DefaultMaxAttempts = 100
	DefaultMaxRetries  = 10
	DefaultAngleSpread = math.Pi / 4
)

// DefaultBondR0 is the Lennard-Jones minimum, 2^(1/6) σ.
var DefaultBondR0 = math.Pow(2, 1.0/6.0)

const (
	AngleCosine        = "cosine"
	AngleCosineSquared = "cosine_squared"
)

type Params struct {
	NDim     int       `yaml:"n_dim" toml:"n_dim"`
	CellDim  []float64 `yaml:"cell_dim,omitempty" toml:"cell_dim,omitempty"`
	NFibrilX int       `yaml:"n_fibril_x" toml:"n_fibril_x"`
	NFibrilY int       `yaml:"n_fibril_y" toml:"n_fibril_y"`
	NFibrilZ int       `yaml:"n_fibril_z" toml:"n_fibril_z"`
	LFibril  int       `yaml:"l_fibril" toml:"l_fibril"`
	Seed     int64     `yaml:"seed" toml:"seed"`

	VdwSigma      float64 `yaml:"vdw_sigma" toml:"vdw_sigma"`
	VdwEpsilon    float64 `yaml:"vdw_epsilon" toml:"vdw_epsilon"`
	Cutoff        float64 `yaml:"rc" toml:"rc"`
	VdwCode       int     `yaml:"vdw_code" toml:"vdw_code"`
	VdwBondedCode int     `yaml:"vdw_bonded_code" toml:"vdw_bonded_code"`

	BondK0      float64     `yaml:"bond_k0" toml:"bond_k0"`
	BondR0      float64     `yaml:"bond_r0" toml:"bond_r0"`
	BondClasses []BondClass `yaml:"bond_classes,omitempty" toml:"bond_classes,omitempty"`

	AngleK0     float64 `yaml:"angle_k0" toml:"angle_k0"`
	AngleTheta0 float64 `yaml:"angle_theta0" toml:"angle_theta0"`
	AngleStyle  string  `yaml:"angle_style" toml:"angle_style"`

	Growth GrowthParams `yaml:"growth" toml:"growth"`
}

// BondClass overrides the stiffness and rest length of bond code Code.
type BondClass struct {
	Code int     `yaml:"code" toml:"code"`
	K    float64 `yaml:"k" toml:"k"`
	R0   float64 `yaml:"r0" toml:"r0"`
}

type GrowthParams struct {
	MinSeparation float64 `yaml:"min_separation" toml:"min_separation"`
	MaxAttempts   int     `yaml:"max_attempts" toml:"max_attempts"`
	MaxRetries    int     `yaml:"max_retries" toml:"max_retries"`
	AngleSpread   float64 `yaml:"angle_spread" toml:"angle_spread"`
}

func DefaultParams() *Params {
	return &Params{
		NDim:          DefaultNDim,
		NFibrilX:      1,
		NFibrilY:      1,
		NFibrilZ:      1,
		LFibril:       DefaultLFibril,
		VdwSigma:      DefaultSigma,
		VdwEpsilon:    DefaultEpsilon,
		Cutoff:        DefaultCutoff,
		VdwCode:       DefaultVdwCode,
		VdwBondedCode: DefaultBondedCode,
		BondK0:        DefaultBondK0,
		BondR0:        DefaultBondR0,
		AngleK0:       DefaultAngleK0,
		AngleTheta0:   math.Pi,
		AngleStyle:    AngleCosine,
		Growth: GrowthParams{
			MinSeparation: DefaultMinSep,
			MaxAttempts:   DefaultMaxAttempts,
			MaxRetries:    DefaultMaxRetries,
			AngleSpread:   DefaultAngleSpread,
		},
	}
}

func (p *Params) Clone() *Params {
	c := *p
	c.CellDim = append([]float64(nil), p.CellDim...)
	c.BondClasses = append([]BondClass(nil), p.BondClasses...)
	return &c
}

func (p *Params) NFibril() int {
	n := p.NFibrilX * p.NFibrilY
	if p.NDim == 3 {
		n *= p.NFibrilZ
	}
	return n
}

func (p *Params) NBead() int {
	return p.NFibril() * p.LFibril
}

// Cell returns CellDim, or a cell sized so every fibril of the lattice has
// a block of side l_fibril*r0 + 2*rc when CellDim is unset.
func (p *Params) Cell() []float64 {
	if len(p.CellDim) == p.NDim {
		return append([]float64(nil), p.CellDim...)
	}
	side := float64(p.LFibril)*p.BondR0 + 2*p.Cutoff
	counts := []int{p.NFibrilX, p.NFibrilY, p.NFibrilZ}
	cell := make([]float64, p.NDim)
	for a := range cell {
		cell[a] = float64(counts[a]) * side
	}
	return cell
}

func (p *Params) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{dynamo.ErrParameterBounds}, args...)...)
	}

	if p.NDim != 2 && p.NDim != 3 {
		return bad("n_dim must be 2 or 3, got %d", p.NDim)
	}
	if p.NFibrilX < 1 || p.NFibrilY < 1 || (p.NDim == 3 && p.NFibrilZ < 1) {
		return bad("fibril counts must be positive, got %dx%dx%d", p.NFibrilX, p.NFibrilY, p.NFibrilZ)
	}
	if p.LFibril < 1 {
		return bad("l_fibril must be positive, got %d", p.LFibril)
	}
	if len(p.CellDim) != 0 && len(p.CellDim) != p.NDim {
		return fmt.Errorf("%w: cell_dim has %d entries for n_dim %d", dynamo.ErrDimensionMismatch, len(p.CellDim), p.NDim)
	}
	for a, l := range p.CellDim {
		if !(l > 0) {
			return bad("cell_dim[%d] must be positive, got %g", a, l)
		}
	}
	if !(p.BondR0 > 0) || p.BondK0 < 0 {
		return bad("bond_r0 must be positive and bond_k0 non-negative")
	}
	for _, bc := range p.BondClasses {
		if bc.Code < 1 || !(bc.R0 > 0) || bc.K < 0 {
			return bad("invalid bond class %+v", bc)
		}
	}
	if p.AngleK0 < 0 {
		return bad("angle_k0 must be non-negative, got %g", p.AngleK0)
	}
	if p.AngleStyle != AngleCosine && p.AngleStyle != AngleCosineSquared {
		return bad("unknown angle_style %q", p.AngleStyle)
	}
	if p.AngleTheta0 < 0 || p.AngleTheta0 > math.Pi {
		return bad("angle_theta0 must lie in [0, pi], got %g", p.AngleTheta0)
	}
	if !(p.VdwSigma > 0) || p.VdwEpsilon < 0 || p.Cutoff < 0 {
		return bad("vdw_sigma must be positive, vdw_epsilon and rc non-negative")
	}
	if p.VdwCode < 0 || p.VdwBondedCode < 0 {
		return bad("vdw codes must be non-negative")
	}
	g := p.Growth
	if g.MinSeparation < 0 || g.MinSeparation >= p.BondR0 {
		return bad("min_separation must lie in [0, bond_r0), got %g", g.MinSeparation)
	}
	if g.MaxAttempts < 1 || g.MaxRetries < 1 {
		return bad("max_attempts and max_retries must be positive")
	}
	if g.AngleSpread < 0 || g.AngleSpread > math.Pi {
		return bad("angle_spread must lie in [0, pi], got %g", g.AngleSpread)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load overlays a YAML or TOML file, chosen by extension, onto the defaults.
func Load(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := DefaultParams()
	if isTOML(path) {
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(p)
	} else {
		err = yaml.Unmarshal(data, p)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func Save(path string, p *Params) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(*p)
	} else {
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// UpdateFile loads path, applies fn, validates and writes the result back.
func UpdateFile(path string, fn func(*Params)) (*Params, error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	fn(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := Save(path, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CheckFileName strips a trailing extension and _fileType suffix, so
// "run_param.yaml", "run_param" and "run" all yield "run".
func CheckFileName(name, fileType, ext string) string {
	if ext != "" {
		name = strings.TrimSuffix(name, "."+strings.TrimPrefix(ext, "."))
	}
	if fileType != "" {
		name = strings.TrimSuffix(name, "_"+fileType)
	}
	return name
}

// FileName builds the canonical name <base>_<fileType>.<ext>.
func FileName(name, fileType, ext string) string {
	base := CheckFileName(name, fileType, ext)
	if fileType != "" {
		base += "_" + fileType
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}
