package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/fibrilsim/internal/dynamo"
)

var setters = map[string]func(p *Params, v float64){
	"bond_k0":        func(p *Params, v float64) { p.BondK0 = v },
	"bond_r0":        func(p *Params, v float64) { p.BondR0 = v },
	"angle_k0":       func(p *Params, v float64) { p.AngleK0 = v },
	"angle_theta0":   func(p *Params, v float64) { p.AngleTheta0 = v },
	"vdw_sigma":      func(p *Params, v float64) { p.VdwSigma = v },
	"vdw_epsilon":    func(p *Params, v float64) { p.VdwEpsilon = v },
	"rc":             func(p *Params, v float64) { p.Cutoff = v },
	"min_separation": func(p *Params, v float64) { p.Growth.MinSeparation = v },
	"angle_spread":   func(p *Params, v float64) { p.Growth.AngleSpread = v },
}

// Set assigns a numeric parameter by its file key.
func (p *Params) Set(name string, v float64) error {
	fn, ok := setters[name]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q (settable: %v)", dynamo.ErrParameterBounds, name, Settable())
	}
	fn(p, v)
	return nil
}

func Settable() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
