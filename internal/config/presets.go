package config

import "sort"

var Presets = map[string]*Params{
	"single": preset(func(p *Params) {
		p.LFibril = 20
	}),
	"bundle": preset(func(p *Params) {
		p.NFibrilX, p.NFibrilY = 2, 2
		p.LFibril = 10
	}),
	"dense": preset(func(p *Params) {
		p.NFibrilX, p.NFibrilY = 3, 3
		p.LFibril = 12
		p.CellDim = []float64{30, 30}
		p.Growth.MaxAttempts = 200
	}),
	"3d": preset(func(p *Params) {
		p.NDim = 3
		p.LFibril = 20
	}),
	"bundle3d": preset(func(p *Params) {
		p.NDim = 3
		p.NFibrilX, p.NFibrilY, p.NFibrilZ = 2, 2, 1
		p.LFibril = 10
	}),
	"stiff": preset(func(p *Params) {
		p.BondK0 = 50
		p.AngleK0 = 10
		p.LFibril = 15
	}),
}

func preset(fn func(*Params)) *Params {
	p := DefaultParams()
	fn(p)
	return p
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Params {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
