package geometry

import "math"

func Dot(u, v []float64) float64 {
	s := 0.0
	for a := range u {
		s += u[a] * v[a]
	}
	return s
}

func Norm(u []float64) float64 {
	return math.Sqrt(Dot(u, u))
}

func Cross(u, v []float64) [3]float64 {
	return [3]float64{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
}

// UnitVector returns u scaled to length one. A zero vector is returned
// unchanged.
func UnitVector(u []float64) []float64 {
	out := make([]float64, len(u))
	r := Norm(u)
	if r == 0 {
		return out
	}
	for a := range u {
		out[a] = u[a] / r
	}
	return out
}

func UnitVectors(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = UnitVector(r)
	}
	return out
}
