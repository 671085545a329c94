// Package geometry computes bond-angle cosines and sines from the two
// displacement vectors that meet at the central bead of a triplet.
//
// The planar and spatial cases are deliberately separate operations. In 2D
// the sine is a signed pseudo-scalar, the z component of u × v. In 3D it is
// the full cross product vector, which keeps the orientation needed to split
// angle forces along three independent directions.
//
// For an angle triplet i-j-k the kernel passes u = p_j - p_k and
// v = p_j - p_i.
package geometry

import "math"

type Theta2D struct {
	Cos float64
	// Sin is (u_x v_y - u_y v_x) / (|u||v|).
	Sin    float64
	RU, RV float64
}

type Theta3D struct {
	Cos float64
	// Sin is (u × v) / (|u||v|); its norm is |sin θ|.
	Sin    [3]float64
	RU, RV float64
}

func CosSinTheta2D(u, v []float64, ru, rv float64) Theta2D {
	rprod := ru * rv
	return Theta2D{
		Cos: (u[0]*v[0] + u[1]*v[1]) / rprod,
		Sin: (u[0]*v[1] - u[1]*v[0]) / rprod,
		RU:  ru,
		RV:  rv,
	}
}

func CosSinTheta3D(u, v []float64, ru, rv float64) Theta3D {
	rprod := ru * rv
	c := Cross(u, v)
	return Theta3D{
		Cos: (u[0]*v[0] + u[1]*v[1] + u[2]*v[2]) / rprod,
		Sin: [3]float64{c[0] / rprod, c[1] / rprod, c[2] / rprod},
		RU:  ru,
		RV:  rv,
	}
}

// Gradients returns ∂cosθ/∂u and ∂cosθ/∂v, obtained by rotating each vector
// a quarter turn and scaling by the signed sine.
func (t Theta2D) Gradients(u, v []float64) (du, dv [2]float64) {
	su := t.Sin / (t.RU * t.RU)
	sv := t.Sin / (t.RV * t.RV)
	du = [2]float64{-u[1] * su, u[0] * su}
	dv = [2]float64{v[1] * sv, -v[0] * sv}
	return du, dv
}

// Gradients returns ∂cosθ/∂u and ∂cosθ/∂v from the sine vector:
// -(u × S)/|u|² and (v × S)/|v|².
func (t Theta3D) Gradients(u, v []float64) (du, dv [3]float64) {
	s := t.Sin[:]
	cu := Cross(u, s)
	cv := Cross(v, s)
	iu := 1 / (t.RU * t.RU)
	iv := 1 / (t.RV * t.RV)
	for a := 0; a < 3; a++ {
		du[a] = -cu[a] * iu
		dv[a] = cv[a] * iv
	}
	return du, dv
}

// Angle returns θ in [-π, π]; the sign follows the 2D sine convention.
func (t Theta2D) Angle() float64 {
	return math.Atan2(t.Sin, t.Cos)
}

// Angle returns θ in [0, π].
func (t Theta3D) Angle() float64 {
	s := math.Sqrt(t.Sin[0]*t.Sin[0] + t.Sin[1]*t.Sin[1] + t.Sin[2]*t.Sin[2])
	return math.Atan2(s, t.Cos)
}

// Batch2D evaluates CosSinTheta2D over parallel tables of vectors and norms.
func Batch2D(u, v [][]float64, ru, rv []float64) []Theta2D {
	out := make([]Theta2D, len(u))
	for a := range u {
		out[a] = CosSinTheta2D(u[a], v[a], ru[a], rv[a])
	}
	return out
}

func Batch3D(u, v [][]float64, ru, rv []float64) []Theta3D {
	out := make([]Theta3D, len(u))
	for a := range u {
		out[a] = CosSinTheta3D(u[a], v[a], ru[a], rv[a])
	}
	return out
}
