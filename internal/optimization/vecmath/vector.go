// Package vecmath holds the small set of vector operations the pattern
// search needs, on top of gonum's floats package.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/evop/internal/optimization"
)

// Norm returns the Euclidean norm of v. The norm of an empty vector is 0.
func Norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// Sub returns a new vector holding a[i] - b[i].
func Sub(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, optimization.DimensionMismatch("vecmath.Sub", len(b), len(a))
	}
	dst := make([]float64, len(a))
	floats.SubTo(dst, a, b)
	return dst, nil
}

// ApproxEqual reports whether Norm(a - b) < eps. The comparison is strict,
// so identical vectors are only equal for a positive eps.
func ApproxEqual(a, b []float64, eps float64) (bool, error) {
	if len(a) != len(b) {
		return false, optimization.DimensionMismatch("vecmath.ApproxEqual", len(b), len(a))
	}
	if len(a) == 0 {
		return 0 < eps, nil
	}
	return floats.Distance(a, b, 2) < eps, nil
}

// DivideInPlace divides every element of v by d. A zero or NaN divisor is
// rejected and v is left untouched.
func DivideInPlace(v []float64, d float64) error {
	if d == 0 || math.IsNaN(d) {
		return optimization.WrapErrorf(optimization.ErrZeroDivisor, "divisor %v", d).
			WithOperation("vecmath.DivideInPlace")
	}
	// Plain division keeps the result exact for any divisor; scaling by 1/d
	// would round the reciprocal first.
	for i := range v {
		v[i] /= d
	}
	return nil
}

// IsFinite reports whether every element of v is neither NaN nor infinite.
func IsFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Clone returns a copy of v that shares no memory with it.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append(make([]float64, 0, len(v)), v...)
}
