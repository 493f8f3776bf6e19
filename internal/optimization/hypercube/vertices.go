// Package hypercube enumerates the corners of axis-aligned hypercubes.
package hypercube

import (
	"math/bits"

	"github.com/copyleftdev/evop/internal/optimization"
)

// MaxDimension is the largest dimension whose vertex count fits in an int.
const MaxDimension = bits.UintSize - 2

// Count returns the number of vertices of an n-dimensional hypercube, 2^n.
func Count(n int) int {
	if n < 0 || n > MaxDimension {
		return 0
	}
	return 1 << uint(n)
}

// Vertices returns the 2^N corners of the hypercube centered at center with
// per-axis half-widths halfWidths. Component i of a corner is
// center[i] + sign*halfWidths[i] for sign in {+1, -1}.
//
// Corners are produced by walking the bit patterns 0..2^N-1; bit N-1-i set
// selects the minus sign on axis i. The first corner is the all-plus one and
// axis 0 varies slowest. For N == 0 the single empty corner is returned.
func Vertices(center, halfWidths []float64) ([][]float64, error) {
	const op = "hypercube.Vertices"

	n := len(center)
	if len(halfWidths) != n {
		return nil, optimization.DimensionMismatch(op, len(halfWidths), n)
	}
	if n > MaxDimension {
		return nil, optimization.NewErrorf("dimension %d exceeds maximum %d", n, MaxDimension).WithOperation(op)
	}

	total := Count(n)
	// One backing array for all corners.
	backing := make([]float64, total*n)
	vertices := make([][]float64, total)
	for k := 0; k < total; k++ {
		vertex := backing[k*n : (k+1)*n : (k+1)*n]
		for i := 0; i < n; i++ {
			if k&(1<<uint(n-1-i)) != 0 {
				vertex[i] = center[i] - halfWidths[i]
			} else {
				vertex[i] = center[i] + halfWidths[i]
			}
		}
		vertices[k] = vertex
	}
	return vertices, nil
}
