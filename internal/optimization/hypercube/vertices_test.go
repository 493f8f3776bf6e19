package hypercube

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/evop/internal/optimization"
)

func TestCount(t *testing.T) {
	assert.Equal(t, 1, Count(0))
	assert.Equal(t, 2, Count(1))
	assert.Equal(t, 1024, Count(10))
	assert.Equal(t, 0, Count(-1))
	assert.Equal(t, 0, Count(MaxDimension+1))
}

func TestVerticesCountAndMembership(t *testing.T) {
	for n := 0; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			center := make([]float64, n)
			delta := make([]float64, n)
			for i := range center {
				center[i] = float64(i) - 1.5
				delta[i] = 0.25 * float64(i+1)
			}

			vertices, err := Vertices(center, delta)
			require.NoError(t, err)
			require.Len(t, vertices, 1<<n)

			seen := make(map[uint]int, len(vertices))
			for _, v := range vertices {
				require.Len(t, v, n)
				var mask uint
				for i := range v {
					switch v[i] - center[i] {
					case delta[i]:
					case -delta[i]:
						mask |= 1 << uint(i)
					default:
						t.Fatalf("component %d of %v is not center±delta", i, v)
					}
				}
				seen[mask]++
			}

			assert.Len(t, seen, 1<<n, "every sign combination must appear")
			for mask, count := range seen {
				assert.Equal(t, 1, count, "sign combination %b repeated", mask)
			}
		})
	}
}

func TestVerticesZeroDimension(t *testing.T) {
	vertices, err := Vertices([]float64{}, []float64{})
	require.NoError(t, err)
	require.Len(t, vertices, 1)
	assert.Empty(t, vertices[0])
}

func TestVerticesOrder(t *testing.T) {
	vertices, err := Vertices([]float64{0, 0}, []float64{5, 5})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 5}, {5, -5}, {-5, 5}, {-5, -5}}, vertices)
}

func TestVerticesZeroHalfWidthCoincide(t *testing.T) {
	vertices, err := Vertices([]float64{1, 2}, []float64{0, 1})
	require.NoError(t, err)
	require.Len(t, vertices, 4)
	assert.Equal(t, vertices[0], vertices[2])
	assert.Equal(t, vertices[1], vertices[3])
}

func TestVerticesIndependentSlices(t *testing.T) {
	center := []float64{1, 1}
	vertices, err := Vertices(center, []float64{1, 1})
	require.NoError(t, err)

	vertices[0][0] = math.Pi
	assert.Equal(t, []float64{1, 1}, center)
	assert.NotEqual(t, math.Pi, vertices[1][0])

	vertices[0] = append(vertices[0], 7)
	assert.Equal(t, []float64{2, 0}, vertices[1], "append must not spill into the next vertex")
}

func TestVerticesDimensionMismatch(t *testing.T) {
	_, err := Vertices([]float64{0, 0}, []float64{1, 1, 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, optimization.ErrDimensionMismatch)
}

func BenchmarkVertices(b *testing.B) {
	for _, n := range []int{2, 8, 12} {
		center := make([]float64, n)
		delta := make([]float64, n)
		for i := range delta {
			delta[i] = 1
		}
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Vertices(center, delta); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
