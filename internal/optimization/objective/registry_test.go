package objective

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/evop/internal/optimization"
)

func TestBuiltinsAtMinimizer(t *testing.T) {
	r := Default()
	require.NotEmpty(t, r.List())

	for _, def := range r.List() {
		t.Run(def.Name, func(t *testing.T) {
			n := def.Dimension
			if n == 0 {
				n = 3
			}
			fn, err := def.Objective(n)
			require.NoError(t, err)

			x := def.Minimizer(n)
			require.Len(t, x, n)

			got, err := fn(x)
			require.NoError(t, err)
			assert.InDelta(t, def.Minimum, got, 1e-12)
			assert.NotEmpty(t, def.Description)
		})
	}
}

func TestCalibrationFunc(t *testing.T) {
	assert.Equal(t, 4.0, CalibrationFunc([]float64{0, 0}))
	assert.Equal(t, 0.0, CalibrationFunc([]float64{2, 4}))
	assert.Equal(t, 50.0+1.0, CalibrationFunc([]float64{1, 2}))
}

func TestDefinitionObjectiveDimension(t *testing.T) {
	def, ok := Default().Lookup(Calibration)
	require.True(t, ok)

	_, err := def.Objective(3)
	assert.ErrorIs(t, err, optimization.ErrDimensionMismatch)

	fn, err := def.Objective(2)
	require.NoError(t, err)
	_, err = fn([]float64{1})
	assert.ErrorIs(t, err, optimization.ErrDimensionMismatch, "short points must not reach the function")

	sphere, ok := Default().Lookup("sphere")
	require.True(t, ok)
	assert.True(t, sphere.Accepts(7))
	assert.False(t, sphere.Accepts(0))
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Name: "b", Func: Sphere}))
	require.NoError(t, r.Register(Definition{Name: "a", Func: Sphere}))

	assert.Error(t, r.Register(Definition{Name: "a", Func: Sphere}), "duplicate")
	assert.Error(t, r.Register(Definition{Name: "", Func: Sphere}), "no name")
	assert.Error(t, r.Register(Definition{Name: "c"}), "no func")
	assert.Error(t, r.Register(Definition{Name: "d", Func: Sphere, Dimension: -1}), "negative dimension")

	assert.Equal(t, []string{"a", "b"}, r.Names())

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}
