package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/evop/internal/optimization"
)

func TestRunStarted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	done := m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.active))

	done(&optimization.OptimizationResult{Iterations: 12, Evaluations: 60, Converged: true}, StatusConverged)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.active))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(StatusConverged)))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.evaluations))
	assert.Equal(t, 1, testutil.CollectAndCount(m.iterations))
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "second registration should collide")

	_, err = New(nil)
	assert.NoError(t, err)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		result    *optimization.OptimizationResult
		err       error
		cancelled bool
		want      string
	}{
		{"converged", &optimization.OptimizationResult{Converged: true}, nil, false, StatusConverged},
		{"iteration limit", &optimization.OptimizationResult{}, nil, false, StatusExhausted},
		{"failed", nil, errors.New("boom"), false, StatusFailed},
		{"cancelled wins", nil, errors.New("context canceled"), true, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.result, tt.err, tt.cancelled))
		})
	}
}
