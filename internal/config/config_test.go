package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1e-4, cfg.Optimization.Tolerance)
	assert.Equal(t, 100000, cfg.Optimization.MaxIterations)
	assert.Equal(t, 1, cfg.Optimization.Workers)
	assert.Equal(t, 16, cfg.Optimization.MaxDimension)
	assert.Equal(t, 64, cfg.Optimization.MaxJobs)
}

func TestLoadDevelopmentDebug(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("EVOP_EPS", "1e-6")
	t.Setenv("EVOP_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 1e-6, cfg.Optimization.Tolerance)
	assert.Equal(t, 4, cfg.Optimization.Workers)
}

func TestLoadUnboundedIterations(t *testing.T) {
	t.Setenv("EVOP_MAX_ITERATIONS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Optimization.MaxIterations)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero tolerance", "EVOP_EPS", "0"},
		{"negative workers", "EVOP_WORKERS", "-1"},
		{"huge dimension", "EVOP_MAX_DIMENSION", "40"},
		{"unknown format", "LOG_FORMAT", "xml"},
		{"not a number", "EVOP_MAX_ITERATIONS", "many"},
		{"negative iterations", "EVOP_MAX_ITERATIONS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
