package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		// Tolerance used when a request does not set one.
		Tolerance float64 `env:"EVOP_EPS" envDefault:"1e-4"`
		// Iteration cap applied to every job, 0 for none.
		MaxIterations int `env:"EVOP_MAX_ITERATIONS" envDefault:"100000"`
		// Default number of concurrent objective evaluations per iteration.
		Workers int `env:"EVOP_WORKERS" envDefault:"1"`
		// Largest accepted dimension; each iteration costs 2^N+1 evaluations.
		MaxDimension int `env:"EVOP_MAX_DIMENSION" envDefault:"16"`
		// Jobs kept in memory, running or finished.
		MaxJobs int `env:"EVOP_MAX_JOBS" envDefault:"64"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		problems = append(problems, fmt.Sprintf("HTTP_PORT out of range: %d", c.HTTP.Port))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or text, got %q", c.Logging.Format))
	}
	if !(c.Optimization.Tolerance > 0) {
		problems = append(problems, fmt.Sprintf("EVOP_EPS must be positive, got %v", c.Optimization.Tolerance))
	}
	if c.Optimization.MaxIterations < 0 {
		problems = append(problems, fmt.Sprintf("EVOP_MAX_ITERATIONS must not be negative, got %d", c.Optimization.MaxIterations))
	}
	if c.Optimization.Workers < 1 {
		problems = append(problems, fmt.Sprintf("EVOP_WORKERS must be at least 1, got %d", c.Optimization.Workers))
	}
	if c.Optimization.MaxDimension < 1 || c.Optimization.MaxDimension > 24 {
		problems = append(problems, fmt.Sprintf("EVOP_MAX_DIMENSION must be in [1, 24], got %d", c.Optimization.MaxDimension))
	}
	if c.Optimization.MaxJobs < 1 {
		problems = append(problems, fmt.Sprintf("EVOP_MAX_JOBS must be at least 1, got %d", c.Optimization.MaxJobs))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
