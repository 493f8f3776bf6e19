// Package objective provides named objective functions that callers without
// the ability to ship code (HTTP clients, the command line) can minimize.
package objective

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/optimize/functions"

	"github.com/copyleftdev/evop/internal/optimization"
)

// Definition describes a registered objective.
type Definition struct {
	Name        string
	Description string
	// Dimension is the required dimension, or 0 if any dimension works.
	Dimension int
	// Minimum is the known global minimum value.
	Minimum float64
	// Minimizer returns the known global minimizer for dimension n.
	Minimizer func(n int) []float64
	// Func evaluates the objective. It is only called with len(x) matching
	// Dimension when Dimension is non-zero.
	Func func(x []float64) float64
}

// Accepts reports whether the objective can be evaluated in n dimensions.
func (d Definition) Accepts(n int) bool {
	if n < 1 {
		return false
	}
	return d.Dimension == 0 || d.Dimension == n
}

// Objective returns the definition as an ObjectiveFunction bound to
// dimension n. Points of any other length are rejected with
// ErrDimensionMismatch instead of reaching Func.
func (d Definition) Objective(n int) (optimization.ObjectiveFunction, error) {
	if !d.Accepts(n) {
		return nil, optimization.DimensionMismatch("objective."+d.Name, n, d.Dimension)
	}
	return func(x []float64) (float64, error) {
		if len(x) != n {
			return 0, optimization.DimensionMismatch("objective."+d.Name, len(x), n)
		}
		return d.Func(x), nil
	}, nil
}

// Registry is a concurrency-safe set of named objectives.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds def. Names must be unique and Func must be set.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("objective name is required")
	}
	if def.Func == nil {
		return fmt.Errorf("objective %q has no function", def.Name)
	}
	if def.Dimension < 0 {
		return fmt.Errorf("objective %q has negative dimension %d", def.Name, def.Dimension)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("objective %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup returns the objective registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	defs := r.List()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// Default returns a registry holding the built-in objectives.
func Default() *Registry {
	r := NewRegistry()
	for _, def := range builtins() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []Definition {
	return []Definition{
		{
			Name:        Calibration,
			Description: "50(y - x^2)^2 + (2 - x)^2, minimum 0 at (2, 4)",
			Dimension:   2,
			Minimum:     0,
			Minimizer:   constant(2, 4),
			Func:        CalibrationFunc,
		},
		{
			Name:        "sphere",
			Description: "sum of squares, minimum 0 at the origin",
			Minimum:     0,
			Minimizer:   func(n int) []float64 { return make([]float64, n) },
			Func:        Sphere,
		},
		{
			Name:        "booth",
			Description: "(x + 2y - 7)^2 + (2x + y - 5)^2, minimum 0 at (1, 3)",
			Dimension:   2,
			Minimum:     0,
			Minimizer:   constant(1, 3),
			Func:        Booth,
		},
		{
			Name:        "rosenbrock",
			Description: "extended Rosenbrock function, minimum 0 at (1, ..., 1)",
			Minimum:     0,
			Minimizer:   ones,
			Func:        functions.ExtendedRosenbrock{}.Func,
		},
		{
			Name:        "beale",
			Description: "Beale function, minimum 0 at (3, 0.5)",
			Dimension:   2,
			Minimum:     0,
			Minimizer:   constant(3, 0.5),
			Func:        functions.Beale{}.Func,
		},
		{
			Name:        "wood",
			Description: "Wood function, minimum 0 at (1, 1, 1, 1)",
			Dimension:   4,
			Minimum:     0,
			Minimizer:   ones,
			Func:        functions.Wood{}.Func,
		},
	}
}

func constant(x ...float64) func(int) []float64 {
	return func(int) []float64 {
		return append([]float64(nil), x...)
	}
}

func ones(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}
	return x
}
