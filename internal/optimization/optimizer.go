package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process
	Optimize(ctx context.Context, config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns the recorded iterations so far
	GetHistory() []IterationRecord

	// Stop gracefully stops the optimization process
	Stop()
}

// OptimizerConfig contains configuration for the optimizer
type OptimizerConfig struct {
	// Objective function to minimize
	Objective ObjectiveFunction

	// Initial center of the search
	Center []float64

	// Initial per-axis half-width of the search hypercube
	Step []float64

	// Convergence tolerance on the step vector norm
	Tolerance float64

	// Maximum number of iterations, 0 means run until convergence
	MaxIterations int

	// Number of concurrent objective evaluations per iteration
	Workers int
}

// Dimension returns the dimension of the search space.
func (c OptimizerConfig) Dimension() int {
	return len(c.Center)
}

// ObjectiveFunction defines the function to be minimized
type ObjectiveFunction func([]float64) (float64, error)

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// IterationRecord is the state recorded at the end of one iteration: the
// current center and the objective value there.
type IterationRecord struct {
	Iteration int
	Point     []float64
	Value     float64
	// StepNorm is the norm of the step vector after this iteration's update.
	StepNorm float64
	// Moved is true when the center moved, false when the step was halved.
	Moved bool
}

// Solution returns the record as a Solution sharing no memory with it.
func (r IterationRecord) Solution() *Solution {
	return &Solution{
		Parameters: append([]float64(nil), r.Point...),
		Value:      r.Value,
	}
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution  *Solution
	History       []IterationRecord
	Iterations    int
	Evaluations   int
	FinalStepNorm float64
	Converged     bool
}
