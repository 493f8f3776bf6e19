package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/copyleftdev/evop/internal/logging"
	"github.com/copyleftdev/evop/internal/optimization"
	"github.com/copyleftdev/evop/internal/optimization/evop"
	"github.com/copyleftdev/evop/internal/optimization/objective"
)

// newRootCmd builds the command with its own viper instance so tests can
// run it in isolation.
func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "evop",
		Short: "Minimize an objective with the EVOP hypercube pattern search",
		Long: `evop runs the evolutionary operation search on a registered objective.
Every iteration evaluates the 2^N corners of the box around the current
point, moves to the best one, and halves the box when nothing beats the
center. The search stops once the step norm drops below --eps.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvPrefix("EVOP")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("objective", objective.Calibration, "registered objective to minimize")
	flags.StringSlice("center", []string{"0", "0"}, "starting point, comma separated")
	flags.StringSlice("delta", []string{"5", "5"}, "initial half-widths of the search box")
	flags.Float64("eps", 1e-4, "stop once the step norm is below this value")
	flags.Int("workers", 1, "concurrent objective evaluations per iteration")
	flags.Int("max-iterations", 0, "iteration cap, 0 for none")
	flags.String("log-level", "warn", "log level for search traces (debug, info, warn, error)")
	flags.Bool("list", false, "list registered objectives and exit")
	flags.Bool("quiet", false, "print only the final point and iteration count")

	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	out := cmd.OutOrStdout()
	registry := objective.Default()

	if v.GetBool("list") {
		for _, def := range registry.List() {
			dim := "any"
			if def.Dimension > 0 {
				dim = strconv.Itoa(def.Dimension)
			}
			fmt.Fprintf(out, "%-18s dim=%-4s %s\n", def.Name, dim, def.Description)
		}
		return nil
	}

	center, err := parseVector("center", v.GetStringSlice("center"))
	if err != nil {
		return err
	}
	delta, err := parseVector("delta", v.GetStringSlice("delta"))
	if err != nil {
		return err
	}

	name := v.GetString("objective")
	def, ok := registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown objective %q (have %s)", name, strings.Join(registry.Names(), ", "))
	}
	fn, err := def.Objective(len(center))
	if err != nil {
		return err
	}

	logger := logging.New(logging.ParseLevel(v.GetString("log-level")), cmd.ErrOrStderr()).
		WithFormat(logging.TextFormat)
	zl := logging.NewZapLogger(logger).With(zap.String("objective", def.Name))
	defer func() { _ = zl.Sync() }()

	quiet := v.GetBool("quiet")
	opt := evop.NewOptimizer(optimization.OptimizerConfig{
		Objective:     fn,
		Center:        center,
		Step:          delta,
		Tolerance:     v.GetFloat64("eps"),
		MaxIterations: v.GetInt("max-iterations"),
		Workers:       v.GetInt("workers"),
	},
		evop.WithLogger(zl),
		evop.WithIterationHook(func(rec optimization.IterationRecord) {
			if !quiet {
				printPoint(out, rec.Point, rec.Value)
			}
		}),
	)

	result, err := opt.Optimize(cmd.Context(), optimization.OptimizerConfig{})
	if err != nil {
		return err
	}

	if quiet && result.BestSolution != nil {
		printPoint(out, result.BestSolution.Parameters, result.BestSolution.Value)
	}
	fmt.Fprintf(out, "number of iterations: %d\n", result.Iterations)
	return nil
}

// parseVector turns flag or environment items into a vector. Items may hold
// several comma separated numbers, since EVOP_CENTER="1,2" arrives as one.
func parseVector(name string, items []string) ([]float64, error) {
	var out []float64
	for _, item := range items {
		for _, field := range strings.Split(item, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --%s entry %q: %w", name, field, err)
			}
			out = append(out, x)
		}
	}
	return out, nil
}

// printPoint writes "x = (a,b), f(x) = v".
func printPoint(w io.Writer, x []float64, value float64) {
	parts := make([]string, len(x))
	for i, xi := range x {
		parts[i] = strconv.FormatFloat(xi, 'g', 6, 64)
	}
	fmt.Fprintf(w, "x = (%s), f(x) = %s\n", strings.Join(parts, ","), strconv.FormatFloat(value, 'g', 6, 64))
}
