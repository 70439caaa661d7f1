package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/ebmfit/internal/config"
	"github.com/san-kum/ebmfit/internal/dataio"
	"github.com/san-kum/ebmfit/internal/ebm"
	"github.com/san-kum/ebmfit/internal/estimate"
	"github.com/san-kum/ebmfit/internal/store"
	"github.com/san-kum/ebmfit/internal/tui"
)

var (
	dataDir    string
	configFile string

	n           int
	dt          float64
	steps       int
	forcingVal  float64
	forcingFile string
	obsFile     string

	method     string
	rate       float64
	tolerance  float64
	iterations int
	exportPath string

	seed       int64
	sweepRates []float64
	sweepIters int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ebmfit",
		Short: "fit energy-balance model parameters to zonal temperature observations",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ebmfit", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	modelFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&n, "n", config.DefaultN, "latitude bands")
		cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep in seconds")
		cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "forcing steps")
		cmd.Flags().Float64Var(&forcingVal, "forcing", config.DefaultForcing, "constant insolation, W/m^2")
		cmd.Flags().StringVar(&forcingFile, "forcing-file", "", "insolation series file")
		cmd.Flags().StringVar(&obsFile, "obs-file", "", "observed temperature file (Celsius)")
	}
	fitFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&method, "method", config.DefaultMethod, "descent method (gd, momentum, adam)")
		cmd.Flags().Float64Var(&rate, "rate", config.DefaultRate, "learning rate")
		cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "convergence tolerance")
		cmd.Flags().IntVar(&iterations, "iters", config.DefaultIterations, "iteration budget")
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "forward simulation with baseline parameters",
		RunE:  runForward,
	}
	modelFlags(runCmd)

	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "estimate albedo and emissivity perturbations",
		RunE:  runFit,
	}
	modelFlags(fitCmd)
	fitFlags(fitCmd)
	fitCmd.Flags().StringVar(&exportPath, "export", "", "write full result JSON to file")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "fit with a live progress view",
		RunE:  watchFit,
	}
	modelFlags(watchCmd)
	fitFlags(watchCmd)

	gradcheckCmd := &cobra.Command{
		Use:   "gradcheck",
		Short: "verify the adjoint gradient against finite differences",
		RunE:  gradCheck,
	}
	modelFlags(gradcheckCmd)
	gradcheckCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for control and direction")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "evaluate candidate learning rates",
		RunE:  runSweep,
	}
	modelFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepRates, "rates", []float64{1e-4, 1e-3, 1e-2}, "candidate rates")
	sweepCmd.Flags().IntVar(&sweepIters, "iters", 50, "iterations per candidate")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored fit runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the cost history of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	rootCmd.AddCommand(runCmd, fitCmd, watchCmd, gradcheckCmd, sweepCmd, listCmd, plotCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the defaults, an optional yaml file, and any flags the
// user set explicitly, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("n") {
		cfg.N = n
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("forcing") {
		cfg.Forcing = forcingVal
	}
	if flags.Changed("forcing-file") {
		cfg.ForcingFile = forcingFile
	}
	if flags.Changed("obs-file") {
		cfg.ObservationFile = obsFile
	}
	if flags.Changed("method") {
		cfg.Method = method
	}
	if flags.Changed("rate") {
		cfg.Rate = rate
	}
	if flags.Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("iters") {
		cfg.MaxIterations = iterations
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildInputs(cfg *config.Config) (*ebm.Grid, []float64, []float64, error) {
	grid, err := ebm.NewGrid(cfg.N)
	if err != nil {
		return nil, nil, nil, err
	}

	var forcing []float64
	if cfg.ForcingFile != "" {
		forcing, err = dataio.LoadSeries(cfg.ForcingFile)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		forcing = dataio.ConstantForcing(cfg.Forcing, cfg.Steps)
	}

	var obs []float64
	if cfg.ObservationFile != "" {
		obs, err = dataio.LoadObservation(cfg.ObservationFile, cfg.N)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		obs = dataio.SyntheticObservation(grid)
	}
	return grid, forcing, obs, nil
}

func buildProblem(cfg *config.Config) (ebm.FitProblem, *ebm.Grid, error) {
	grid, forcing, obs, err := buildInputs(cfg)
	if err != nil {
		return ebm.FitProblem{}, nil, err
	}
	problem := ebm.FitProblem{
		Config:      cfg.ModelConfig(),
		Forcing:     forcing,
		Observation: obs,
		Dt:          cfg.Dt,
		N:           cfg.N,
	}
	return problem, grid, nil
}

func buildEstimator(cfg *config.Config, problem ebm.FitProblem) (*estimate.Estimator, error) {
	m, err := estimate.MethodByName(cfg.Method, cfg.Rate)
	if err != nil {
		return nil, err
	}
	opts := estimate.Options{
		Method:          m,
		Tolerance:       cfg.Tolerance,
		MaxIterations:   cfg.MaxIterations,
		BlowupThreshold: cfg.Blowup,
	}
	return estimate.New(problem, opts), nil
}

func runForward(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	grid, forcing, _, err := buildInputs(cfg)
	if err != nil {
		return err
	}

	control := make([]float64, 2*cfg.N)
	profile, err := ebm.Simulate(cfg.ModelConfig(), control, forcing, cfg.Dt, cfg.N)
	if err != nil {
		return err
	}

	printProfile(grid, profile)
	return nil
}

func printProfile(grid *ebm.Grid, profile []float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "latitude\tkelvin\tcelsius")
	celsius := make([]float64, len(profile))
	for i, t := range profile {
		celsius[i] = t - 273.0
		fmt.Fprintf(w, "%+.1f\t%.2f\t%.2f\n", grid.LatDeg[i], t, celsius[i])
	}
	w.Flush()

	fmt.Println()
	fmt.Println(asciigraph.Plot(celsius,
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Caption("temperature by latitude band (C)"),
	))
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	problem, grid, err := buildProblem(cfg)
	if err != nil {
		return err
	}
	est, err := buildEstimator(cfg, problem)
	if err != nil {
		return err
	}

	fmt.Printf("fitting %d bands, %d forcing steps, method %s...\n", cfg.N, len(problem.Forcing), cfg.Method)
	start := time.Now()
	result, err := est.Run(context.Background(), make([]float64, problem.Dim()))
	if err != nil {
		return err
	}
	fmt.Printf("finished in %v\n\n", time.Since(start))

	return reportFit(cfg, problem, grid, result)
}

func watchFit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	problem, grid, err := buildProblem(cfg)
	if err != nil {
		return err
	}
	est, err := buildEstimator(cfg, problem)
	if err != nil {
		return err
	}

	result, err := tui.Watch(context.Background(), est, make([]float64, problem.Dim()))
	if errors.Is(err, context.Canceled) {
		fmt.Println("stopped")
		err = nil
	}
	if err != nil {
		return err
	}
	return reportFit(cfg, problem, grid, result)
}

func reportFit(cfg *config.Config, problem ebm.FitProblem, grid *ebm.Grid, result *estimate.Result) error {
	last := result.History[len(result.History)-1]
	fmt.Printf("status: %s\n", result.Status)
	fmt.Printf("iterations: %d\n", result.Iterations)
	fmt.Printf("initial cost: %.6f\n", result.History[0].Cost)
	fmt.Printf("final cost: %.6f\n", last.Cost)

	costs := make([]float64, 0, len(result.History))
	for _, rec := range result.History {
		if !math.IsNaN(rec.Cost) && !math.IsInf(rec.Cost, 0) {
			costs = append(costs, rec.Cost)
		}
	}
	if len(costs) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(costs,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption("cost per iteration"),
		))
	}

	profile, err := ebm.Simulate(problem.Config, result.Control, problem.Forcing, problem.Dt, problem.N)
	if err != nil {
		return err
	}
	fmt.Println()
	printProfile(grid, profile)

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := store.RunMetadata{
		N:      cfg.N,
		Dt:     cfg.Dt,
		Steps:  len(problem.Forcing),
		Method: cfg.Method,
		Rate:   cfg.Rate,
	}
	runID, err := st.Save(meta, result, grid, profile)
	if err != nil {
		return err
	}
	fmt.Printf("\nrun id: %s\n", runID)

	if exportPath != "" {
		saved, err := st.Load(runID)
		if err != nil {
			return err
		}
		if err := store.ExportJSON(exportPath, *saved, result, profile); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", exportPath)
	}
	return nil
}

func gradCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	problem, _, err := buildProblem(cfg)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	control := make([]float64, problem.Dim())
	for i := range control {
		control[i] = 0.4 * (rng.Float64() - 0.5)
	}
	dir := make([]float64, problem.Dim())
	for i := range dir {
		dir[i] = rng.NormFloat64()
	}
	floats.Scale(1.0/floats.Norm(dir, 2), dir)

	grad, err := problem.Gradient(control)
	if err != nil {
		return err
	}
	want := floats.Dot(grad, dir)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "h\tfinite diff\tadjoint\trel error")
	for _, h := range []float64{1e-2, 1e-3, 1e-4} {
		plus := append([]float64(nil), control...)
		minus := append([]float64(nil), control...)
		floats.AddScaled(plus, h, dir)
		floats.AddScaled(minus, -h, dir)

		costPlus, err := problem.Cost(plus)
		if err != nil {
			return err
		}
		costMinus, err := problem.Cost(minus)
		if err != nil {
			return err
		}
		got := (costPlus - costMinus) / (2 * h)

		denom := math.Max(math.Abs(want), math.Abs(got))
		if denom == 0 {
			denom = 1
		}
		fmt.Fprintf(w, "%g\t%.10f\t%.10f\t%.2e\n", h, got, want, math.Abs(got-want)/denom)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	problem, _, err := buildProblem(cfg)
	if err != nil {
		return err
	}

	bestRate, bestCost, err := estimate.SweepRates(
		context.Background(), problem, make([]float64, problem.Dim()), sweepRates, sweepIters)
	if err != nil {
		return err
	}
	fmt.Printf("best rate: %g (cost %.6f after %d iterations)\n", bestRate, bestCost, sweepIters)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\ttime\tmethod\tstatus\titers\tcost")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.6f\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Method, r.Status, r.Iterations, r.FinalCost)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	records, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}

	costs := make([]float64, 0, len(records))
	for _, rec := range records {
		if !math.IsNaN(rec.Cost) && !math.IsInf(rec.Cost, 0) {
			costs = append(costs, rec.Cost)
		}
	}
	if len(costs) < 2 {
		return fmt.Errorf("run %s: not enough finite history to plot", args[0])
	}

	fmt.Println(asciigraph.Plot(costs,
		asciigraph.Height(12),
		asciigraph.Width(70),
		asciigraph.Caption(fmt.Sprintf("cost per iteration (%s)", args[0])),
	))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	records, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	profile, err := st.LoadProfile(args[0])
	if err != nil {
		return err
	}
	result := &estimate.Result{Control: meta.Control, History: records}
	return store.ExportJSONStdout(*meta, result, profile)
}
