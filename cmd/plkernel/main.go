package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/san-kum/plkernel/internal/config"
	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/export"
	"github.com/san-kum/plkernel/internal/kernel"
	"github.com/san-kum/plkernel/internal/metrics"
	"github.com/san-kum/plkernel/internal/session"
	"github.com/san-kum/plkernel/internal/sim"
	"github.com/san-kum/plkernel/internal/viz"
)

var (
	y0         float64
	vy0        float64
	dt         float64
	duration   float64
	batch      uint32
	gravity    float64
	configFile string
	preset     string
	format     string
	svgFile    string
	benchSteps uint32
	benchCalls int
	benchRuns  int
	themeName  string
	verbose    bool

	log = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "plkernel",
		Short:        "deterministic free-fall physics kernel",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log kernel calls to stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a drop and print the trajectory",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addWorldFlags(runCmd)
	runCmd.Flags().StringVar(&format, "format", "table", "output format: table, csv or json")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "plot height and velocity over time",
		Args:  cobra.NoArgs,
		RunE:  plotSimulation,
	}
	addWorldFlags(plotCmd)
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the height trace to an svg file")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time kernel step calls",
		Args:  cobra.NoArgs,
		RunE:  benchKernel,
	}
	benchCmd.Flags().Uint32Var(&benchSteps, "steps", kernel.MaxSteps, "steps per call")
	benchCmd.Flags().IntVar(&benchCalls, "calls", 1000, "number of step calls")
	benchCmd.Flags().IntVar(&benchRuns, "worlds", 8, "concurrent worlds for the ensemble pass")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "animate a drop in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addWorldFlags(liveCmd)
	liveCmd.Flags().StringVar(&themeName, "theme", viz.Themes[0].Name,
		fmt.Sprintf("color theme (%s)", strings.Join(viz.ThemeNames(), ", ")))

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tY0\tVY0\tDT\tTIME\tBATCH\tGRAVITY")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%d\t%g\n",
					name, p.Y0, p.VY0, p.Dt, p.Duration, p.Batch, p.GravityOrDefault())
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, plotCmd, benchCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	if !verbose {
		return nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	log = l
	kernel.SetLogger(l)
	return nil
}

func addWorldFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&y0, "y0", config.DefaultY0, "initial height (m)")
	cmd.Flags().Float64Var(&vy0, "vy0", 0, "initial vertical velocity (m/s)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	cmd.Flags().Uint32Var(&batch, "batch", config.DefaultBatch, "kernel steps per sample")
	cmd.Flags().Float64Var(&gravity, "gravity", 0, "gravitational acceleration (m/s^2), 0 keeps the default")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig applies preset, then config file, then explicitly set flags.
// Flag defaults match config.DefaultConfig.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("y0") {
		cfg.Y0 = y0
	}
	if flags.Changed("vy0") {
		cfg.VY0 = vy0
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("batch") {
		cfg.Batch = batch
	}
	if flags.Changed("gravity") {
		cfg.Kernel.Gravity = gravity
	}

	return cfg, nil
}

func newKernel(cfg *config.Config) *kernel.Kernel {
	return kernel.New(append(cfg.KernelOptions(), kernel.WithLogger(log))...)
}

// sampleLogger traces every recorded sample at debug level.
type sampleLogger struct{ log *zap.Logger }

func (s sampleLogger) OnStep(w dynamo.World) {
	s.log.Debug("sample", zap.Float64("t", w.T), zap.Float64("y", w.Y), zap.Float64("vy", w.VY))
}

func simulate(cmd *cobra.Command) (*config.Config, *sim.Result, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	g := cfg.GravityOrDefault()
	s := sim.New(newKernel(cfg))
	s.AddMetric(metrics.NewEnergy(g))
	s.AddMetric(metrics.NewEnergyDrift(g))
	s.AddMetric(metrics.NewMaxHeight())
	s.AddMetric(metrics.NewGroundTime())
	s.AddObserver(sampleLogger{log: log.Named("sim")})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := s.Run(ctx, cfg.SimConfig())
	if err != nil {
		return cfg, result, fmt.Errorf("simulation failed: %w", err)
	}
	return cfg, result, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	switch format {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	start := time.Now()
	cfg, result, err := simulate(cmd)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	switch format {
	case "csv":
		return export.WriteCSV(os.Stdout, result)
	case "json":
		return export.WriteJSON(os.Stdout, cfg.SimConfig(), result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T\tY\tVY")
	for _, s := range result.States {
		fmt.Fprintf(w, "%.4f\t%.6f\t%.6f\n", s.T, s.Y, s.VY)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ncompleted in %v\n", elapsed)
	fmt.Printf("samples: %d, kernel steps: %d\n", len(result.States), result.StepsTaken)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
}

func plotSimulation(cmd *cobra.Command, args []string) error {
	cfg, result, err := simulate(cmd)
	if err != nil {
		return err
	}
	if len(result.States) < 2 {
		return fmt.Errorf("no data to plot")
	}

	heights := make([]float64, len(result.States))
	velocities := make([]float64, len(result.States))
	for i, s := range result.States {
		heights[i] = s.Y
		velocities[i] = s.VY
	}

	fmt.Printf("y0: %g  vy0: %g  dt: %g  gravity: %g\n", cfg.Y0, cfg.VY0, cfg.Dt, cfg.GravityOrDefault())
	fmt.Printf("samples: %d\n\n", len(result.States))

	for _, series := range []struct {
		data    []float64
		caption string
	}{
		{heights, "height (m)"},
		{velocities, "velocity (m/s)"},
	} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgFile == "" {
		return nil
	}
	f, err := os.Create(svgFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteSVG(f, result, 800, 400, "#00ff88"); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	fmt.Printf("wrote %s\n", svgFile)
	return nil
}

// validateBench rejects flag values that cannot describe a benchmark.
func validateBench() error {
	if benchSteps == 0 {
		return fmt.Errorf("--steps must be at least 1")
	}
	if benchCalls < 1 || benchCalls > sim.MaxSamples {
		return fmt.Errorf("--calls must be between 1 and %d, got %d", sim.MaxSamples, benchCalls)
	}
	if benchRuns < 1 {
		return fmt.Errorf("--worlds must be at least 1, got %d", benchRuns)
	}
	return nil
}

func benchKernel(cmd *cobra.Command, args []string) error {
	if err := validateBench(); err != nil {
		return err
	}

	k := kernel.New(kernel.WithLogger(log))

	sess, err := session.Open(k, 1e9, 0)
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Printf("benchmarking %d calls x %d steps\n\n", benchCalls, benchSteps)
	start := time.Now()
	for i := 0; i < benchCalls; i++ {
		if err := sess.Step(1e-6, benchSteps); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	final, err := sess.State()
	if err != nil {
		return err
	}

	total := float64(benchCalls) * float64(benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PASS\tWORLDS\tSTEPS\tTIME\tSTEPS/SEC")
	fmt.Fprintf(w, "serial\t1\t%.0f\t%v\t%.0f\n", total, elapsed, total/elapsed.Seconds())

	cfgs := make([]sim.Config, benchRuns)
	for i := range cfgs {
		cfgs[i] = sim.Config{
			Y0:       1e9,
			Dt:       1e-6,
			Duration: float64(benchCalls) * float64(benchSteps) * 1e-6,
			Batch:    benchSteps,
		}
	}
	start = time.Now()
	results, err := sim.NewEnsemble(k, nil).Run(context.Background(), cfgs)
	if err != nil {
		return err
	}
	elapsed = time.Since(start)

	var ensembleSteps float64
	for _, r := range results {
		ensembleSteps += float64(r.StepsTaken)
	}
	fmt.Fprintf(w, "ensemble\t%d\t%.0f\t%v\t%.0f\n", benchRuns, ensembleSteps, elapsed, ensembleSteps/elapsed.Seconds())
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nfinal state: %v\n", final)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("live view needs a terminal on stdout")
	}

	theme, err := resolveTheme(themeName)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	return viz.Run(newKernel(cfg), cfg.SimConfig(), cfg.GravityOrDefault(), theme)
}

func resolveTheme(name string) (viz.Theme, error) {
	if !slices.Contains(viz.ThemeNames(), name) {
		return viz.Theme{}, fmt.Errorf("unknown theme: %s (available: %v)", name, viz.ThemeNames())
	}
	return viz.GetTheme(name), nil
}
