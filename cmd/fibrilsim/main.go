package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/experiment"
	"github.com/san-kum/fibrilsim/internal/metrics"
	"github.com/san-kum/fibrilsim/internal/optim"
	"github.com/san-kum/fibrilsim/internal/storage"
	"github.com/san-kum/fibrilsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	exportOut  string
	paramsOut  string
	replicas   int
	sweepSpecs []string
	objective  string

	nDim        int
	nFibrilX    int
	nFibrilY    int
	nFibrilZ    int
	lFibril     int
	seed        int64
	bondK0      float64
	angleK0     float64
	angleTheta0 float64
	cutoff      float64
	minSep      float64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "fibrilsim",
		Short:        "coarse-grained collagen fibril builder and force-field evaluator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fibrilsim", "data directory")

	growCmd := &cobra.Command{
		Use:   "grow",
		Short: "grow fibrils, evaluate the force field and save the run",
		Args:  cobra.NoArgs,
		RunE:  runGrow,
	}
	d := config.DefaultParams()
	growCmd.Flags().StringVar(&configFile, "config", "", "parameter file (yaml or toml)")
	growCmd.Flags().StringVar(&preset, "preset", "", "use preset parameters")
	growCmd.Flags().IntVar(&nDim, "dim", d.NDim, "number of dimensions (2 or 3)")
	growCmd.Flags().IntVar(&nFibrilX, "nx", d.NFibrilX, "fibrils along x")
	growCmd.Flags().IntVar(&nFibrilY, "ny", d.NFibrilY, "fibrils along y")
	growCmd.Flags().IntVar(&nFibrilZ, "nz", d.NFibrilZ, "fibrils along z (3D only)")
	growCmd.Flags().IntVar(&lFibril, "length", d.LFibril, "beads per fibril")
	growCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")
	growCmd.Flags().Float64Var(&bondK0, "bond-k", d.BondK0, "bond stiffness")
	growCmd.Flags().Float64Var(&angleK0, "angle-k", d.AngleK0, "angle stiffness")
	growCmd.Flags().Float64Var(&angleTheta0, "theta0", d.AngleTheta0, "preferred bond angle (radians)")
	growCmd.Flags().Float64Var(&cutoff, "rc", d.Cutoff, "non-bonded cutoff")
	growCmd.Flags().Float64Var(&minSep, "min-sep", d.Growth.MinSeparation, "minimum bead separation during growth")
	growCmd.Flags().IntVar(&replicas, "replicas", 1, "independent replicas, seeded seed, seed+1, ...")

	energyCmd := &cobra.Command{
		Use:   "energy [run_id]",
		Short: "recompute energy, pressure and bond statistics of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  energyRun,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-bead force magnitudes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search force-field parameters against a metric",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "parameter file (yaml or toml)")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset parameters")
	sweepCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")
	sweepCmd.Flags().StringArrayVar(&sweepSpecs, "param", nil, "grid axis as name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&objective, "metric", optim.EnergyMetric, "metric to minimise")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDIM\tFIBRILS\tLENGTH\tBEADS")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", name, p.NDim, p.NFibril(), p.LFibril, p.NBead())
			}
			return w.Flush()
		},
	}

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "write a default parameter file",
		Args:  cobra.NoArgs,
		RunE:  writeParams,
	}
	paramsCmd.Flags().StringVar(&paramsOut, "out", "fibril_param.yaml", "output file (.yaml or .toml)")
	paramsCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	rootCmd.AddCommand(growCmd, energyCmd, listCmd, plotCmd, exportCmd, sweepCmd, presetsCmd, paramsCmd)
	return rootCmd
}

// buildParams layers a preset, then a parameter file, then explicit flags.
func buildParams(cmd *cobra.Command) (*config.Params, error) {
	cfg := config.DefaultParams()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dim") {
		cfg.NDim = nDim
	}
	if flags.Changed("nx") {
		cfg.NFibrilX = nFibrilX
	}
	if flags.Changed("ny") {
		cfg.NFibrilY = nFibrilY
	}
	if flags.Changed("nz") {
		cfg.NFibrilZ = nFibrilZ
	}
	if flags.Changed("length") {
		cfg.LFibril = lFibril
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("bond-k") {
		cfg.BondK0 = bondK0
	}
	if flags.Changed("angle-k") {
		cfg.AngleK0 = angleK0
	}
	if flags.Changed("theta0") {
		cfg.AngleTheta0 = angleTheta0
	}
	if flags.Changed("rc") {
		cfg.Cutoff = cutoff
	}
	if flags.Changed("min-sep") {
		cfg.Growth.MinSeparation = minSep
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if len(cfg.CellDim) != cfg.NDim {
		cfg.CellDim = cfg.Cell()
	}
	return cfg, cfg.Validate()
}

func runGrow(cmd *cobra.Command, args []string) error {
	cfg, err := buildParams(cmd)
	if err != nil {
		return err
	}
	if replicas < 1 {
		return fmt.Errorf("replicas must be positive, got %d", replicas)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "growing %d fibril(s) of %d beads in %dD...\n", cfg.NFibril(), cfg.LFibril, cfg.NDim)
	start := time.Now()

	var results []*experiment.Result
	if replicas == 1 {
		exp := experiment.New(cfg)
		if err := exp.Setup(metrics.Standard()); err != nil {
			return err
		}
		res, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		results = []*experiment.Result{res}
	} else {
		ens := experiment.NewEnsemble(cfg, replicas, cfg.Seed)
		results, err = ens.Run(context.Background())
		if err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	for i, res := range results {
		runCfg := cfg.Clone()
		runCfg.Seed = cfg.Seed + int64(i)

		runID, err := st.Save(runCfg, res.Positions, res.Force, res.Metrics)
		if err != nil {
			return err
		}

		fields := []viz.Field{
			viz.F("run id", "%s", runID),
			viz.F("seed", "%d", runCfg.Seed),
			viz.F("elapsed", "%v", elapsed.Round(time.Microsecond)),
			viz.F("cell", "%s", formatCell(res.Cell)),
			viz.F("beads", "%d", len(res.Positions)),
			viz.F("bonds", "%d", res.Topology.NBonds()),
			viz.F("angles", "%d", res.Topology.NAngles()),
			viz.F("retries", "%d", res.Growth.Retries),
			viz.F("energy", "%.6f", res.Force.Energy),
			viz.F("  bond", "%.6f", res.Force.Terms.Bond),
			viz.F("  angle", "%.6f", res.Force.Terms.Angle),
			viz.F("  vdw", "%.6f", res.Force.Terms.Vdw),
		}
		fields = append(fields, viz.MetricFields(res.Metrics)...)
		fmt.Fprintln(cmd.OutOrStdout(), viz.Report("fibril run", fields))
	}
	return nil
}

// resolveRun picks the run named in args, or the most recent one.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	meta, err := st.Latest()
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

func energyRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	cfg, err := st.LoadParams(runID)
	if err != nil {
		return err
	}
	pos, err := st.LoadPositions(runID)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(metrics.Standard()); err != nil {
		return err
	}
	res, err := exp.Evaluate(pos)
	if err != nil {
		return err
	}

	bonds, err := metrics.BondStats(res.Positions, res.Cell, res.Topology)
	if err != nil {
		return err
	}
	angles, err := metrics.AngleStats(res.Positions, res.Cell, res.Topology)
	if err != nil {
		return err
	}
	pressure, err := metrics.Pressure(res.Force.Virial, res.Cell)
	if err != nil {
		return err
	}

	fields := []viz.Field{
		viz.F("run id", "%s", runID),
		viz.F("energy", "%.6f", res.Force.Energy),
		viz.F("  bond", "%.6f", res.Force.Terms.Bond),
		viz.F("  angle", "%.6f", res.Force.Terms.Angle),
		viz.F("  vdw", "%.6f", res.Force.Terms.Vdw),
		viz.F("pressure", "%.6g", pressure),
		viz.F("bond length", "%.4f ± %.4f [%.4f, %.4f]", bonds.Mean, bonds.StdDev, bonds.Min, bonds.Max),
		viz.F("angle", "%.4f ± %.4f [%.4f, %.4f]", angles.Mean, angles.StdDev, angles.Min, angles.Max),
	}
	fmt.Fprintln(cmd.OutOrStdout(), viz.Report("energy", fields))

	if meta, err := st.Load(runID); err == nil && meta.Energy != res.Force.Energy {
		fmt.Fprintln(cmd.OutOrStdout(), viz.Warning.Render(
			fmt.Sprintf("stored energy %.6f differs from recomputed %.6f", meta.Energy, res.Force.Energy)))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tDIM\tFIBRILS\tLENGTH\tSEED\tENERGY")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NDim,
			run.NFibril,
			run.LFibril,
			run.Seed,
			run.Energy,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	forces, err := st.LoadArray(runID, storage.ForcesName)
	if err != nil {
		return err
	}

	mags := metrics.ForceMagnitudes(forces)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "beads: %d\n\n", len(mags))

	if err := viz.Plot(out, mags, "|F| per bead"); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, viz.Sparkline(mags, 80))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	if exportOut != "" {
		if err := st.ExportFile(exportOut, runID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", runID, exportOut)
		return nil
	}
	return st.ExportJSON(cmd.OutOrStdout(), runID)
}

// parseAxis reads "name=v1,v2,...".
func parseAxis(axis string) (string, []float64, error) {
	name, list, ok := strings.Cut(axis, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("bad grid axis %q, want name=v1,v2,...", axis)
	}
	var vals []float64
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return "", nil, fmt.Errorf("grid axis %s: %w", name, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	if len(sweepSpecs) == 0 {
		return fmt.Errorf("at least one --param axis is required (settable: %v)", config.Settable())
	}
	cfg, err := buildParams(cmd)
	if err != nil {
		return err
	}

	names := make([]string, len(sweepSpecs))
	ranges := make([][]float64, len(sweepSpecs))
	for i, axis := range sweepSpecs {
		if names[i], ranges[i], err = parseAxis(axis); err != nil {
			return err
		}
	}

	best, val, trials, err := optim.NewGridSearch(names, ranges).Search(context.Background(), cfg, objective)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(objective))
	for _, tr := range trials {
		row := make([]string, 0, len(names)+1)
		for _, name := range names {
			row = append(row, strconv.FormatFloat(tr.Params[name], 'g', 6, 64))
		}
		if tr.Err != nil {
			row = append(row, "error: "+tr.Err.Error())
		} else {
			row = append(row, strconv.FormatFloat(tr.Value, 'g', 8, 64))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fields := make([]viz.Field, 0, len(names)+1)
	for _, name := range names {
		fields = append(fields, viz.F(name, "%g", best[name]))
	}
	fields = append(fields, viz.F(objective, "%.6g", val))
	fmt.Fprintln(cmd.OutOrStdout(), viz.Report("best point", fields))
	return nil
}

func writeParams(cmd *cobra.Command, args []string) error {
	p := config.DefaultParams()
	if preset != "" {
		if p = config.GetPreset(preset); p == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	ext := strings.TrimPrefix(filepath.Ext(paramsOut), ".")
	if ext == "" {
		ext = "yaml"
	}
	path := filepath.Join(filepath.Dir(paramsOut), config.FileName(filepath.Base(paramsOut), "param", ext))
	if err := config.Save(path, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func formatCell(cell []float64) string {
	parts := make([]string, len(cell))
	for i, l := range cell {
		parts[i] = fmt.Sprintf("%.2f", l)
	}
	return strings.Join(parts, " × ")
}
