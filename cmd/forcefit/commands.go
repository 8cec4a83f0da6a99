package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/forcefit/internal/config"
	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/objective"
	"github.com/san-kum/forcefit/internal/report"
	"github.com/san-kum/forcefit/internal/scan"
	"github.com/san-kum/forcefit/internal/storage"
)

func runEval(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ord, err := fitting.ParseOrder(order)
	if err != nil {
		return err
	}
	mvals, err := parseMVals(args, s.ff.NP())
	if err != nil {
		return err
	}

	res, err := s.obj.Evaluate(cmd.Context(), mvals, ord)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	// verbose evaluations have already been reported
	if !s.cfg.Verbose {
		if err := s.reporter.Report(s.obj.Ledger()); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, s.reporter.Last().Summary())
	fmt.Fprintln(out)
	printTerms(cmd, s, res, ord)

	if save {
		meta, err := evalRecord(s, mvals, ord, res)
		if err != nil {
			return err
		}
		id, err := storage.New(s.cfg.StoreDir).Save(meta, s.obj.Ledger().Previous(), nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved: %s\n", id)
	}
	return nil
}

// evalRecord builds the stored metadata for a single evaluation.
func evalRecord(s *session, mvals []float64, ord fitting.Order, res *objective.Result) (storage.RunMetadata, error) {
	pvals, err := s.ff.ToPhysical(mvals)
	if err != nil {
		return storage.RunMetadata{}, err
	}
	return storage.RunMetadata{
		Command:        "eval",
		Penalty:        s.pen.Describe(),
		Order:          ord.String(),
		Parameters:     s.ff.Identifiers(),
		MVals:          mvals,
		PVals:          pvals,
		X:              res.X,
		Raw:            res.Raw.X,
		Regularization: res.Regularization.X,
		Evaluations:    1,
	}, nil
}

func printTerms(cmd *cobra.Command, s *session, res *objective.Result, ord fitting.Order) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "X\t% .8e\t(raw % .8e, regularization % .8e)\n", res.X, res.Raw.X, res.Regularization.X)
	if ord >= fitting.OrderGradient {
		fmt.Fprintln(w, "PARAMETER\tG\tRAW G\tH DIAG")
		for i, id := range s.ff.Identifiers() {
			fmt.Fprintf(w, "%s\t% .6e\t% .6e\t% .6e\n", id, res.G[i], res.Raw.G[i], res.H.At(i, i))
		}
	}
	w.Flush()
}

func runPenalty(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	mvals, err := parseMVals(args, s.ff.NP())
	if err != nil {
		return err
	}

	k0, k1, k2, err := s.pen.Function().Evaluate(mvals)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.TitleStyle.Render(s.pen.Describe()))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "K0\t% .8e\n", k0)
	fmt.Fprintln(w, "PARAMETER\tK1\tK2 DIAG")
	for i, id := range s.ff.Identifiers() {
		fmt.Fprintf(w, "%s\t% .6e\t% .6e\n", id, k1[i], k2.At(i, i))
	}
	return w.Flush()
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	mvals, err := parseMVals(args, s.ff.NP())
	if err != nil {
		return err
	}

	check, err := objective.CheckGradient(cmd.Context(), s.obj, mvals, fdStep)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tANALYTIC\tNUMERIC\tDIFF")
	for i, id := range s.ff.Identifiers() {
		fmt.Fprintf(w, "%s\t% .8e\t% .8e\t% .2e\n", id, check.Analytic[i], check.Numeric[i], check.Analytic[i]-check.Numeric[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !check.Agrees(tolerance) {
		return fmt.Errorf("gradient mismatch: worst parameter %s, abs %.2e, rel %.2e",
			s.ff.Identifiers()[check.Worst], check.MaxAbs, check.MaxRel)
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.ImprovedStyle.Render("gradient ok"))
	return nil
}

// parseAxis reads index:lo:hi:n.
func parseAxis(spec string) (scan.Axis, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return scan.Axis{}, fmt.Errorf("axis %q: expected index:lo:hi:n", spec)
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return scan.Axis{}, fmt.Errorf("axis %q: %w", spec, err)
	}
	lo, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return scan.Axis{}, fmt.Errorf("axis %q: %w", spec, err)
	}
	hi, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return scan.Axis{}, fmt.Errorf("axis %q: %w", spec, err)
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n < 1 {
		return scan.Axis{}, fmt.Errorf("axis %q: point count must be a positive integer", spec)
	}
	return scan.Span(idx, lo, hi, n), nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(axes) == 0 {
		return errors.New("at least one --axis is required")
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	base, err := parseMVals(args, s.ff.NP())
	if err != nil {
		return err
	}

	grid := make([]scan.Axis, 0, len(axes))
	for _, a := range axes {
		axis, err := parseAxis(a)
		if err != nil {
			return err
		}
		grid = append(grid, axis)
	}

	g := scan.NewGridSearch(grid...)
	fmt.Fprintf(cmd.OutOrStdout(), "scanning %d points...\n", g.Size())
	res, err := g.Search(cmd.Context(), s.obj, base)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.PlotHistory(res.Values(), "objective over scan points", logScale))
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "best X\t% .8e\n", res.Best.X)
	for i, id := range s.ff.Identifiers() {
		fmt.Fprintf(w, "%s\t% .6f\n", id, res.Best.MVals[i])
	}
	return w.Flush()
}

func runMinimize(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	x0, err := parseMVals(args, s.ff.NP())
	if err != nil {
		return err
	}
	m, err := objective.ParseMethod(s.cfg.Optimizer.Method)
	if err != nil {
		return err
	}

	rec := storage.NewRecorder()
	s.obj.AddObserver(rec)

	settings := &optimize.Settings{
		MajorIterations:   s.cfg.Optimizer.MaxIterations,
		GradientThreshold: s.cfg.Optimizer.GradientThreshold,
	}
	ctx := cmd.Context()
	result, err := objective.Minimize(ctx, s.obj, x0, m, settings)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.PlotHistory(rec.Values(), "objective per evaluation", logScale))
	fmt.Fprintln(out)

	final, err := s.obj.Evaluate(ctx, result.Location.X, fitting.OrderValue)
	if err != nil {
		return err
	}
	if err := s.reporter.Report(s.obj.Ledger()); err != nil {
		return err
	}

	pvals, err := s.ff.ToPhysical(result.Location.X)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "status\t%s\n", result.Status)
	fmt.Fprintf(w, "evaluations\t%d\n", len(rec.Steps()))
	fmt.Fprintln(w, "PARAMETER\tMVAL\tPVAL")
	for i, id := range s.ff.Identifiers() {
		fmt.Fprintf(w, "%s\t% .6f\t% .6g\n", id, result.Location.X[i], pvals[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if noSave {
		return nil
	}
	id, err := storage.New(s.cfg.StoreDir).Save(storage.RunMetadata{
		Command:        "minimize",
		Penalty:        s.pen.Describe(),
		Order:          fitting.OrderValue.String(),
		Parameters:     s.ff.Identifiers(),
		MVals:          result.Location.X,
		PVals:          pvals,
		X:              final.X,
		Raw:            final.Raw.X,
		Regularization: final.Regularization.X,
		Evaluations:    len(rec.Steps()),
		Status:         result.Status.String(),
	}, s.obj.Ledger().Previous(), rec.Steps())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "saved: %s\n", id)
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
	fmt.Fprintln(w, "ID\tTIME\tNP\tX\tREGULARIZATION\tEVALS\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t% .6e\t% .3e\t%d\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			len(run.Parameters),
			run.X,
			run.Regularization,
			run.Evaluations,
			run.Status,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if jsonOut {
		return st.Export(args[0], cmd.OutOrStdout())
	}

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	b, err := st.LoadBreakdown(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.MetricLabel.Render(meta.Penalty))
	fmt.Fprint(out, report.Render(b, nil).String())
	fmt.Fprintln(out, report.Separator(60))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tMVAL\tPVAL")
	for i, id := range meta.Parameters {
		pv := ""
		if i < len(meta.PVals) {
			pv = strconv.FormatFloat(meta.PVals[i], 'g', 6, 64)
		}
		fmt.Fprintf(w, "%s\t% .6f\t%s\n", id, meta.MVals[i], pv)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		hist, err := st.History()
		if err != nil {
			return err
		}
		if len(hist) == 0 {
			fmt.Fprintln(out, "no runs found")
			return nil
		}
		fmt.Fprintln(out, report.PlotHistory(hist, "objective over stored runs", logScale))
		fmt.Fprintln(out, report.Sparkline(hist, 40))
		return nil
	}

	steps, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		fmt.Fprintf(out, "run %s has no history\n", args[0])
		return nil
	}
	values := make([]float64, len(steps))
	for i, s := range steps {
		values[i] = s.X
	}
	fmt.Fprintln(out, report.PlotHistory(values, args[0], logScale))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	groups := config.ListGroups()
	if len(args) == 1 {
		groups = []string{args[0]}
	}
	for _, g := range groups {
		presets := config.ListPresets(g)
		if len(presets) == 0 {
			fmt.Fprintf(out, "no presets for group: %s\n", g)
			continue
		}
		fmt.Fprintf(out, "%s:\n", g)
		for _, p := range presets {
			cfg := config.GetPreset(g, p)
			fmt.Fprintf(out, "  %-12s %s, %d parameters, %d targets\n", p, cfg.Penalty.Type, len(cfg.Parameters), len(cfg.Targets))
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.GetPreset("regularization", "ridge")
	if preset != "" {
		group, name, _ := strings.Cut(preset, "/")
		cfg = config.GetPreset(group, name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s", preset)
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
