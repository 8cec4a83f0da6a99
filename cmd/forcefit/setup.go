package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/forcefit/internal/config"
	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/forcefield"
	"github.com/san-kum/forcefit/internal/logging"
	"github.com/san-kum/forcefit/internal/objective"
	"github.com/san-kum/forcefit/internal/penalty"
	"github.com/san-kum/forcefit/internal/report"
	"github.com/san-kum/forcefit/internal/targets"
)

// loadConfig resolves the configuration: preset first, then the config file,
// then any flag set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		group, name, _ := strings.Cut(preset, "/")
		p := config.GetPreset(group, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (groups: %v)", preset, config.ListGroups())
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
	if flags.Changed("penalty") {
		cfg.Penalty.Type = penaltyType
	}
	if flags.Changed("additive") {
		cfg.Penalty.Additive = additive
	}
	if flags.Changed("multiplicative") {
		cfg.Penalty.Multiplicative = multiplicative
	}
	if flags.Changed("hyperbolic-b") {
		cfg.Penalty.HyperbolicB = hyperbolicB
	}
	if flags.Changed("alpha") {
		cfg.Penalty.Alpha = alpha
	}
	if flags.Changed("no-normalize") {
		cfg.NormalizeWeights = !noNormalize
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("method") {
		cfg.Optimizer.Method = method
	}
	if flags.Changed("iterations") {
		cfg.Optimizer.MaxIterations = maxIter
	}
	if flags.Changed("data") || cfg.StoreDir == "" {
		cfg.StoreDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is everything a fitting command needs.
type session struct {
	cfg      *config.Config
	ff       *forcefield.ForceField
	pen      *penalty.Penalty
	obj      *objective.Objective
	reporter *report.Reporter
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	ff, err := forcefield.New(cfg.Parameters)
	if err != nil {
		return nil, err
	}

	pc, err := cfg.PenaltySettings()
	if err != nil {
		return nil, err
	}
	pen, err := penalty.New(pc,
		penalty.WithForceField(ff),
		penalty.WithAcknowledger(acknowledger(cmd.InOrStdin(), cmd.ErrOrStderr())),
	)
	if err != nil {
		return nil, err
	}

	tgts, err := targets.NewRegistry().BuildAll(cfg.TargetSpecs(), ff.NP())
	if err != nil {
		return nil, err
	}

	rep := report.NewReporter(cmd.OutOrStdout())
	obj, err := objective.New(tgts, pen, ff.NP(),
		objective.WithNormalizeWeights(cfg.NormalizeWeights),
		objective.WithVerbose(cfg.Verbose),
		objective.WithReporter(rep),
		objective.WithOutput(cmd.OutOrStdout()),
	)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, ff: ff, pen: pen, obj: obj, reporter: rep}, nil
}

// acknowledger asks on in whether to carry on after an identifier warning.
// With --yes every warning is logged and accepted.
func acknowledger(in io.Reader, out io.Writer) penalty.Acknowledger {
	reader := bufio.NewReader(in)
	return func(warning error) error {
		if assumeYes {
			logging.L().Warn("parameter.identifier", "warning", warning.Error())
			return nil
		}
		fmt.Fprintf(out, "warning: %v\ncontinue anyway? [y/N] ", warning)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("not acknowledged: %w", warning)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return nil
		}
		return fmt.Errorf("not acknowledged: %w", warning)
	}
}

// parseMVals reads a parameter vector from args, defaulting to all zeros
// (the initial force field).
func parseMVals(args []string, np int) ([]float64, error) {
	if len(args) == 0 {
		return make([]float64, np), nil
	}
	if len(args) != np {
		return nil, fmt.Errorf("%w: got %d values, the force field has %d parameters", fitting.ErrDimensionMismatch, len(args), np)
	}
	mvals := make([]float64, np)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		mvals[i] = v
	}
	return mvals, nil
}
