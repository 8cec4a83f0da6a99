package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/forcefit/internal/config"
	"github.com/san-kum/forcefit/internal/logging"
)

var (
	dataDir    string
	configFile string
	preset     string
	debug      bool
	logJSON    bool
	assumeYes  bool

	// Penalty and objective settings; CLI flags override the config file.
	penaltyType    string
	additive       float64
	multiplicative float64
	hyperbolicB    float64
	alpha          float64
	noNormalize    bool
	verbose        bool

	order     string
	save      bool
	noSave    bool
	tolerance float64
	fdStep    float64
	axes      []string
	method    string
	maxIter   int
	jsonOut   bool
	logScale  bool
)

// main registers the forcefit commands and runs the one selected on the
// command line, exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "forcefit",
		Short:         "force-field objective function and regularization toolkit",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logging.Config{Debug: debug, JSON: logJSON, Writer: cmd.ErrOrStderr()})
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultStoreDir, "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration (group/name)")
	pf.BoolVar(&debug, "debug", false, "debug logging")
	pf.BoolVar(&logJSON, "log-json", false, "log as json")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "acknowledge parameter identifier warnings without asking")

	evalCmd := &cobra.Command{
		Use:   "eval [mvals...]",
		Short: "evaluate the objective and print its breakdown",
		RunE:  runEval,
	}
	addFitFlags(evalCmd)
	evalCmd.Flags().StringVar(&order, "order", "X", "derivative order (X, G or H)")
	evalCmd.Flags().BoolVar(&save, "save", false, "store the evaluation")

	penaltyCmd := &cobra.Command{
		Use:   "penalty [mvals...]",
		Short: "evaluate the regularization term alone",
		RunE:  runPenalty,
	}
	addFitFlags(penaltyCmd)

	checkCmd := &cobra.Command{
		Use:   "check [mvals...]",
		Short: "compare the analytic gradient with finite differences",
		RunE:  runCheck,
	}
	addFitFlags(checkCmd)
	checkCmd.Flags().Float64Var(&tolerance, "tol", 1e-5, "absolute or relative tolerance")
	checkCmd.Flags().Float64Var(&fdStep, "step", 0, "finite-difference step (0 for default)")

	scanCmd := &cobra.Command{
		Use:   "scan [mvals...]",
		Short: "scan parameters over a grid",
		RunE:  runScan,
	}
	addFitFlags(scanCmd)
	scanCmd.Flags().StringArrayVar(&axes, "axis", nil, "scan axis index:lo:hi:n (repeatable)")

	minimizeCmd := &cobra.Command{
		Use:   "minimize [mvals...]",
		Short: "minimize the objective with a gonum optimizer",
		RunE:  runMinimize,
	}
	addFitFlags(minimizeCmd)
	minimizeCmd.Flags().StringVar(&method, "method", config.DefaultMethod, "optimizer method")
	minimizeCmd.Flags().IntVar(&maxIter, "iterations", config.DefaultMaxIterations, "maximum major iterations")
	minimizeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show the breakdown of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&jsonOut, "json", false, "print the run as json")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the objective history of a run, or of all runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&logScale, "log", false, "log10 scale")

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a starting config file",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}

	rootCmd.AddCommand(evalCmd, penaltyCmd, checkCmd, scanCmd, minimizeCmd, listCmd, showCmd, plotCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFitFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&penaltyType, "penalty", config.DefaultPenaltyType, "penalty type (L1, L2, FUSE, FUSE_L0)")
	f.Float64Var(&additive, "additive", 0, "additive penalty factor")
	f.Float64Var(&multiplicative, "multiplicative", 0, "multiplicative penalty factor")
	f.Float64Var(&hyperbolicB, "hyperbolic-b", config.DefaultHyperbolicB, "cusp width of the hyperbolic and fusion penalties")
	f.Float64Var(&alpha, "alpha", config.DefaultAlpha, "switching parameter of the L0 fusion penalty")
	f.BoolVar(&noNormalize, "no-normalize", false, "use target weights as given")
	f.BoolVarP(&verbose, "verbose", "v", false, "print target diagnostics and the breakdown after every evaluation")
}
