package config

import (
	"sort"
	"strconv"

	"github.com/san-kum/forcefit/internal/forcefield"
)

func exponent(elem, amom string, bas int, initial float64) forcefield.Parameter {
	return forcefield.Parameter{
		ID:      "Exponent:Elem=" + elem + ",AMom=" + amom + ",Bas=" + strconv.Itoa(bas) + ",Con=0",
		Initial: initial,
		Scale:   0.1,
		Log:     true,
	}
}

var twoParams = []forcefield.Parameter{
	{ID: "bond/k", Initial: 450, Scale: 10},
	{ID: "bond/r0", Initial: 1.09, Scale: 0.01},
}

var Presets = map[string]map[string]*Config{
	"regularization": {
		"ridge": {
			Penalty:          PenaltyConfig{Type: "L2", Additive: 0.1, HyperbolicB: DefaultHyperbolicB, Alpha: DefaultAlpha},
			NormalizeWeights: true,
			Parameters:       twoParams,
			Targets: []TargetConfig{
				{Name: "bond_energies", Type: "linear", Weight: 1, Params: map[string][]float64{
					"a": {1, 0.5, 0.2, 1, 1, 1},
					"b": {1.2, 0.4, 1.5},
				}},
				{Name: "geometry", Type: "quadratic_well", Weight: 0.5, Params: map[string][]float64{"center": {0.5, -0.5}}},
			},
		},
		"lasso": {
			Penalty:          PenaltyConfig{Type: "L1", Additive: 0.05, HyperbolicB: DefaultHyperbolicB, Alpha: DefaultAlpha},
			NormalizeWeights: true,
			Parameters:       twoParams,
			Targets: []TargetConfig{
				{Name: "geometry", Type: "quadratic_well", Weight: 1, Params: map[string][]float64{"center": {0.02, -1.5}}},
			},
		},
		"scaled": {
			Penalty:          PenaltyConfig{Type: "L2", Multiplicative: 0.1, HyperbolicB: DefaultHyperbolicB, Alpha: DefaultAlpha},
			NormalizeWeights: true,
			Parameters:       twoParams,
			Targets: []TargetConfig{
				{Name: "valley", Type: "rosenbrock", Weight: 1, Params: map[string][]float64{"a": {0.5}}},
			},
		},
	},
	"basis": {
		"fusion": {
			Penalty:          PenaltyConfig{Type: "FUSE", Additive: 0.01, HyperbolicB: 1e-3, Alpha: DefaultAlpha},
			NormalizeWeights: true,
			Parameters: []forcefield.Parameter{
				exponent("C", "S", 0, 6.665),
				exponent("C", "S", 1, 1.0),
				exponent("C", "S", 2, 0.9),
				exponent("C", "P", 0, 0.35),
			},
			Targets: []TargetConfig{
				{Name: "energies", Type: "quadratic_well", Weight: 1, Params: map[string][]float64{"center": {0.5, 0.2, -0.3, 0}}},
			},
		},
		"fusion_l0": {
			Penalty:          PenaltyConfig{Type: "FUSE_L0", Additive: 0.01, HyperbolicB: 1e-3, Alpha: 1},
			NormalizeWeights: true,
			Parameters: []forcefield.Parameter{
				exponent("H", "S", 0, 1.2),
				exponent("H", "S", 1, 1.1),
				exponent("H", "P", 0, 0.8),
			},
			Targets: []TargetConfig{
				{Name: "energies", Type: "quadratic_well", Weight: 1, FiniteDifference: true},
			},
		},
	},
}

// GetPreset returns a copy of the named preset with the default optimizer
// settings, or nil if it does not exist.
func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	cfg, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	def := DefaultConfig()
	out.Optimizer = def.Optimizer
	out.StoreDir = def.StoreDir
	return out
}

func ListGroups() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
