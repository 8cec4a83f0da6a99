package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/forcefield"
	"github.com/san-kum/forcefit/internal/penalty"
	"github.com/san-kum/forcefit/internal/targets"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Penalty.Type != "L2" {
		t.Errorf("expected penalty L2, got %s", cfg.Penalty.Type)
	}
	if cfg.Penalty.Additive != 0 || cfg.Penalty.Multiplicative != 0 {
		t.Error("penalty factors should default to zero")
	}
	if cfg.Penalty.HyperbolicB != 1e-6 {
		t.Errorf("expected hyperbolic_b 1e-6, got %g", cfg.Penalty.HyperbolicB)
	}
	if cfg.Penalty.Alpha != 1e-3 {
		t.Errorf("expected alpha 1e-3, got %g", cfg.Penalty.Alpha)
	}
	if !cfg.NormalizeWeights {
		t.Error("weights should be normalized by default")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fit.yaml")
	data := `
penalty:
  type: hyperbolic
  additive: 0.5
parameters:
  - id: a
    initial: 1
  - id: b
    initial: 2
    scale: 0.5
targets:
  - name: well
    type: quadratic_well
  - name: lin
    type: linear
    weight: 3
    finite_difference: true
    params:
      a: [1, 0, 0, 1]
      b: [1, 1]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Penalty.HyperbolicB != 1e-6 {
		t.Errorf("unset hyperbolic_b should keep its default, got %g", cfg.Penalty.HyperbolicB)
	}
	if cfg.Targets[0].Weight != 1 {
		t.Errorf("omitted weight should default to 1, got %g", cfg.Targets[0].Weight)
	}
	if cfg.Targets[1].Weight != 3 {
		t.Errorf("expected weight 3, got %g", cfg.Targets[1].Weight)
	}

	pc, err := cfg.PenaltySettings()
	if err != nil {
		t.Fatal(err)
	}
	if pc.Kind != penalty.Hyperbolic || pc.Additive != 0.5 {
		t.Errorf("penalty = %+v", pc)
	}

	specs := cfg.TargetSpecs()
	if len(specs) != 2 || !specs[1].FiniteDifference || len(specs[1].Params["a"]) != 4 {
		t.Errorf("specs = %+v", specs)
	}
	if _, err := targets.NewRegistry().BuildAll(specs, len(cfg.Parameters)); err != nil {
		t.Errorf("BuildAll: %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fit.yaml")
	cfg := GetPreset("basis", "fusion")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Penalty.Type != "FUSE" || len(loaded.Parameters) != 4 || !loaded.Parameters[0].Log {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Parameters = []forcefield.Parameter{{ID: "a", Initial: 1}}
		cfg.Targets = []TargetConfig{{Name: "w", Type: "quadratic_well", Weight: 1}}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown penalty", func(c *Config) { c.Penalty.Type = "L3" }},
		{"zero cusp width", func(c *Config) { c.Penalty.HyperbolicB = 0 }},
		{"negative additive", func(c *Config) { c.Penalty.Additive = -1 }},
		{"no parameters", func(c *Config) { c.Parameters = nil }},
		{"no targets", func(c *Config) { c.Targets = nil }},
		{"target without type", func(c *Config) { c.Targets[0].Type = "" }},
		{"negative weight", func(c *Config) { c.Targets[0].Weight = -2 }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); !fitting.IsConfig(err) {
				t.Errorf("expected a config error, got %v", err)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("regularization", "ridge")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Penalty.Additive != 0.1 {
		t.Errorf("expected additive 0.1, got %f", cfg.Penalty.Additive)
	}
	if cfg.Optimizer.Method != DefaultMethod {
		t.Errorf("preset should carry the default optimizer, got %q", cfg.Optimizer.Method)
	}

	cfg.Targets[0].Params["b"][0] = 99
	again := GetPreset("regularization", "ridge")
	if again.Targets[0].Params["b"][0] == 99 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("regularization", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "ridge") != nil {
		t.Error("expected nil for nonexistent group")
	}
}

func TestPresetsAreValid(t *testing.T) {
	for _, group := range ListGroups() {
		for _, name := range ListPresets(group) {
			cfg := GetPreset(group, name)
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", group, name, err)
			}
			ff, err := forcefield.New(cfg.Parameters)
			if err != nil {
				t.Errorf("%s/%s: %v", group, name, err)
				continue
			}
			if _, err := targets.NewRegistry().BuildAll(cfg.TargetSpecs(), ff.NP()); err != nil {
				t.Errorf("%s/%s: %v", group, name, err)
			}
		}
	}
}

func TestListPresets(t *testing.T) {
	if len(ListPresets("basis")) != 2 {
		t.Errorf("expected two basis presets, got %v", ListPresets("basis"))
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent group")
	}
}
