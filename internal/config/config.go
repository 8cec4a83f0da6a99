package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/forcefield"
	"github.com/san-kum/forcefit/internal/penalty"
	"github.com/san-kum/forcefit/internal/targets"
)

const (
	DefaultPenaltyType       = "L2"
	DefaultHyperbolicB       = penalty.DefaultCuspWidth
	DefaultAlpha             = penalty.DefaultAlpha
	DefaultWeight            = 1.0
	DefaultMethod            = "bfgs"
	DefaultMaxIterations     = 200
	DefaultGradientThreshold = 1e-8
	DefaultStoreDir          = ".forcefit"
)

type Config struct {
	Penalty          PenaltyConfig          `yaml:"penalty"`
	NormalizeWeights bool                   `yaml:"normalize_weights"`
	Verbose          bool                   `yaml:"verbose"`
	Parameters       []forcefield.Parameter `yaml:"parameters"`
	Targets          []TargetConfig         `yaml:"targets"`
	Optimizer        OptimizerConfig        `yaml:"optimizer"`
	StoreDir         string                 `yaml:"store_dir"`
}

type PenaltyConfig struct {
	Type           string  `yaml:"type"`
	Additive       float64 `yaml:"additive"`
	Multiplicative float64 `yaml:"multiplicative"`
	HyperbolicB    float64 `yaml:"hyperbolic_b"`
	Alpha          float64 `yaml:"alpha"`
}

type TargetConfig struct {
	Name             string               `yaml:"name"`
	Type             string               `yaml:"type"`
	Weight           float64              `yaml:"weight"`
	FiniteDifference bool                 `yaml:"finite_difference,omitempty"`
	Step             float64              `yaml:"fd_step,omitempty"`
	Params           map[string][]float64 `yaml:"params,omitempty"`
}

// UnmarshalYAML fills in the default weight for targets that omit it.
func (t *TargetConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain TargetConfig
	p := plain{Weight: DefaultWeight}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = TargetConfig(p)
	return nil
}

type OptimizerConfig struct {
	Method            string  `yaml:"method"`
	MaxIterations     int     `yaml:"max_iterations"`
	GradientThreshold float64 `yaml:"gradient_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Penalty: PenaltyConfig{
			Type:        DefaultPenaltyType,
			HyperbolicB: DefaultHyperbolicB,
			Alpha:       DefaultAlpha,
		},
		NormalizeWeights: true,
		Optimizer: OptimizerConfig{
			Method:            DefaultMethod,
			MaxIterations:     DefaultMaxIterations,
			GradientThreshold: DefaultGradientThreshold,
		},
		StoreDir: DefaultStoreDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PenaltySettings converts the penalty section, resolving the type name.
func (c *Config) PenaltySettings() (penalty.Config, error) {
	kind, err := penalty.ParseKind(c.Penalty.Type)
	if err != nil {
		return penalty.Config{}, err
	}
	return penalty.Config{
		Kind:           kind,
		Additive:       c.Penalty.Additive,
		Multiplicative: c.Penalty.Multiplicative,
		CuspWidth:      c.Penalty.HyperbolicB,
		Alpha:          c.Penalty.Alpha,
	}, nil
}

func (c *Config) TargetSpecs() []targets.Spec {
	specs := make([]targets.Spec, len(c.Targets))
	for i, t := range c.Targets {
		specs[i] = targets.Spec{
			Name:             t.Name,
			Type:             t.Type,
			Weight:           t.Weight,
			FiniteDifference: t.FiniteDifference,
			Step:             t.Step,
			Params:           t.Params,
		}
	}
	return specs
}

// Validate checks the parts of the configuration that can be checked
// without building anything.
func (c *Config) Validate() error {
	pc, err := c.PenaltySettings()
	if err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return err
	}
	if len(c.Parameters) == 0 {
		return fitting.NewConfigError("parameters", "", "at least one parameter is required")
	}
	if len(c.Targets) == 0 {
		return fitting.NewConfigError("targets", "", "at least one target is required")
	}
	for i, t := range c.Targets {
		if t.Type == "" {
			return fitting.NewConfigError(fmt.Sprintf("targets[%d].type", i), "", "type is required")
		}
		if t.Weight < 0 {
			return fitting.NewConfigError(fmt.Sprintf("targets[%d].weight", i), fmt.Sprint(t.Weight), "weight must be non-negative")
		}
	}
	if c.Optimizer.MaxIterations < 0 {
		return fitting.NewConfigError("optimizer.max_iterations", fmt.Sprint(c.Optimizer.MaxIterations), "must be non-negative")
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Parameters = append([]forcefield.Parameter(nil), c.Parameters...)
	out.Targets = make([]TargetConfig, len(c.Targets))
	for i, t := range c.Targets {
		if t.Params != nil {
			params := make(map[string][]float64, len(t.Params))
			for k, v := range t.Params {
				params[k] = append([]float64(nil), v...)
			}
			t.Params = params
		}
		out.Targets[i] = t
	}
	return &out
}
