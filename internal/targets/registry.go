// Package targets provides the fitting targets that can be named in a
// configuration file and the registry that builds them.
package targets

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/forcefit/internal/fitting"
)

var (
	ErrUnknownType = errors.New("targets: unknown target type")
	ErrBadParams   = errors.New("targets: invalid target parameters")
)

// Spec describes one target as configured.
type Spec struct {
	Name             string
	Type             string
	Weight           float64
	FiniteDifference bool
	Step             float64
	Params           map[string][]float64
}

// Factory builds a target for np fit parameters.
type Factory func(spec Spec, np int) (fitting.Target, error)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register("linear", func(spec Spec, np int) (fitting.Target, error) { return NewLinear(spec, np) })
	r.Register("quadratic_well", func(spec Spec, np int) (fitting.Target, error) { return NewWell(spec, np) })
	r.Register("rosenbrock", func(spec Spec, np int) (fitting.Target, error) { return NewRosenbrock(spec, np) })

	return r
}

func (r *Registry) Register(kind string, f Factory) { r.factories[kind] = f }

// Build creates the target described by spec, wrapped in finite
// differences when requested.
func (r *Registry) Build(spec Spec, np int) (fitting.Target, error) {
	fn, ok := r.factories[spec.Type]
	if !ok {
		return nil, &fitting.ConfigError{Field: "target.type", Value: spec.Type, Err: ErrUnknownType}
	}
	if spec.Name == "" {
		spec.Name = spec.Type
	}
	if !(spec.Weight >= 0) || math.IsInf(spec.Weight, 0) {
		return nil, fitting.NewConfigError("target.weight", fmt.Sprint(spec.Weight), "weight of %s must be non-negative", spec.Name)
	}
	t, err := fn(spec, np)
	if err != nil {
		return nil, err
	}
	if spec.FiniteDifference {
		return NewFiniteDifference(t, spec.Step), nil
	}
	return t, nil
}

// BuildAll builds every spec in order.
func (r *Registry) BuildAll(specs []Spec, np int) ([]fitting.Target, error) {
	out := make([]fitting.Target, 0, len(specs))
	for _, spec := range specs {
		t, err := r.Build(spec, np)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// param returns spec.Params[key], or def when the key is absent.
func param(spec Spec, key string, def []float64) []float64 {
	if v, ok := spec.Params[key]; ok {
		return v
	}
	return def
}

// scalar returns a single-valued parameter.
func scalar(spec Spec, key string, def float64) (float64, error) {
	v := param(spec, key, []float64{def})
	if len(v) != 1 {
		return 0, paramError(spec, key, "expected a single value, got %d", len(v))
	}
	return v[0], nil
}

func paramError(spec Spec, key, format string, args ...any) error {
	return &fitting.ConfigError{
		Field: spec.Name + ".params." + key,
		Err:   fmt.Errorf("%w: %s", ErrBadParams, fmt.Sprintf(format, args...)),
	}
}
