// Package forcefield maps mathematical fit parameters onto physical force-field
// values and exposes the parameter identifiers used to classify them.
package forcefield

import (
	"fmt"
	"math"

	"github.com/san-kum/forcefit/internal/fitting"
)

// Parameter describes one fit parameter. Mathematical value m maps to the
// physical value Initial + Scale·m, or Initial·exp(Scale·m) when Log is set.
type Parameter struct {
	ID      string  `yaml:"id" json:"id"`
	Initial float64 `yaml:"initial" json:"initial"`
	Scale   float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	Log     bool    `yaml:"log,omitempty" json:"log,omitempty"`
}

type ForceField struct {
	params []Parameter
	ids    []string
}

func New(params []Parameter) (*ForceField, error) {
	if len(params) == 0 {
		return nil, fitting.NewConfigError("parameters", "", "at least one parameter is required")
	}

	ff := &ForceField{
		params: make([]Parameter, len(params)),
		ids:    make([]string, len(params)),
	}
	seen := make(map[string]int, len(params))
	for i, p := range params {
		if p.ID == "" {
			return nil, fitting.NewConfigError(fmt.Sprintf("parameters[%d].id", i), "", "identifier must not be empty")
		}
		if j, dup := seen[p.ID]; dup {
			return nil, fitting.NewConfigError(fmt.Sprintf("parameters[%d].id", i), p.ID, "duplicates parameters[%d]", j)
		}
		seen[p.ID] = i
		if p.Scale == 0 {
			p.Scale = 1
		}
		if p.Log && p.Initial <= 0 {
			return nil, fitting.NewConfigError(fmt.Sprintf("parameters[%d].initial", i), fmt.Sprint(p.Initial), "log-scaled parameter must start positive")
		}
		ff.params[i] = p
		ff.ids[i] = p.ID
	}
	return ff, nil
}

// NP returns the number of fit parameters.
func (f *ForceField) NP() int { return len(f.params) }

// Identifiers returns the parameter identifiers in parameter order.
func (f *ForceField) Identifiers() []string {
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out
}

func (f *ForceField) Parameters() []Parameter {
	out := make([]Parameter, len(f.params))
	copy(out, f.params)
	return out
}

// ToPhysical converts mathematical parameters to physical values.
func (f *ForceField) ToPhysical(mvals []float64) ([]float64, error) {
	if len(mvals) != len(f.params) {
		return nil, fmt.Errorf("%w: got %d mvals for %d parameters", fitting.ErrDimensionMismatch, len(mvals), len(f.params))
	}
	pvals := make([]float64, len(mvals))
	for i, p := range f.params {
		if p.Log {
			pvals[i] = p.Initial * math.Exp(p.Scale*mvals[i])
		} else {
			pvals[i] = p.Initial + p.Scale*mvals[i]
		}
	}
	return pvals, nil
}

// ToMathematical inverts ToPhysical.
func (f *ForceField) ToMathematical(pvals []float64) ([]float64, error) {
	if len(pvals) != len(f.params) {
		return nil, fmt.Errorf("%w: got %d pvals for %d parameters", fitting.ErrDimensionMismatch, len(pvals), len(f.params))
	}
	mvals := make([]float64, len(pvals))
	for i, p := range f.params {
		if p.Log {
			if pvals[i] <= 0 {
				return nil, fmt.Errorf("parameter %s: physical value %g has no logarithm", p.ID, pvals[i])
			}
			mvals[i] = math.Log(pvals[i]/p.Initial) / p.Scale
		} else {
			mvals[i] = (pvals[i] - p.Initial) / p.Scale
		}
	}
	return mvals, nil
}
