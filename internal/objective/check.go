package objective

import (
	"context"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/forcefit/internal/fitting"
)

// DefaultCheckStep is the central-difference step used by CheckGradient when
// none is given.
const DefaultCheckStep = 1e-4

// GradientCheck compares an analytic gradient with a central difference.
type GradientCheck struct {
	Analytic []float64
	Numeric  []float64
	// Worst is the index with the largest absolute disagreement.
	Worst  int
	MaxAbs float64
	MaxRel float64
}

// Agrees reports whether every component matches within tol, either
// absolutely or relative to the larger of the two magnitudes.
func (c *GradientCheck) Agrees(tol float64) bool {
	for i := range c.Analytic {
		a, n := c.Analytic[i], c.Numeric[i]
		d := math.Abs(a - n)
		if d <= tol {
			continue
		}
		if d/math.Max(math.Abs(a), math.Abs(n)) > tol {
			return false
		}
	}
	return true
}

// CheckGradient evaluates the analytic gradient of obj at mvals and a
// central-difference gradient from the objective value. Every evaluation runs
// as a probe, so the ledger is not touched.
func CheckGradient(ctx context.Context, obj *Objective, mvals []float64, step float64) (*GradientCheck, error) {
	if step <= 0 {
		step = DefaultCheckStep
	}
	ctx = fitting.WithProbe(ctx)

	res, err := obj.Evaluate(ctx, mvals, fitting.OrderGradient)
	if err != nil {
		return nil, err
	}

	var ferr error
	f := func(x []float64) float64 {
		if ferr != nil {
			return math.NaN()
		}
		r, err := obj.Evaluate(ctx, x, fitting.OrderValue)
		if err != nil {
			ferr = err
			return math.NaN()
		}
		return r.X
	}
	numeric := fd.Gradient(nil, f, mvals, &fd.Settings{Formula: fd.Central, Step: step})
	if ferr != nil {
		return nil, ferr
	}

	check := &GradientCheck{
		Analytic: append([]float64(nil), res.G...),
		Numeric:  numeric,
	}
	diff := make([]float64, len(numeric))
	floats.SubTo(diff, check.Analytic, numeric)
	for i, d := range diff {
		d = math.Abs(d)
		if d > check.MaxAbs {
			check.MaxAbs = d
			check.Worst = i
		}
		if scale := math.Max(math.Abs(check.Analytic[i]), math.Abs(numeric[i])); scale > 0 {
			check.MaxRel = math.Max(check.MaxRel, d/scale)
		}
	}
	return check, nil
}
