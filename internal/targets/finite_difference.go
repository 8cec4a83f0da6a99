package targets

import (
	"context"
	"io"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/forcefit/internal/fitting"
)

const (
	DefaultGradientStep = 1e-6
	DefaultHessianStep  = 1e-4
)

// FiniteDifference derives a target's gradient and Hessian from its value
// with central differences. The displaced evaluations run under a probe
// context.
type FiniteDifference struct {
	inner    fitting.Target
	gradStep float64
	hessStep float64
}

// NewFiniteDifference wraps t. A non-positive step selects the defaults.
func NewFiniteDifference(t fitting.Target, step float64) *FiniteDifference {
	f := &FiniteDifference{inner: t, gradStep: DefaultGradientStep, hessStep: DefaultHessianStep}
	if step > 0 {
		f.gradStep = step
		f.hessStep = step
	}
	return f
}

func (f *FiniteDifference) Name() string           { return f.inner.Name() }
func (f *FiniteDifference) Weight() float64        { return f.inner.Weight() }
func (f *FiniteDifference) Unwrap() fitting.Target { return f.inner }

func (f *FiniteDifference) Value(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	return f.inner.Value(ctx, mvals)
}

// scalar turns the wrapped target into a plain function for gonum. The first
// error stops further evaluations and is kept in *errp.
func (f *FiniteDifference) scalar(ctx context.Context, errp *error) func([]float64) float64 {
	pctx := fitting.WithProbe(ctx)
	return func(x []float64) float64 {
		if *errp != nil {
			return math.NaN()
		}
		t, err := f.inner.Value(pctx, x)
		if err != nil {
			*errp = err
			return math.NaN()
		}
		return t.X
	}
}

func (f *FiniteDifference) Gradient(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	out, err := f.inner.Value(ctx, mvals)
	if err != nil {
		return fitting.Terms{}, err
	}
	var ferr error
	out.G = fd.Gradient(nil, f.scalar(ctx, &ferr), mvals, &fd.Settings{
		Formula: fd.Central,
		Step:    f.gradStep,
	})
	if ferr != nil {
		return fitting.Terms{}, ferr
	}
	out.H = mat.NewSymDense(len(mvals), nil)
	return out, nil
}

func (f *FiniteDifference) Hessian(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	out, err := f.Gradient(ctx, mvals)
	if err != nil {
		return fitting.Terms{}, err
	}
	var ferr error
	fd.Hessian(out.H, f.scalar(ctx, &ferr), mvals, &fd.Settings{
		Formula: fd.Central,
		Step:    f.hessStep,
	})
	if ferr != nil {
		return fitting.Terms{}, ferr
	}
	return out, nil
}

func (f *FiniteDifference) Indicate(w io.Writer) {
	if ind, ok := f.inner.(fitting.Indicator); ok {
		ind.Indicate(w)
	}
}
