package targets

import (
	"context"
	"fmt"
	"io"

	"github.com/san-kum/forcefit/internal/fitting"
)

// Well is a separable harmonic well, X = Σ k_i (m_i − c_i)².
//
// Params: "center" (default zero) and "k" (one value for all parameters or
// one per parameter, default 1).
type Well struct {
	base
	center []float64
	k      []float64
}

func NewWell(spec Spec, np int) (*Well, error) {
	center := param(spec, "center", make([]float64, np))
	if len(center) != np {
		return nil, paramError(spec, "center", "got %d values for %d parameters", len(center), np)
	}
	k := param(spec, "k", []float64{1})
	switch len(k) {
	case 1:
		kk := make([]float64, np)
		for i := range kk {
			kk[i] = k[0]
		}
		k = kk
	case np:
	default:
		return nil, paramError(spec, "k", "got %d values for %d parameters", len(k), np)
	}
	for i, v := range k {
		if v < 0 {
			return nil, paramError(spec, "k", "force constant %d is negative", i)
		}
	}
	return &Well{
		base:   base{name: spec.Name, weight: spec.Weight},
		center: append([]float64(nil), center...),
		k:      append([]float64(nil), k...),
	}, nil
}

func (w *Well) eval(mvals []float64, order fitting.Order) (fitting.Terms, error) {
	if len(mvals) != len(w.center) {
		return fitting.Terms{}, fmt.Errorf("%w: %s expects %d parameters, got %d", fitting.ErrDimensionMismatch, w.name, len(w.center), len(mvals))
	}
	out := fitting.NewTerms(len(mvals))
	for i, m := range mvals {
		d := m - w.center[i]
		out.X += w.k[i] * d * d
		if order >= fitting.OrderGradient {
			out.G[i] = 2 * w.k[i] * d
		}
		if order >= fitting.OrderHessian {
			out.H.SetSym(i, i, 2*w.k[i])
		}
	}
	return out, nil
}

func (w *Well) Value(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	t, err := w.eval(mvals, fitting.OrderValue)
	if err != nil {
		return t, err
	}
	return w.remember(ctx, t), nil
}

func (w *Well) Gradient(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	t, err := w.eval(mvals, fitting.OrderGradient)
	if err != nil {
		return t, err
	}
	return w.remember(ctx, t), nil
}

func (w *Well) Hessian(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	t, err := w.eval(mvals, fitting.OrderHessian)
	if err != nil {
		return t, err
	}
	return w.remember(ctx, t), nil
}

func (w *Well) Indicate(out io.Writer) {
	fmt.Fprintf(out, "%s: harmonic energy %.6e\n", w.name, w.last.X)
}
