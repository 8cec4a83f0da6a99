package targets

import (
	"context"
	"fmt"
	"io"

	"github.com/san-kum/forcefit/internal/fitting"
)

// Rosenbrock is the extended Rosenbrock function
//
//	X = Σ b(m_{i+1} − m_i²)² + (a − m_i)²
//
// with its minimum at m_i = a. Params: "a" (default 1) and "b" (default 100).
type Rosenbrock struct {
	base
	a, b float64
	np   int
}

func NewRosenbrock(spec Spec, np int) (*Rosenbrock, error) {
	if np < 2 {
		return nil, paramError(spec, "np", "rosenbrock needs at least two parameters, have %d", np)
	}
	a, err := scalar(spec, "a", 1)
	if err != nil {
		return nil, err
	}
	b, err := scalar(spec, "b", 100)
	if err != nil {
		return nil, err
	}
	if b < 0 {
		return nil, paramError(spec, "b", "must be non-negative")
	}
	return &Rosenbrock{base: base{name: spec.Name, weight: spec.Weight}, a: a, b: b, np: np}, nil
}

func (r *Rosenbrock) eval(m []float64, order fitting.Order) (fitting.Terms, error) {
	if len(m) != r.np {
		return fitting.Terms{}, fmt.Errorf("%w: %s expects %d parameters, got %d", fitting.ErrDimensionMismatch, r.name, r.np, len(m))
	}
	out := fitting.NewTerms(r.np)
	for i := 0; i < r.np-1; i++ {
		s := m[i+1] - m[i]*m[i]
		t := r.a - m[i]
		out.X += r.b*s*s + t*t
		if order >= fitting.OrderGradient {
			out.G[i] += -4*r.b*m[i]*s - 2*t
			out.G[i+1] += 2 * r.b * s
		}
		if order >= fitting.OrderHessian {
			out.H.SetSym(i, i, out.H.At(i, i)+12*r.b*m[i]*m[i]-4*r.b*m[i+1]+2)
			out.H.SetSym(i+1, i+1, out.H.At(i+1, i+1)+2*r.b)
			out.H.SetSym(i, i+1, -4*r.b*m[i])
		}
	}
	return out, nil
}

func (r *Rosenbrock) Value(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	t, err := r.eval(mvals, fitting.OrderValue)
	if err != nil {
		return t, err
	}
	return r.remember(ctx, t), nil
}

func (r *Rosenbrock) Gradient(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	t, err := r.eval(mvals, fitting.OrderGradient)
	if err != nil {
		return t, err
	}
	return r.remember(ctx, t), nil
}

func (r *Rosenbrock) Hessian(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	t, err := r.eval(mvals, fitting.OrderHessian)
	if err != nil {
		return t, err
	}
	return r.remember(ctx, t), nil
}

func (r *Rosenbrock) Indicate(w io.Writer) {
	fmt.Fprintf(w, "%s: valley residual %.6e (minimum 0 at m_i = %g)\n", r.name, r.last.X, r.a)
}
