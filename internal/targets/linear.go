package targets

import (
	"context"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/forcefit/internal/fitting"
)

// Linear is a least-squares fit of a linear model, X = |A·m − b|².
//
// Params: "a" holds A row-major with one row per observation, "b" the
// observations.
type Linear struct {
	base
	a   *mat.Dense
	b   *mat.VecDense
	ata *mat.SymDense
}

func NewLinear(spec Spec, np int) (*Linear, error) {
	b := param(spec, "b", nil)
	if len(b) == 0 {
		return nil, paramError(spec, "b", "no observations")
	}
	a := param(spec, "a", nil)
	if len(a) != len(b)*np {
		return nil, paramError(spec, "a", "got %d entries, want %d×%d", len(a), len(b), np)
	}

	l := &Linear{
		base: base{name: spec.Name, weight: spec.Weight},
		a:    mat.NewDense(len(b), np, append([]float64(nil), a...)),
		b:    mat.NewVecDense(len(b), append([]float64(nil), b...)),
		ata:  mat.NewSymDense(np, nil),
	}
	l.ata.SymOuterK(1, l.a.T())
	l.ata.ScaleSym(2, l.ata)
	return l, nil
}

func (l *Linear) residual(mvals []float64) *mat.VecDense {
	var r mat.VecDense
	r.MulVec(l.a, mat.NewVecDense(len(mvals), mvals))
	r.SubVec(&r, l.b)
	return &r
}

func (l *Linear) eval(mvals []float64, order fitting.Order) fitting.Terms {
	np := len(mvals)
	out := fitting.NewTerms(np)
	r := l.residual(mvals)
	out.X = mat.Dot(r, r)
	if order >= fitting.OrderGradient {
		var g mat.VecDense
		g.MulVec(l.a.T(), r)
		floats.ScaleTo(out.G, 2, g.RawVector().Data)
	}
	if order >= fitting.OrderHessian {
		out.H.CopySym(l.ata)
	}
	return out
}

func (l *Linear) check(mvals []float64) error {
	if _, c := l.a.Dims(); len(mvals) != c {
		return fmt.Errorf("%w: %s expects %d parameters, got %d", fitting.ErrDimensionMismatch, l.name, c, len(mvals))
	}
	return nil
}

func (l *Linear) Value(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	if err := l.check(mvals); err != nil {
		return fitting.Terms{}, err
	}
	return l.remember(ctx, l.eval(mvals, fitting.OrderValue)), nil
}

func (l *Linear) Gradient(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	if err := l.check(mvals); err != nil {
		return fitting.Terms{}, err
	}
	return l.remember(ctx, l.eval(mvals, fitting.OrderGradient)), nil
}

func (l *Linear) Hessian(ctx context.Context, mvals []float64) (fitting.Terms, error) {
	if err := l.check(mvals); err != nil {
		return fitting.Terms{}, err
	}
	return l.remember(ctx, l.eval(mvals, fitting.OrderHessian)), nil
}

func (l *Linear) Indicate(w io.Writer) {
	n := l.b.Len()
	fmt.Fprintf(w, "%s: %d observations, sum of squares %.6e, mean square %.6e\n", l.name, n, l.last.X, l.last.X/float64(n))
}
