package fitting

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Order is the requested order of differentiation. Requesting an order
// implies every lower order is produced as well.
type Order int

const (
	OrderValue Order = iota
	OrderGradient
	OrderHessian
)

// Letters is the canonical lettering for objective, gradient and Hessian.
var Letters = [...]string{"X", "G", "H"}

func (o Order) String() string {
	if o < OrderValue || o > OrderHessian {
		return fmt.Sprintf("Order(%d)", int(o))
	}
	return Letters[o]
}

func (o Order) Valid() bool { return o >= OrderValue && o <= OrderHessian }

// ParseOrder accepts a canonical letter, a name or a numeric order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X", "VALUE", "0":
		return OrderValue, nil
	case "G", "GRADIENT", "1":
		return OrderGradient, nil
	case "H", "HESSIAN", "2":
		return OrderHessian, nil
	}
	return 0, &ConfigError{Field: "order", Value: s, Err: ErrUnknownOrder}
}

// Terms holds a value with its gradient and Hessian. G has length np and H is
// np×np; orders that were not requested are zero-filled.
type Terms struct {
	X float64
	G []float64
	H *mat.SymDense
}

// NewTerms returns zero-valued terms for np parameters.
func NewTerms(np int) Terms {
	return Terms{
		X: 0,
		G: make([]float64, np),
		H: mat.NewSymDense(np, nil),
	}
}

func (t Terms) Clone() Terms {
	c := Terms{X: t.X}
	if t.G != nil {
		c.G = make([]float64, len(t.G))
		copy(c.G, t.G)
	}
	if t.H != nil {
		c.H = mat.NewSymDense(t.H.SymmetricDim(), nil)
		c.H.CopySym(t.H)
	}
	return c
}

// Check reports whether the terms match np parameters. A nil gradient or
// Hessian stands for zero and is accepted.
func (t Terms) Check(np int) error {
	if t.G != nil && len(t.G) != np {
		return fmt.Errorf("%w: gradient has %d entries, want %d", ErrDimensionMismatch, len(t.G), np)
	}
	if t.H != nil && t.H.SymmetricDim() != np {
		return fmt.Errorf("%w: hessian is %d×%d, want %d×%d", ErrDimensionMismatch, t.H.SymmetricDim(), t.H.SymmetricDim(), np, np)
	}
	return nil
}

// IsValid reports whether every entry is finite.
func (t Terms) IsValid() bool {
	if math.IsNaN(t.X) || math.IsInf(t.X, 0) {
		return false
	}
	if floats.HasNaN(t.G) {
		return false
	}
	for _, v := range t.G {
		if math.IsInf(v, 0) {
			return false
		}
	}
	if t.H == nil {
		return true
	}
	n := t.H.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := t.H.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// AddScaled accumulates f·o into t. t must have been built by NewTerms.
func (t *Terms) AddScaled(f float64, o Terms) {
	t.X += f * o.X
	if o.G != nil {
		floats.AddScaled(t.G, f, o.G)
	}
	if o.H != nil {
		var scaled mat.SymDense
		scaled.ScaleSym(f, o.H)
		t.H.AddSym(t.H, &scaled)
	}
}

// Add accumulates o into t without scaling.
func (t *Terms) Add(o Terms) {
	t.X += o.X
	if o.G != nil {
		floats.Add(t.G, o.G)
	}
	if o.H != nil {
		t.H.AddSym(t.H, o.H)
	}
}

// Target is a weighted contributor to the objective function. Each method
// computes its own order and zero-fills the orders above it.
type Target interface {
	Name() string
	Weight() float64
	Value(ctx context.Context, mvals []float64) (Terms, error)
	Gradient(ctx context.Context, mvals []float64) (Terms, error)
	Hessian(ctx context.Context, mvals []float64) (Terms, error)
}

// Indicator is implemented by targets that can print qualitative diagnostics
// about their last evaluation.
type Indicator interface {
	Indicate(w io.Writer)
}

// Evaluate calls the target method matching the requested order.
func Evaluate(ctx context.Context, t Target, mvals []float64, order Order) (Terms, error) {
	switch order {
	case OrderValue:
		return t.Value(ctx, mvals)
	case OrderGradient:
		return t.Gradient(ctx, mvals)
	case OrderHessian:
		return t.Hessian(ctx, mvals)
	}
	return Terms{}, &ConfigError{Field: "order", Value: order.String(), Err: ErrUnknownOrder}
}
