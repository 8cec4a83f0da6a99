package objective

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/forcefit/internal/fitting"
)

// Problem adapts an Objective to gonum's optimize package. Evaluations are
// cached per parameter vector so that Func, Grad and Hess at the same point
// cost a single objective call at the highest order needed.
type Problem struct {
	ctx context.Context
	obj *Objective

	x     []float64
	order fitting.Order
	res   *Result
	err   error
	calls int
}

func NewProblem(ctx context.Context, obj *Objective) *Problem {
	return &Problem{ctx: ctx, obj: obj}
}

// Err returns the first evaluation error seen by the adapter.
func (p *Problem) Err() error { return p.err }

// Calls is the number of objective evaluations performed.
func (p *Problem) Calls() int { return p.calls }

func (p *Problem) at(x []float64, order fitting.Order) *Result {
	if p.res != nil && p.order >= order && slices.Equal(p.x, x) {
		return p.res
	}
	res, err := p.obj.Evaluate(p.ctx, x, order)
	p.calls++
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		p.res = nil
		return nil
	}
	p.x = append(p.x[:0], x...)
	p.order = order
	p.res = res
	return res
}

// Problem returns the optimize.Problem backed by the objective. After an
// evaluation error the value is reported as +Inf and Status stops the run.
func (p *Problem) Problem() optimize.Problem {
	return optimize.Problem{
		Func: func(x []float64) float64 {
			res := p.at(x, fitting.OrderValue)
			if res == nil {
				return math.Inf(1)
			}
			return res.X
		},
		Grad: func(grad, x []float64) {
			res := p.at(x, fitting.OrderGradient)
			if res == nil {
				for i := range grad {
					grad[i] = 0
				}
				return
			}
			copy(grad, res.G)
		},
		Hess: func(hess *mat.SymDense, x []float64) {
			res := p.at(x, fitting.OrderHessian)
			if res == nil {
				hess.Zero()
				return
			}
			hess.CopySym(res.H)
		},
		Status: func() (optimize.Status, error) {
			if p.err != nil {
				return optimize.Failure, p.err
			}
			return optimize.NotTerminated, nil
		},
	}
}

var methods = map[string]func() optimize.Method{
	"bfgs":        func() optimize.Method { return &optimize.BFGS{} },
	"lbfgs":       func() optimize.Method { return &optimize.LBFGS{} },
	"cg":          func() optimize.Method { return &optimize.CG{} },
	"newton":      func() optimize.Method { return &optimize.Newton{} },
	"nelder-mead": func() optimize.Method { return &optimize.NelderMead{} },
	"gd":          func() optimize.Method { return &optimize.GradientDescent{} },
}

// ParseMethod returns the gonum method registered under name.
func ParseMethod(name string) (optimize.Method, error) {
	f, ok := methods[strings.ToLower(name)]
	if !ok {
		return nil, fitting.NewConfigError("method", name, "unknown optimizer (available: %s)", strings.Join(ListMethods(), ", "))
	}
	return f(), nil
}

func ListMethods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Minimize hands the objective to gonum's optimizer starting from x0.
func Minimize(ctx context.Context, obj *Objective, x0 []float64, method optimize.Method, settings *optimize.Settings) (*optimize.Result, error) {
	p := NewProblem(ctx, obj)
	result, err := optimize.Minimize(p.Problem(), x0, settings, method)
	if p.err != nil {
		return result, p.err
	}
	if err != nil {
		return result, fmt.Errorf("minimize: %w", err)
	}
	return result, nil
}
