// Package scan sweeps fit parameters over value grids and evaluates the
// objective at every grid point.
package scan

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/objective"
)

// Evaluator is satisfied by *objective.Objective.
type Evaluator interface {
	NP() int
	Probe(ctx context.Context, mvals []float64, order fitting.Order) (*objective.Result, error)
}

// Axis is one scanned parameter and the values it takes.
type Axis struct {
	Index  int
	Values []float64
}

// Span returns an axis of n evenly spaced values from lo to hi inclusive.
func Span(index int, lo, hi float64, n int) Axis {
	if n < 2 {
		return Axis{Index: index, Values: []float64{lo}}
	}
	return Axis{Index: index, Values: floats.Span(make([]float64, n), lo, hi)}
}

type Point struct {
	MVals          []float64
	X              float64
	Raw            float64
	Regularization float64
}

type Result struct {
	Best   Point
	Points []Point
}

// Values returns the objective value of every point in scan order.
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.X
	}
	return out
}

type GridSearch struct {
	axes []Axis
}

func NewGridSearch(axes ...Axis) *GridSearch {
	return &GridSearch{axes: axes}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, a := range g.axes {
		n *= len(a.Values)
	}
	return n
}

// Search evaluates every grid point, holding parameters that are not scanned
// at their values in base. Evaluations run as probes, so the objective's
// breakdown is left alone. The last axis varies fastest.
func (g *GridSearch) Search(ctx context.Context, obj Evaluator, base []float64) (*Result, error) {
	np := obj.NP()
	if len(base) != np {
		return nil, fmt.Errorf("%w: base has %d parameters, want %d", fitting.ErrDimensionMismatch, len(base), np)
	}
	seen := make(map[int]bool, len(g.axes))
	for i, a := range g.axes {
		if a.Index < 0 || a.Index >= np {
			return nil, fitting.NewConfigError(fmt.Sprintf("axis[%d]", i), fmt.Sprint(a.Index), "parameter index out of range [0, %d)", np)
		}
		if seen[a.Index] {
			return nil, fitting.NewConfigError(fmt.Sprintf("axis[%d]", i), fmt.Sprint(a.Index), "parameter scanned twice")
		}
		if len(a.Values) == 0 {
			return nil, fitting.NewConfigError(fmt.Sprintf("axis[%d]", i), fmt.Sprint(a.Index), "no values to scan")
		}
		seen[a.Index] = true
	}

	res := &Result{
		Best:   Point{X: math.Inf(1)},
		Points: make([]Point, 0, g.Size()),
	}
	current := append([]float64(nil), base...)
	if err := g.searchRecursive(ctx, 0, current, obj, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current []float64, obj Evaluator, res *Result) error {
	if depth == len(g.axes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := obj.Probe(ctx, current, fitting.OrderValue)
		if err != nil {
			return err
		}
		p := Point{
			MVals:          append([]float64(nil), current...),
			X:              r.X,
			Raw:            r.Raw.X,
			Regularization: r.Regularization.X,
		}
		res.Points = append(res.Points, p)
		if p.X < res.Best.X {
			res.Best = p
		}
		return nil
	}

	axis := g.axes[depth]
	for _, val := range axis.Values {
		current[axis.Index] = val
		if err := g.searchRecursive(ctx, depth+1, current, obj, res); err != nil {
			return err
		}
	}
	return nil
}
