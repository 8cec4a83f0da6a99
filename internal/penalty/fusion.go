package penalty

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/forcefield"
)

// Group is a set of parameter indices sharing an element + angular momentum.
type Group struct {
	Key     string
	Indices []int
}

// GroupExponents classifies identifiers into fusion groups. Groups appear in
// the order their key is first seen. Every identifier problem is passed to
// ack; unclassifiable identifiers are left out of all groups once
// acknowledged. A nil ack turns the first problem into an error.
func GroupExponents(ids []string, ack Acknowledger) ([]Group, error) {
	var groups []Group
	pos := make(map[string]int)

	for i, id := range ids {
		key, err := forcefield.ParseExponentID(id)
		if err != nil {
			warning := &forcefield.IdentifierError{Index: i, ID: id, Err: err}
			if ack == nil {
				return nil, warning
			}
			if aerr := ack(warning); aerr != nil {
				return nil, aerr
			}
			if errors.Is(err, forcefield.ErrMalformedIdentifier) {
				continue
			}
		}

		g := key.Group()
		j, ok := pos[g]
		if !ok {
			j = len(groups)
			pos[g] = j
			groups = append(groups, Group{Key: g})
		}
		groups[j].Indices = append(groups[j].Indices, i)
	}
	return groups, nil
}

type fusion struct {
	ff     ForceField
	groups []Group
	b      float64
}

func (f *fusion) Groups() []Group { return f.groups }

// eachPair visits adjacent pairs of every group in ascending physical value.
// pi is the index of the smaller value, pj of the larger.
func (f *fusion) eachPair(mvals []float64, fn func(pi, pj int, dp float64)) error {
	if err := checkLen(mvals); err != nil {
		return err
	}
	if len(mvals) != f.ff.NP() {
		return fmt.Errorf("%w: got %d mvals for %d parameters", fitting.ErrDimensionMismatch, len(mvals), f.ff.NP())
	}
	pvals, err := f.ff.ToPhysical(mvals)
	if err != nil {
		return err
	}

	for _, g := range f.groups {
		order := slices.Clone(g.Indices)
		slices.SortStableFunc(order, func(a, b int) int {
			return cmp.Compare(pvals[a], pvals[b])
		})
		for k := 0; k+1 < len(order); k++ {
			pi, pj := order[k], order[k+1]
			if pvals[pi] <= 0 {
				return fmt.Errorf("%w: group %s index %d is %g", ErrNonPositive, g.Key, pi, pvals[pi])
			}
			fn(pi, pj, math.Log(pvals[pj])-math.Log(pvals[pi]))
		}
	}
	return nil
}

// FuseFunc applies a hyperbolic penalty to the log-ratio of neighbouring
// exponents, pulling near-duplicates together. The Hessian is an
// approximation: diagonal only, with the curvature subtracted at the smaller
// member of each pair and added at the larger.
type FuseFunc struct {
	fusion
}

func (f *FuseFunc) Evaluate(mvals []float64) (float64, []float64, *mat.SymDense, error) {
	b2 := f.b * f.b
	dc0 := 0.0
	dc1 := make([]float64, len(mvals))
	d2 := make([]float64, len(mvals))

	err := f.eachPair(mvals, func(pi, pj int, dp float64) {
		r := math.Sqrt(dp*dp + b2)
		dc0 += r - f.b
		dc1[pi] -= dp / r
		dc1[pj] += dp / r
		curv := b2 / (r * r * r)
		d2[pi] -= curv
		d2[pj] += curv
	})
	if err != nil {
		return 0, nil, nil, err
	}
	return dc0, dc1, diagonal(d2), nil
}

// FuseL0Func saturates the fused distance with 1 − exp(−h), so each pair
// counts at most once: an L0-like count of distinct exponents in a group.
// Its Hessian is left at zero.
type FuseL0Func struct {
	fusion
	Alpha float64
}

func (f *FuseL0Func) Evaluate(mvals []float64) (float64, []float64, *mat.SymDense, error) {
	b2 := f.b * f.b
	dc0 := 0.0
	dc1 := make([]float64, len(mvals))

	err := f.eachPair(mvals, func(pi, pj int, dp float64) {
		r := math.Sqrt(dp*dp + b2)
		h := f.Alpha * (r - f.b)
		hp := f.Alpha * dp / r
		emh := math.Exp(-h)
		dc0 += 1 - emh
		dc1[pi] -= hp * emh
		dc1[pj] += hp * emh
	})
	if err != nil {
		return 0, nil, nil, err
	}
	return dc0, dc1, mat.NewSymDense(len(mvals), nil), nil
}
