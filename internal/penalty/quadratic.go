package penalty

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// QuadraticFunc is the ridge (L2) penalty: a Gaussian prior around the
// initial parameters. Its Hessian is constant.
type QuadraticFunc struct{}

func (QuadraticFunc) Evaluate(mvals []float64) (float64, []float64, *mat.SymDense, error) {
	if err := checkLen(mvals); err != nil {
		return 0, nil, nil, err
	}
	dc0 := floats.Dot(mvals, mvals)
	dc1 := make([]float64, len(mvals))
	floats.ScaleTo(dc1, 2, mvals)
	d2 := make([]float64, len(mvals))
	for i := range d2 {
		d2[i] = 2
	}
	return dc0, dc1, diagonal(d2), nil
}
