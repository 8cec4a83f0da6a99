package penalty

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// HyperbolicFunc is a smoothed L1 (lasso) penalty. Each parameter contributes
// sqrt(p²+b²) − b, which approaches |p| as b goes to zero.
type HyperbolicFunc struct {
	B float64
}

func (h HyperbolicFunc) Evaluate(mvals []float64) (float64, []float64, *mat.SymDense, error) {
	if err := checkLen(mvals); err != nil {
		return 0, nil, nil, err
	}
	b2 := h.B * h.B
	dc0 := 0.0
	dc1 := make([]float64, len(mvals))
	d2 := make([]float64, len(mvals))
	for i, p := range mvals {
		r := math.Sqrt(p*p + b2)
		dc0 += r - h.B
		dc1[i] = p / r
		d2[i] = b2 / (r * r * r)
	}
	return dc0, dc1, diagonal(d2), nil
}
