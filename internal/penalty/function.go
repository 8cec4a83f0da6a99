package penalty

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/forcefit/internal/fitting"
)

var (
	ErrUnknownKind    = errors.New("penalty: unknown penalty kind")
	ErrCuspWidth      = errors.New("penalty: cusp width must be positive")
	ErrNegativeFactor = errors.New("penalty: factor must be non-negative")
	ErrNoForceField   = errors.New("penalty: fusion penalties need force-field metadata")
	ErrNonPositive    = errors.New("penalty: fused parameters must have positive physical values")
)

// Function evaluates a regularization functional and its first and second
// derivatives (DC0, DC1, DC2) at a parameter vector.
type Function interface {
	Evaluate(mvals []float64) (float64, []float64, *mat.SymDense, error)
}

// ForceField is the metadata consumed by the fusion penalties.
type ForceField interface {
	NP() int
	Identifiers() []string
	ToPhysical(mvals []float64) ([]float64, error)
}

// Acknowledger receives data-integrity warnings raised while grouping
// parameters. Returning nil acknowledges the warning and lets construction
// continue; any error aborts it.
type Acknowledger func(warning error) error

// NewFunction builds the functional for cfg.Kind. It is the only place the
// kind is inspected.
func NewFunction(cfg Config, ff ForceField, ack Acknowledger) (Function, error) {
	switch cfg.Kind {
	case Quadratic:
		return QuadraticFunc{}, nil
	case Hyperbolic:
		return HyperbolicFunc{B: cfg.CuspWidth}, nil
	case Fuse, FuseL0:
		if ff == nil {
			return nil, &fitting.ConfigError{Field: "forcefield", Value: cfg.Kind.String(), Err: ErrNoForceField}
		}
		groups, err := GroupExponents(ff.Identifiers(), ack)
		if err != nil {
			return nil, err
		}
		base := fusion{ff: ff, groups: groups, b: cfg.CuspWidth}
		if cfg.Kind == Fuse {
			return &FuseFunc{fusion: base}, nil
		}
		return &FuseL0Func{fusion: base, Alpha: cfg.Alpha}, nil
	}
	return nil, &fitting.ConfigError{Field: "penalty_type", Value: fmt.Sprint(int(cfg.Kind)), Err: ErrUnknownKind}
}

func checkLen(mvals []float64) error {
	if len(mvals) == 0 {
		return fmt.Errorf("%w: empty parameter vector", fitting.ErrDimensionMismatch)
	}
	return nil
}

func diagonal(d []float64) *mat.SymDense {
	m := mat.NewSymDense(len(d), nil)
	for i, v := range d {
		m.SetSym(i, i, v)
	}
	return m
}
