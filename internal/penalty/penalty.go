// Package penalty implements the regularization terms added to the objective
// function to keep parameters near their initial values.
//
// Statistically the penalty is a prior on the parameters: the quadratic form
// corresponds to a Gaussian prior (ridge regression) and the hyperbolic form
// to a Laplacian prior (lasso). The fusion forms are specific to basis-set
// optimization and push exponents within a shell towards shared values.
//
// The penalty either stands alone (additive, Obj + P) or scales with the raw
// objective (multiplicative, Obj + Obj·P); both may be active at once.
package penalty

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/logging"
)

const (
	DefaultCuspWidth = 1e-6
	DefaultAlpha     = 1e-3
)

// Config is the immutable penalty configuration.
type Config struct {
	Kind           Kind
	Additive       float64
	Multiplicative float64
	CuspWidth      float64
	Alpha          float64
}

func DefaultConfig() Config {
	return Config{
		Kind:      Quadratic,
		CuspWidth: DefaultCuspWidth,
		Alpha:     DefaultAlpha,
	}
}

func (c Config) Validate() error {
	if !c.Kind.Valid() {
		return &fitting.ConfigError{Field: "penalty_type", Value: c.Kind.String(), Err: ErrUnknownKind}
	}
	if c.Additive < 0 || math.IsNaN(c.Additive) || math.IsInf(c.Additive, 0) {
		return &fitting.ConfigError{Field: "penalty_additive", Value: fmt.Sprint(c.Additive), Err: ErrNegativeFactor}
	}
	if c.Multiplicative < 0 || math.IsNaN(c.Multiplicative) || math.IsInf(c.Multiplicative, 0) {
		return &fitting.ConfigError{Field: "penalty_multiplicative", Value: fmt.Sprint(c.Multiplicative), Err: ErrNegativeFactor}
	}
	if !(c.CuspWidth > 0) || math.IsInf(c.CuspWidth, 0) {
		return &fitting.ConfigError{Field: "penalty_hyperbolic_b", Value: fmt.Sprint(c.CuspWidth), Err: ErrCuspWidth}
	}
	if c.Kind == FuseL0 && !(c.Alpha > 0) {
		return fitting.NewConfigError("penalty_alpha", fmt.Sprint(c.Alpha), "L0 fusion needs a positive switching parameter")
	}
	return nil
}

type options struct {
	ff  ForceField
	ack Acknowledger
}

type Option func(*options)

// WithForceField supplies the metadata needed by the fusion penalties.
func WithForceField(ff ForceField) Option {
	return func(o *options) { o.ff = ff }
}

// WithAcknowledger sets the hook that must accept identifier warnings.
func WithAcknowledger(ack Acknowledger) Option {
	return func(o *options) { o.ack = ack }
}

type Penalty struct {
	cfg Config
	fn  Function
}

func New(cfg Config, opts ...Option) (*Penalty, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	fn, err := NewFunction(cfg, o.ff, o.ack)
	if err != nil {
		return nil, err
	}
	p := &Penalty{cfg: cfg, fn: fn}
	logging.L().Info("penalty.created", "kind", cfg.Kind.String(), "description", p.Describe())
	return p, nil
}

func (p *Penalty) Config() Config     { return p.cfg }
func (p *Penalty) Kind() Kind         { return p.cfg.Kind }
func (p *Penalty) Function() Function { return p.fn }

// Describe summarises the active penalty in one line.
func (p *Penalty) Describe() string {
	c := p.cfg
	switch c.Kind {
	case Hyperbolic:
		return fmt.Sprintf("hyperbolic regularization (Laplacian prior) with strength %.1e (+), %.1e (x) and tightness %.1e", c.Additive, c.Multiplicative, c.CuspWidth)
	case Quadratic:
		return fmt.Sprintf("parabolic regularization (Gaussian prior) with strength %.1e (+), %.1e (x)", c.Additive, c.Multiplicative)
	case Fuse:
		return fmt.Sprintf("fusion penalty (basis set optimizations) with strength %.1e", c.Additive)
	case FuseL0:
		return fmt.Sprintf("L0-L1 fusion penalty (basis set optimizations) with strength %.1e and switching distance %.1e", c.Additive, c.Alpha)
	}
	return "no regularization"
}

// Compute returns the penalty's contribution to the value, gradient and
// Hessian given the raw (unregularized) objective terms. A nil gradient or
// Hessian in raw counts as zero.
func (p *Penalty) Compute(mvals []float64, raw fitting.Terms) (fitting.Terms, error) {
	np := len(mvals)
	if err := checkLen(mvals); err != nil {
		return fitting.Terms{}, err
	}
	if err := raw.Check(np); err != nil {
		return fitting.Terms{}, err
	}
	extra := fitting.NewTerms(np)
	if p.cfg.Additive <= 0 && p.cfg.Multiplicative <= 0 {
		return extra, nil
	}

	k0, k1, k2, err := p.fn.Evaluate(mvals)
	if err != nil {
		return fitting.Terms{}, err
	}

	if fadd := p.cfg.Additive; fadd > 0 {
		extra.AddScaled(fadd, fitting.Terms{X: k0, G: k1, H: k2})
	}

	if fmul := p.cfg.Multiplicative; fmul > 0 {
		x := raw.X
		g := raw.G
		if g == nil {
			g = make([]float64, np)
		}

		// G·K0 + X·K1
		grad := make([]float64, np)
		for i := range grad {
			grad[i] = g[i]*k0 + x*k1[i]
		}

		// H·K0 + G⊗K1 + K1⊗G + X·K2
		var hess mat.SymDense
		if raw.H != nil {
			hess.ScaleSym(k0, raw.H)
		} else {
			hess.ReuseAsSym(np)
		}
		hess.RankTwo(&hess, 1, mat.NewVecDense(np, g), mat.NewVecDense(np, k1))
		var xk2 mat.SymDense
		xk2.ScaleSym(x, k2)
		hess.AddSym(&hess, &xk2)

		extra.AddScaled(fmul, fitting.Terms{X: x * k0, G: grad, H: &hess})
	}
	return extra, nil
}
