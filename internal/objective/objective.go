package objective

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/logging"
	"github.com/san-kum/forcefit/internal/penalty"
)

// Result is the objective at one parameter vector. The embedded terms include
// the penalty; Raw holds the weighted sum of target terms before it was added
// and Regularization the penalty on its own.
type Result struct {
	fitting.Terms
	Raw            fitting.Terms
	Regularization fitting.Terms
}

// Reporter renders the ledger after an evaluation and is expected to advance
// it once the report has been written.
type Reporter interface {
	Report(l *Ledger) error
}

// Observer is notified after every evaluation that is not a probe.
type Observer interface {
	OnEvaluate(mvals []float64, order fitting.Order, res *Result)
}

type Option func(*Objective)

// WithNormalizeWeights divides every weight by the weight sum (default) or
// uses the weights as given.
func WithNormalizeWeights(on bool) Option {
	return func(o *Objective) { o.normalize = on }
}

func WithReporter(r Reporter) Option {
	return func(o *Objective) { o.reporter = r }
}

// WithVerbose enables target diagnostics on every evaluation, probes
// included, and a report after every recorded evaluation.
func WithVerbose(on bool) Option {
	return func(o *Objective) { o.verbose = on }
}

// WithOutput sets where target diagnostics are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *Objective) { o.out = w }
}

type Objective struct {
	targets   []fitting.Target
	weights   []float64
	wtot      float64
	pen       *penalty.Penalty
	np        int
	normalize bool
	verbose   bool
	reporter  Reporter
	out       io.Writer
	ledger    *Ledger
	observers []Observer
}

func New(targets []fitting.Target, pen *penalty.Penalty, np int, opts ...Option) (*Objective, error) {
	o := &Objective{
		pen:       pen,
		np:        np,
		normalize: true,
		out:       os.Stdout,
		ledger:    NewLedger(),
		observers: make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(o)
	}

	if pen == nil {
		return nil, fitting.NewConfigError("penalty", "", "a penalty is required")
	}
	if np <= 0 {
		return nil, fitting.NewConfigError("parameters", fmt.Sprint(np), "need at least one fit parameter")
	}

	seen := make(map[string]bool, len(targets))
	var sum float64
	for _, t := range targets {
		name := t.Name()
		if name == "" {
			return nil, fitting.NewConfigError("target.name", "", "target names must not be empty")
		}
		if name == RegularizationKey {
			return nil, fitting.NewConfigError("target.name", name, "name is reserved for the penalty")
		}
		if seen[name] {
			return nil, fitting.NewConfigError("target.name", name, "duplicate target")
		}
		seen[name] = true
		if w := t.Weight(); !(w >= 0) {
			return nil, fitting.NewConfigError("target.weight", fmt.Sprint(w), "weight of %s must be non-negative", name)
		}
		sum += t.Weight()
	}

	o.wtot = 1
	if o.normalize {
		if sum <= 0 {
			return nil, fitting.NewConfigError("normalize_weights", "true", "total target weight is zero")
		}
		o.wtot = sum
	}

	o.targets = make([]fitting.Target, len(targets))
	copy(o.targets, targets)
	o.weights = make([]float64, len(targets))
	for i, t := range targets {
		o.weights[i] = t.Weight() / o.wtot
	}

	logging.L().Info("objective.created",
		"targets", len(targets),
		"parameters", np,
		"weight_total", o.wtot,
		"penalty", pen.Describe(),
	)
	return o, nil
}

func (o *Objective) AddObserver(obs Observer) { o.observers = append(o.observers, obs) }

func (o *Objective) NP() int                        { return o.np }
func (o *Objective) WeightTotal() float64           { return o.wtot }
func (o *Objective) Penalty() *penalty.Penalty      { return o.pen }
func (o *Objective) Ledger() *Ledger                { return o.ledger }
func (o *Objective) Targets() []fitting.Target      { return append([]fitting.Target(nil), o.targets...) }
func (o *Objective) NormalizedWeight(i int) float64 { return o.weights[i] }

// Evaluate computes the objective and its derivatives up to order. Target
// errors are returned as they are. Unless ctx is a probe context the
// breakdown of this evaluation is recorded in the ledger.
func (o *Objective) Evaluate(ctx context.Context, mvals []float64, order fitting.Order) (*Result, error) {
	if ctx == nil {
		return nil, fitting.NewConfigError("ctx", "nil", "a context is required")
	}
	if !order.Valid() {
		return nil, &fitting.ConfigError{Field: "order", Value: order.String(), Err: fitting.ErrUnknownOrder}
	}
	if len(mvals) != o.np {
		return nil, fmt.Errorf("%w: got %d parameters, want %d", fitting.ErrDimensionMismatch, len(mvals), o.np)
	}

	probe := fitting.InProbe(ctx)
	log := logging.L()
	raw := fitting.NewTerms(o.np)

	for i, t := range o.targets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		terms, err := fitting.Evaluate(ctx, t, mvals, order)
		if err != nil {
			return nil, err
		}
		if err := terms.Check(o.np); err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name(), err)
		}

		w := o.weights[i]
		raw.AddScaled(w, terms)

		if o.verbose {
			if ind, ok := t.(fitting.Indicator); ok {
				ind.Indicate(o.out)
			}
		}
		if probe {
			continue
		}
		o.ledger.Record(t.Name(), w, terms.X)
		log.Debug("objective.target",
			"target", t.Name(),
			"order", order.String(),
			"weight", w,
			"x", terms.X,
			"contribution", w*terms.X,
		)
	}

	extra, err := o.pen.Compute(mvals, raw)
	if err != nil {
		return nil, fmt.Errorf("penalty: %w", err)
	}

	res := &Result{Terms: raw.Clone(), Raw: raw, Regularization: extra}
	res.Terms.Add(extra)

	if probe {
		return res, nil
	}

	o.ledger.Record(RegularizationKey, 1, extra.X)
	log.Debug("objective.evaluated",
		"order", order.String(),
		"x", res.X,
		"raw", res.Raw.X,
		"regularization", extra.X,
	)

	for _, obs := range o.observers {
		obs.OnEvaluate(mvals, order, res)
	}
	if o.verbose && o.reporter != nil {
		if err := o.reporter.Report(o.ledger); err != nil {
			return res, fmt.Errorf("report: %w", err)
		}
	}
	return res, nil
}

// Probe evaluates under a probe context, leaving the ledger untouched.
func (o *Objective) Probe(ctx context.Context, mvals []float64, order fitting.Order) (*Result, error) {
	return o.Evaluate(fitting.WithProbe(ctx), mvals, order)
}
