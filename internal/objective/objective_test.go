package objective_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/objective"
	"github.com/san-kum/forcefit/internal/penalty"
)

func quadratic(additive, multiplicative float64) *penalty.Penalty {
	cfg := penalty.DefaultConfig()
	cfg.Additive = additive
	cfg.Multiplicative = multiplicative
	p, err := penalty.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return p
}

type countingReporter struct {
	reports int
	names   [][]string
}

func (r *countingReporter) Report(l *objective.Ledger) error {
	r.reports++
	r.names = append(r.names, l.Current().Names())
	l.Advance()
	return nil
}

type recordingObserver struct {
	xs []float64
}

func (o *recordingObserver) OnEvaluate(_ []float64, _ fitting.Order, res *objective.Result) {
	o.xs = append(o.xs, res.X)
}

var _ = Describe("Objective", func() {
	var (
		ctx   context.Context
		a, b  *fixedTarget
		pen   *penalty.Penalty
		mvals []float64
	)

	BeforeEach(func() {
		ctx = context.Background()
		a = &fixedTarget{name: "a", weight: 1, x: 2}
		b = &fixedTarget{name: "b", weight: 3, x: 4}
		pen = quadratic(0.1, 0)
		mvals = []float64{1, 1}
	})

	Describe("construction", func() {
		It("normalizes weights to sum to one", func() {
			obj, err := objective.New([]fitting.Target{a, b}, pen, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(obj.WeightTotal()).To(Equal(4.0))
			Expect(obj.NormalizedWeight(0) + obj.NormalizedWeight(1)).To(BeNumerically("~", 1, 1e-15))
		})

		It("uses the raw weights when normalization is off", func() {
			obj, err := objective.New([]fitting.Target{a, b}, pen, 2, objective.WithNormalizeWeights(false))
			Expect(err).NotTo(HaveOccurred())
			Expect(obj.WeightTotal()).To(Equal(1.0))
			Expect(obj.NormalizedWeight(1)).To(Equal(3.0))
		})

		DescribeTable("rejects bad target sets",
			func(targets []fitting.Target) {
				_, err := objective.New(targets, pen, 2)
				Expect(err).To(MatchError(fitting.ErrConfig))
			},
			Entry("duplicate names", []fitting.Target{&fixedTarget{name: "a", weight: 1}, &fixedTarget{name: "a", weight: 1}}),
			Entry("empty name", []fitting.Target{&fixedTarget{weight: 1}}),
			Entry("negative weight", []fitting.Target{&fixedTarget{name: "a", weight: -1}}),
			Entry("reserved name", []fitting.Target{&fixedTarget{name: objective.RegularizationKey, weight: 1}}),
			Entry("zero total weight", []fitting.Target{&fixedTarget{name: "a", weight: 0}}),
			Entry("no targets", []fitting.Target{}),
		)

		It("needs a penalty and parameters", func() {
			_, err := objective.New([]fitting.Target{a}, nil, 2)
			Expect(fitting.IsConfig(err)).To(BeTrue())
			_, err = objective.New([]fitting.Target{a}, pen, 0)
			Expect(fitting.IsConfig(err)).To(BeTrue())
		})
	})

	Describe("Evaluate", func() {
		var obj *objective.Objective

		BeforeEach(func() {
			var err error
			obj, err = objective.New([]fitting.Target{a, b}, pen, 2)
			Expect(err).NotTo(HaveOccurred())
		})

		It("combines weighted targets with the penalty", func() {
			res, err := obj.Evaluate(ctx, mvals, fitting.OrderValue)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Raw.X).To(BeNumerically("~", 3.5, 1e-12))
			Expect(res.Regularization.X).To(BeNumerically("~", 0.2, 1e-12))
			Expect(res.X).To(BeNumerically("~", 3.7, 1e-12))
		})

		It("calls every target at the requested order", func() {
			_, err := obj.Evaluate(ctx, mvals, fitting.OrderHessian)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.orders).To(Equal([]fitting.Order{fitting.OrderHessian}))
			Expect(b.orders).To(Equal([]fitting.Order{fitting.OrderHessian}))
		})

		It("decomposes into raw and regularization parts", func() {
			a.g = []float64{1, -2}
			a.h = mat.NewSymDense(2, []float64{2, 1, 1, 3})
			b.g = []float64{0.5, 0.5}
			obj2, err := objective.New([]fitting.Target{a, b}, quadratic(0.3, 0.2), 2)
			Expect(err).NotTo(HaveOccurred())

			res, err := obj2.Evaluate(ctx, []float64{0.5, -1}, fitting.OrderHessian)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.X).To(BeNumerically("~", res.Raw.X+res.Regularization.X, 1e-12))
			for i := range res.G {
				Expect(res.G[i]).To(BeNumerically("~", res.Raw.G[i]+res.Regularization.G[i], 1e-12))
				for j := range res.G {
					Expect(res.H.At(i, j)).To(BeNumerically("~", res.Raw.H.At(i, j)+res.Regularization.H.At(i, j), 1e-12))
				}
			}
			Expect(res.Raw.G[0]).To(BeNumerically("~", 0.25*1+0.75*0.5, 1e-12))
			Expect(res.Raw.H.At(1, 1)).To(BeNumerically("~", 0.75, 1e-12))
		})

		It("records the breakdown in registration order with the penalty last", func() {
			_, err := obj.Evaluate(ctx, mvals, fitting.OrderValue)
			Expect(err).NotTo(HaveOccurred())

			cur := obj.Ledger().Current()
			Expect(cur.Names()).To(Equal([]string{"a", "b", objective.RegularizationKey}))
			ea, _ := cur.Get("a")
			Expect(ea).To(Equal(objective.Entry{Weight: 0.25, X: 2}))
			eb, _ := cur.Get("b")
			Expect(eb).To(Equal(objective.Entry{Weight: 0.75, X: 4}))
			reg, _ := cur.Get(objective.RegularizationKey)
			Expect(reg.Weight).To(Equal(1.0))
			Expect(reg.X).To(BeNumerically("~", 0.2, 1e-12))
			Expect(cur.Total()).To(BeNumerically("~", 3.7, 1e-12))
		})

		It("leaves the ledger alone while probing", func() {
			res, err := obj.Probe(ctx, mvals, fitting.OrderValue)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.X).To(BeNumerically("~", 3.7, 1e-12))
			Expect(obj.Ledger().Current().Len()).To(BeZero())
			Expect(a.probes).To(Equal([]bool{true}))
		})

		It("returns target errors unchanged", func() {
			boom := errors.New("simulation crashed")
			b.err = boom
			res, err := obj.Evaluate(ctx, mvals, fitting.OrderGradient)
			Expect(res).To(BeNil())
			Expect(err).To(BeIdenticalTo(boom))
		})

		It("rejects terms of the wrong size", func() {
			a.g = []float64{1, 2, 3}
			_, err := obj.Evaluate(ctx, mvals, fitting.OrderGradient)
			Expect(err).To(MatchError(fitting.ErrDimensionMismatch))
		})

		It("rejects a parameter vector of the wrong size", func() {
			_, err := obj.Evaluate(ctx, []float64{1}, fitting.OrderValue)
			Expect(err).To(MatchError(fitting.ErrDimensionMismatch))
		})

		It("rejects an unknown order", func() {
			_, err := obj.Evaluate(ctx, mvals, fitting.Order(7))
			Expect(err).To(MatchError(fitting.ErrUnknownOrder))
		})

		It("stops when the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := obj.Evaluate(cctx, mvals, fitting.OrderValue)
			Expect(err).To(MatchError(context.Canceled))
			Expect(a.orders).To(BeEmpty())
		})

		It("rejects a nil context", func() {
			var none context.Context
			_, err := obj.Evaluate(none, mvals, fitting.OrderValue)
			Expect(err).To(MatchError(fitting.ErrConfig))
			Expect(a.orders).To(BeEmpty())
		})

		It("does not mutate the parameter vector", func() {
			_, err := obj.Evaluate(ctx, mvals, fitting.OrderHessian)
			Expect(err).NotTo(HaveOccurred())
			Expect(mvals).To(Equal([]float64{1, 1}))
		})
	})

	Describe("verbose output", func() {
		It("indicates targets and reports once per evaluation", func() {
			var out bytes.Buffer
			rep := &countingReporter{}
			obs := &recordingObserver{}
			obj, err := objective.New([]fitting.Target{a, b}, pen, 2,
				objective.WithVerbose(true),
				objective.WithReporter(rep),
				objective.WithOutput(&out),
			)
			Expect(err).NotTo(HaveOccurred())
			obj.AddObserver(obs)

			_, err = obj.Evaluate(ctx, mvals, fitting.OrderValue)
			Expect(err).NotTo(HaveOccurred())
			_, err = obj.Probe(ctx, mvals, fitting.OrderValue)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.indicated).To(Equal(2))
			Expect(out.String()).To(ContainSubstring("b indicated"))
			Expect(rep.reports).To(Equal(1))
			Expect(rep.names[0]).To(Equal([]string{"a", "b", objective.RegularizationKey}))
			Expect(obs.xs).To(HaveLen(1))

			prev, ok := obj.Ledger().Previous().Get("b")
			Expect(ok).To(BeTrue())
			Expect(prev.X).To(Equal(4.0))
		})

		It("indicates targets during derivative evaluations without reporting", func() {
			var out bytes.Buffer
			rep := &countingReporter{}
			obj, err := objective.New([]fitting.Target{a, b}, pen, 2,
				objective.WithVerbose(true),
				objective.WithReporter(rep),
				objective.WithOutput(&out),
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = obj.Probe(ctx, mvals, fitting.OrderValue)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.indicated).To(Equal(1))
			Expect(b.indicated).To(Equal(1))
			Expect(rep.reports).To(BeZero())
			Expect(obj.Ledger().Current().Len()).To(BeZero())
		})

		It("stays quiet when verbose is off", func() {
			rep := &countingReporter{}
			obj, err := objective.New([]fitting.Target{a}, pen, 2, objective.WithReporter(rep))
			Expect(err).NotTo(HaveOccurred())
			_, err = obj.Evaluate(ctx, mvals, fitting.OrderValue)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.reports).To(BeZero())
			Expect(a.indicated).To(BeZero())
		})
	})
})
