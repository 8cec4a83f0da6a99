package objective_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/objective"
)

var _ = Describe("CheckGradient", func() {
	It("agrees with the analytic gradient without touching the ledger", func() {
		target := &bowl{name: "bowl", weight: 1, k: 2, c: []float64{1, -1, 0.5}}
		obj, err := objective.New([]fitting.Target{target}, quadratic(0.1, 0.5), 3)
		Expect(err).NotTo(HaveOccurred())

		check, err := objective.CheckGradient(context.Background(), obj, []float64{0.3, 0.2, -0.4}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(check.Agrees(1e-6)).To(BeTrue(), "analytic %v numeric %v", check.Analytic, check.Numeric)
		Expect(check.MaxAbs).To(BeNumerically("<", 1e-6))
		Expect(obj.Ledger().Current().Len()).To(BeZero())
	})

	It("returns target errors", func() {
		boom := errors.New("boom")
		obj, err := objective.New([]fitting.Target{&fixedTarget{name: "x", weight: 1, err: boom}}, quadratic(0, 0), 1)
		Expect(err).NotTo(HaveOccurred())
		_, err = objective.CheckGradient(context.Background(), obj, []float64{0}, 0)
		Expect(err).To(BeIdenticalTo(boom))
	})

	It("flags a wrong gradient", func() {
		wrong := &fixedTarget{name: "wrong", weight: 1, x: 1, g: []float64{5}}
		obj, err := objective.New([]fitting.Target{wrong}, quadratic(0, 0), 1)
		Expect(err).NotTo(HaveOccurred())
		check, err := objective.CheckGradient(context.Background(), obj, []float64{0}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(check.Agrees(1e-6)).To(BeFalse())
		Expect(check.MaxAbs).To(BeNumerically("~", 5, 1e-9))
	})
})

var _ = Describe("Problem", func() {
	var (
		ctx context.Context
		obj *objective.Objective
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		obj, err = objective.New([]fitting.Target{
			&bowl{name: "bowl", weight: 1, k: 1, c: []float64{1, 2}},
		}, quadratic(0, 0), 2)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reuses a higher-order evaluation at the same point", func() {
		p := objective.NewProblem(ctx, obj)
		prob := p.Problem()
		x := []float64{0, 0}

		hess := mat.NewSymDense(2, nil)
		prob.Hess(hess, x)
		grad := make([]float64, 2)
		prob.Grad(grad, x)
		f := prob.Func(x)

		Expect(p.Calls()).To(Equal(1))
		Expect(f).To(Equal(5.0))
		Expect(grad).To(Equal([]float64{-2, -4}))
		Expect(hess.At(0, 0)).To(Equal(2.0))
	})

	It("minimizes with gonum", func() {
		for _, name := range []string{"bfgs", "newton"} {
			method, err := objective.ParseMethod(name)
			Expect(err).NotTo(HaveOccurred())
			res, err := objective.Minimize(ctx, obj, []float64{-3, 4}, method, nil)
			Expect(err).NotTo(HaveOccurred(), name)
			Expect(res.Location.X[0]).To(BeNumerically("~", 1, 1e-5), name)
			Expect(res.Location.X[1]).To(BeNumerically("~", 2, 1e-5), name)
		}
	})

	It("stops on evaluation errors", func() {
		boom := errors.New("boom")
		bad, err := objective.New([]fitting.Target{&fixedTarget{name: "x", weight: 1, err: boom}}, quadratic(0, 0), 1)
		Expect(err).NotTo(HaveOccurred())
		_, err = objective.Minimize(ctx, bad, []float64{0}, &optimize.BFGS{}, nil)
		Expect(err).To(BeIdenticalTo(boom))
	})

	It("rejects unknown methods", func() {
		_, err := objective.ParseMethod("simplex-annealing")
		Expect(err).To(MatchError(fitting.ErrConfig))
		Expect(objective.ListMethods()).To(ContainElement("lbfgs"))
	})
})
