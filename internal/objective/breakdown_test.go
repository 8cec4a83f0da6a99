package objective_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/forcefit/internal/objective"
)

var _ = Describe("Ledger", func() {
	var l *objective.Ledger

	BeforeEach(func() {
		l = objective.NewLedger()
	})

	It("keeps first insertion order when a name is recorded again", func() {
		l.Record("a", 0.5, 1)
		l.Record("b", 0.5, 2)
		l.Record("a", 0.5, 3)

		cur := l.Current()
		Expect(cur.Names()).To(Equal([]string{"a", "b"}))
		e, _ := cur.Get("a")
		Expect(e.X).To(Equal(3.0))
	})

	It("carries every current entry into the previous generation", func() {
		l.Record("a", 1, 1)
		l.Record("old", 1, 9)
		l.Advance()

		l.Record("a", 1, 2)
		l.Advance()

		prev := l.Previous()
		Expect(prev.Names()).To(Equal([]string{"a", "old"}))
		e, _ := prev.Get("a")
		Expect(e.X).To(Equal(2.0))
		e, _ = prev.Get("old")
		Expect(e.X).To(Equal(9.0))
	})

	It("hands out copies", func() {
		l.Record("a", 1, 1)
		snap := l.Current()
		snap.Set("b", objective.Entry{Weight: 1, X: 1})
		Expect(l.Current().Len()).To(Equal(1))
	})

	It("sums contributions", func() {
		b := objective.NewBreakdown()
		b.Set("a", objective.Entry{Weight: 0.25, X: 2})
		b.Set("b", objective.Entry{Weight: 0.75, X: 4})
		Expect(b.Total()).To(Equal(3.5))
	})

	It("treats a nil breakdown as empty", func() {
		var b *objective.Breakdown
		Expect(b.Len()).To(BeZero())
		_, ok := b.Get("a")
		Expect(ok).To(BeFalse())
		Expect(b.Clone().Len()).To(BeZero())
	})
})
