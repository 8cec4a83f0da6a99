package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/objective"
	"github.com/san-kum/forcefit/internal/penalty"
	"github.com/san-kum/forcefit/internal/targets"
)

func newObjective(t *testing.T, center []float64) *objective.Objective {
	t.Helper()
	well, err := targets.NewWell(targets.Spec{Name: "well", Weight: 1, Params: map[string][]float64{"center": center}}, len(center))
	if err != nil {
		t.Fatal(err)
	}
	pen, err := penalty.New(penalty.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	obj, err := objective.New([]fitting.Target{well}, pen, len(center))
	if err != nil {
		t.Fatal(err)
	}
	return obj
}

func TestSpan(t *testing.T) {
	a := Span(1, -1, 1, 5)
	want := []float64{-1, -0.5, 0, 0.5, 1}
	for i, v := range want {
		if a.Values[i] != v {
			t.Errorf("value %d = %v, want %v", i, a.Values[i], v)
		}
	}
	if a := Span(0, 2, 3, 1); len(a.Values) != 1 || a.Values[0] != 2 {
		t.Errorf("single point span = %v", a.Values)
	}
}

func TestGridSearch_FindsMinimum(t *testing.T) {
	obj := newObjective(t, []float64{0.5, -1, 3})
	g := NewGridSearch(Span(0, -1, 1, 5), Span(1, -2, 2, 9))

	res, err := g.Search(context.Background(), obj, []float64{0, 0, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Points) != g.Size() || g.Size() != 45 {
		t.Fatalf("got %d points, want 45", len(res.Points))
	}
	if res.Best.X != 0 {
		t.Errorf("best X = %v, want 0", res.Best.X)
	}
	if res.Best.MVals[0] != 0.5 || res.Best.MVals[1] != -1 || res.Best.MVals[2] != 3 {
		t.Errorf("best point = %v", res.Best.MVals)
	}
	// last axis varies fastest
	if res.Points[1].MVals[0] != -1 || res.Points[1].MVals[1] != -1.5 {
		t.Errorf("scan order: second point = %v", res.Points[1].MVals)
	}
	if len(res.Values()) != 45 {
		t.Error("Values should cover every point")
	}
	if obj.Ledger().Current().Len() != 0 {
		t.Error("scan must not record breakdowns")
	}
}

func TestGridSearch_Errors(t *testing.T) {
	obj := newObjective(t, []float64{0, 0})
	ctx := context.Background()

	if _, err := NewGridSearch(Span(2, 0, 1, 3)).Search(ctx, obj, []float64{0, 0}); !fitting.IsConfig(err) {
		t.Errorf("out of range axis: %v", err)
	}
	if _, err := NewGridSearch(Span(0, 0, 1, 3), Span(0, 0, 1, 3)).Search(ctx, obj, []float64{0, 0}); !fitting.IsConfig(err) {
		t.Errorf("duplicate axis: %v", err)
	}
	if _, err := NewGridSearch(Axis{Index: 0}).Search(ctx, obj, []float64{0, 0}); !fitting.IsConfig(err) {
		t.Errorf("empty axis: %v", err)
	}
	if _, err := NewGridSearch().Search(ctx, obj, []float64{0}); !errors.Is(err, fitting.ErrDimensionMismatch) {
		t.Errorf("short base: %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewGridSearch(Span(0, 0, 1, 3)).Search(cctx, obj, []float64{0, 0}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: %v", err)
	}
}
