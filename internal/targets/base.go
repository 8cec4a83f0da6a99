package targets

import (
	"context"

	"github.com/san-kum/forcefit/internal/fitting"
)

// base carries what every target shares: its identity and the terms of the
// last evaluation that was not a probe, for Indicate.
type base struct {
	name   string
	weight float64
	last   fitting.Terms
	evals  int
}

func (b *base) Name() string    { return b.name }
func (b *base) Weight() float64 { return b.weight }

// Evaluations reports how many non-probe evaluations were made.
func (b *base) Evaluations() int { return b.evals }

func (b *base) remember(ctx context.Context, t fitting.Terms) fitting.Terms {
	if !fitting.InProbe(ctx) {
		b.last = t
		b.evals++
	}
	return t
}
