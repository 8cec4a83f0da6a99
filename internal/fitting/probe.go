package fitting

import "context"

type probeKey struct{}

// WithProbe marks ctx as belonging to a finite-difference probe. Evaluations
// under a probe context leave the aggregator's breakdown untouched. Nested
// probes stay probes.
func WithProbe(ctx context.Context) context.Context {
	if InProbe(ctx) {
		return ctx
	}
	return context.WithValue(ctx, probeKey{}, true)
}

// InProbe reports whether ctx was derived from WithProbe.
func InProbe(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(probeKey{}).(bool)
	return v
}
