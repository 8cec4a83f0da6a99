// Package fitting provides core primitives for force-field objective evaluation.
//
// The package defines the contract shared by fitting targets, penalties and
// the objective aggregator:
//
//   - [Order]: requested derivative order (X, G or H)
//   - [Terms]: value, gradient and Hessian produced at an order
//   - [Target]: a weighted contributor to the objective function
//   - [ConfigError]: construction-time validation failures
//
// # Finite-difference probes
//
// Evaluations performed only to estimate derivatives must not touch the
// reporting state of the aggregator. The probe flag travels with the call's
// context rather than living in a global:
//
//	ctx = fitting.WithProbe(ctx)
//	if fitting.InProbe(ctx) {
//	    // skip bookkeeping
//	}
package fitting
