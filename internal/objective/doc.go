// Package objective combines fitting targets and a penalty into a single
// differentiable objective function.
//
// The package is organised around:
//
//   - [Objective]: evaluates every target at a derivative order, applies the
//     weight normalization and adds the regularization term
//   - [Result]: value, gradient and Hessian with the unregularized parts kept
//     alongside
//   - [Ledger]: the current and previous per-target breakdown used for
//     reporting
//
// # Example
//
//	obj, _ := objective.New(targets, pen, ff.NP())
//	res, _ := obj.Evaluate(ctx, mvals, fitting.OrderHessian)
//	fmt.Println(res.X, res.Raw.X)
//
// # Finite differences
//
// Evaluations used only to estimate derivatives go through [Objective.Probe]
// (or any context marked with [fitting.WithProbe]) and never touch the
// ledger. Targets that evaluate the objective again from inside their own
// derivative code must pass the probe context on.
//
// # Thread Safety
//
// An Objective evaluates targets sequentially and is not meant for
// concurrent Evaluate calls; the Ledger itself is guarded.
package objective
