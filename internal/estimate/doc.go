// Package estimate drives a control vector toward the minimum of a scalar
// cost by iterating an exchangeable descent rule on exact gradients.
//
// The [Estimator] owns the only mutable state of a fit: the current
// control vector and the iteration history. Every cost and gradient
// evaluation is a pure call into the supplied [Problem], so a run is fully
// reproducible from its initial control and options.
package estimate
