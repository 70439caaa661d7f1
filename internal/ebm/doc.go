// Package ebm implements a one-dimensional Budyko-Sellers energy-balance
// climate model on a sine-latitude grid, together with the exact
// reverse-mode gradient of its least-squares misfit.
//
// The forward model integrates
//
//	C dT/dt = Q(1-albedo) - emissivity*sigma*T^4 + D d/dx[(1-x^2) dT/dx]
//
// with explicit Euler steps, one per entry of the forcing series. Albedo
// and emissivity are reparametrized in logit space so that a control
// vector of unconstrained perturbations always maps to physical values
// strictly inside (0,1):
//
//	albedo_i     = sigmoid(logit(base albedo(x_i))  + control[i])
//	emissivity_i = sigmoid(logit(base emissivity)   + control[n+i])
//
// [Gradient] differentiates [Cost] with respect to the control vector by
// replaying the recorded forward trajectory backwards, applying the chain
// rule through each elementwise operation and the diffusion stencil. It is
// the discrete adjoint of the forward code, not a finite-difference
// approximation.
package ebm
