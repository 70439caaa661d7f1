package ebm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Gradient returns d Cost / d control as a length-2n vector: albedo
// sensitivities in the first block, emissivity sensitivities in the second.
//
// The computation is the discrete adjoint of [Simulate]: a forward pass
// records the temperature trajectory, then sensitivities are swept
// backwards through the Euler steps in reverse order. Each backward step
// applies the transposed linearization of the forward step: the T^4
// longwave term, the forcing-times-albedo term, and the diffusion operator
// (symmetric, so it is applied as-is to the sensitivity vector). The final
// chain-rule factor alpha*(1-alpha), resp. eps*(1-eps), maps physical
// sensitivities back into the logit space of the control vector.
//
// Non-finite values from an unstable forward pass propagate into the
// returned gradient; they are not masked.
func Gradient(cfg Config, control []float64, forcing []float64, dt float64, n int, observed []float64) ([]float64, error) {
	if len(observed) != n {
		return nil, fmt.Errorf("%w: want %d observations, got %d", ErrInvalidDimension, n, len(observed))
	}
	tp, err := run(cfg, control, forcing, dt, n)
	if err != nil {
		return nil, err
	}
	g := tp.grid

	// Seed: J = ||T_final - offset - obs||, so dJ/dT_final = residual/J.
	final := tp.states[len(tp.states)-1]
	residual := make([]float64, n)
	for i := range residual {
		residual[i] = final[i] - kelvinOffset - observed[i]
	}
	cost := floats.Norm(residual, 2)

	grad := make([]float64, 2*n)
	if cost == 0 {
		// Exact fit: the norm has no derivative at zero, and there is
		// nothing left to descend. Report a zero gradient.
		return grad, nil
	}

	lambda := make([]float64, n)
	for i := range lambda {
		lambda[i] = residual[i] / cost
	}

	gAlbedo := make([]float64, n)
	gEmissivity := make([]float64, n)
	scale := dt / cfg.HeatCapacity

	for s := len(forcing) - 1; s >= 0; s-- {
		t := tp.states[s] // input state of step s, as recorded forward
		q := forcing[s]

		for i := 0; i < n; i++ {
			t4 := t[i] * t[i] * t[i] * t[i]
			gAlbedo[i] += lambda[i] * scale * (-q)
			gEmissivity[i] += lambda[i] * scale * (-cfg.Stefan * t4)
		}

		div := diffuse(cfg, g, lambda)
		next := make([]float64, n)
		for i := 0; i < n; i++ {
			t3 := t[i] * t[i] * t[i]
			next[i] = lambda[i]*(1.0-scale*4.0*tp.emissivity[i]*cfg.Stefan*t3) + scale*div[i]
		}
		lambda = next
	}

	// Back through the logistic reparametrization.
	for i := 0; i < n; i++ {
		a := tp.albedo[i]
		e := tp.emissivity[i]
		grad[i] = gAlbedo[i] * a * (1.0 - a)
		grad[n+i] = gEmissivity[i] * e * (1.0 - e)
	}
	return grad, nil
}
