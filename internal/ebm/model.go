package ebm

import (
	"fmt"
	"math"
)

func logistic(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1.0 - p)) }

// Albedo maps the albedo block of a control vector to physical per-band
// albedo: the baseline curve in logit space plus the perturbation, squashed
// back through the logistic. Finite perturbations always land strictly
// inside (0,1).
func Albedo(cfg Config, g *Grid, pert []float64) []float64 {
	a := make([]float64, g.N)
	for i, x := range g.Centers {
		base := cfg.AlbedoFlat + cfg.AlbedoGradient*x*x
		a[i] = logistic(logit(base) + pert[i])
	}
	return a
}

// Emissivity maps the emissivity block of a control vector to physical
// per-band emissivity, analogous to [Albedo] but from a single baseline
// scalar.
func Emissivity(cfg Config, g *Grid, pert []float64) []float64 {
	e := make([]float64, g.N)
	base := logit(cfg.Emissivity)
	for i := range e {
		e[i] = logistic(base + pert[i])
	}
	return e
}

// InitialProfile is the fixed analytic starting temperature: warm at the
// equator, cooling quadratically in sine latitude toward the poles.
func InitialProfile(cfg Config, g *Grid) []float64 {
	t := make([]float64, g.N)
	for i, x := range g.Centers {
		t[i] = cfg.InitBias + cfg.InitRange*(1.0-x*x)
	}
	return t
}

// diffuse applies the meridional diffusion operator in flux form. Edge
// fluxes are weighted by (1 - x^2), which vanishes at the poles and so
// enforces the zero-flux boundary condition without special cases. The
// operator is a symmetric tridiagonal map, which the adjoint sweep relies
// on: applying it to the sensitivity vector is its own transpose.
func diffuse(cfg Config, g *Grid, t []float64) []float64 {
	n := g.N
	inv := cfg.Diffusion / (g.Width * g.Width)

	// flux[j] crosses the edge between cells j-1 and j
	flux := make([]float64, n+1)
	for j := 1; j < n; j++ {
		x := g.Edges[j]
		flux[j] = inv * (1.0 - x*x) * (t[j] - t[j-1])
	}

	div := make([]float64, n)
	for i := 0; i < n; i++ {
		div[i] = flux[i+1] - flux[i]
	}
	return div
}

// step advances the temperature state by one explicit Euler step under a
// single forcing value. It is a pure function of its inputs; the caller
// owns the sequencing over the forcing series.
func step(cfg Config, g *Grid, t []float64, albedo, emissivity []float64, forcing, dt float64) []float64 {
	div := diffuse(cfg, g, t)
	next := make([]float64, g.N)
	scale := dt / cfg.HeatCapacity
	for i := range next {
		absorbed := forcing * (1.0 - albedo[i])
		outgoing := emissivity[i] * cfg.Stefan * t[i] * t[i] * t[i] * t[i]
		next[i] = t[i] + scale*(absorbed-outgoing+div[i])
	}
	return next
}

// tape holds everything the backward sweep needs from a forward pass: the
// full temperature trajectory and the (step-invariant) physical fields,
// exactly as computed forward.
type tape struct {
	grid       *Grid
	albedo     []float64
	emissivity []float64
	states     [][]float64 // len(forcing)+1 profiles, states[0] is initial
}

func validate(control []float64, forcing []float64, dt float64, n int) error {
	if n < 2 {
		return fmt.Errorf("%w: need at least 2 latitude bands, got %d", ErrInvalidGrid, n)
	}
	if len(control) != 2*n {
		return fmt.Errorf("%w: want %d control entries, got %d", ErrInvalidDimension, 2*n, len(control))
	}
	if len(forcing) == 0 {
		return fmt.Errorf("forcing series is empty")
	}
	if dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", dt)
	}
	return nil
}

func run(cfg Config, control []float64, forcing []float64, dt float64, n int) (*tape, error) {
	if err := validate(control, forcing, dt, n); err != nil {
		return nil, err
	}
	g, err := NewGrid(n)
	if err != nil {
		return nil, err
	}

	tp := &tape{
		grid:       g,
		albedo:     Albedo(cfg, g, control[:n]),
		emissivity: Emissivity(cfg, g, control[n:]),
		states:     make([][]float64, 0, len(forcing)+1),
	}

	t := InitialProfile(cfg, g)
	tp.states = append(tp.states, t)
	for _, q := range forcing {
		t = step(cfg, g, t, tp.albedo, tp.emissivity, q, dt)
		tp.states = append(tp.states, t)
	}
	return tp, nil
}

// Simulate integrates the model over the whole forcing series and returns
// the final temperature profile in Kelvin. Each call starts from the fixed
// initial profile; no thermal state is carried between calls.
//
// Stability of the explicit Euler scheme is a caller contract: dt must be
// small enough for the radiative and diffusive time scales implied by cfg.
// NaN or Inf arising from an unstable step propagate into the result.
func Simulate(cfg Config, control []float64, forcing []float64, dt float64, n int) ([]float64, error) {
	tp, err := run(cfg, control, forcing, dt, n)
	if err != nil {
		return nil, err
	}
	return tp.states[len(tp.states)-1], nil
}
