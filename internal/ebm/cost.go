package ebm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// kelvinOffset converts simulated Kelvin to the Celsius scale of the
// observations. Applied once, at comparison.
const kelvinOffset = 273.0

// Cost is the Euclidean norm of the mismatch between the simulated final
// profile (converted to Celsius) and the observed per-latitude mean
// temperatures. Purely functional; a given input always yields the same
// scalar.
func Cost(cfg Config, control []float64, forcing []float64, dt float64, n int, observed []float64) (float64, error) {
	if len(observed) != n {
		return 0, fmt.Errorf("%w: want %d observations, got %d", ErrInvalidDimension, n, len(observed))
	}
	profile, err := Simulate(cfg, control, forcing, dt, n)
	if err != nil {
		return 0, err
	}
	celsius := make([]float64, n)
	for i, t := range profile {
		celsius[i] = t - kelvinOffset
	}
	return floats.Distance(celsius, observed, 2), nil
}
