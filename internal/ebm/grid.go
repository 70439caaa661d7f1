package ebm

import (
	"fmt"
	"math"
)

// Grid is a fixed latitude discretization: n+1 equally spaced edges on the
// sine-latitude interval [-1, 1] and the n cell centers between them.
type Grid struct {
	N       int
	Edges   []float64 // n+1 edge positions in sine latitude
	Centers []float64 // n cell centers in sine latitude
	LatDeg  []float64 // cell-center latitude in degrees
	Width   float64   // uniform cell width, 2/n
}

// NewGrid builds the grid for n latitude bands. At least two bands are
// required for the finite-difference stencil.
func NewGrid(n int) (*Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 latitude bands, got %d", ErrInvalidGrid, n)
	}

	g := &Grid{
		N:       n,
		Edges:   make([]float64, n+1),
		Centers: make([]float64, n),
		LatDeg:  make([]float64, n),
		Width:   2.0 / float64(n),
	}

	for i := 0; i <= n; i++ {
		g.Edges[i] = -1.0 + float64(i)*g.Width
	}
	for i := 0; i < n; i++ {
		g.Centers[i] = 0.5 * (g.Edges[i] + g.Edges[i+1])
		g.LatDeg[i] = math.Asin(g.Centers[i]) * 180.0 / math.Pi
	}
	return g, nil
}
