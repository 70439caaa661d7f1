package ebm

import (
	"errors"
	"math"
	"testing"
)

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(8)
	if err != nil {
		t.Fatalf("grid failed: %v", err)
	}

	if len(g.Edges) != 9 {
		t.Errorf("expected 9 edges, got %d", len(g.Edges))
	}
	if len(g.Centers) != 8 {
		t.Errorf("expected 8 centers, got %d", len(g.Centers))
	}
	if g.Edges[0] != -1.0 || g.Edges[8] != 1.0 {
		t.Errorf("edges should span [-1,1], got [%f,%f]", g.Edges[0], g.Edges[8])
	}
	if math.Abs(g.Width-0.25) > 1e-15 {
		t.Errorf("expected width 0.25, got %f", g.Width)
	}

	for i := 0; i < 8; i++ {
		want := 0.5 * (g.Edges[i] + g.Edges[i+1])
		if math.Abs(g.Centers[i]-want) > 1e-15 {
			t.Errorf("center %d: expected %f, got %f", i, want, g.Centers[i])
		}
	}

	// latitudes increase monotonically from south to north
	for i := 1; i < 8; i++ {
		if g.LatDeg[i] <= g.LatDeg[i-1] {
			t.Errorf("latitudes not increasing at %d: %f then %f", i, g.LatDeg[i-1], g.LatDeg[i])
		}
	}
	if g.LatDeg[0] >= 0 == (g.LatDeg[7] >= 0) {
		t.Error("latitudes should straddle the equator")
	}
}

func TestNewGridTooSmall(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		if _, err := NewGrid(n); !errors.Is(err, ErrInvalidGrid) {
			t.Errorf("n=%d: expected ErrInvalidGrid, got %v", n, err)
		}
	}
}
