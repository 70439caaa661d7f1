package estimate

import (
	"fmt"
	"math"
)

// Method proposes a new control vector from the current one and the
// gradient there. Implementations may carry state between calls (velocity,
// moment estimates); Reset clears it before a fresh run.
type Method interface {
	Name() string
	Step(control, grad []float64) []float64
	Reset()
}

// GradientDescent is the plain rule: control minus rate times gradient.
type GradientDescent struct {
	Rate float64
}

func NewGradientDescent(rate float64) *GradientDescent {
	return &GradientDescent{Rate: rate}
}

func (m *GradientDescent) Name() string { return "gd" }

func (m *GradientDescent) Step(control, grad []float64) []float64 {
	next := make([]float64, len(control))
	for i := range control {
		next[i] = control[i] - m.Rate*grad[i]
	}
	return next
}

func (m *GradientDescent) Reset() {}

// Momentum accumulates an exponentially decayed velocity, damping the
// oscillation plain descent shows in narrow valleys.
type Momentum struct {
	Rate     float64
	Beta     float64
	velocity []float64
}

func NewMomentum(rate, beta float64) *Momentum {
	return &Momentum{Rate: rate, Beta: beta}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Step(control, grad []float64) []float64 {
	if len(m.velocity) != len(control) {
		m.velocity = make([]float64, len(control))
	}
	next := make([]float64, len(control))
	for i := range control {
		m.velocity[i] = m.Beta*m.velocity[i] - m.Rate*grad[i]
		next[i] = control[i] + m.velocity[i]
	}
	return next
}

func (m *Momentum) Reset() { m.velocity = nil }

// Adam keeps per-coordinate first and second moment estimates with bias
// correction, giving an adaptive step size per control entry.
type Adam struct {
	Rate    float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	m, v []float64
	step int
}

func NewAdam(rate float64) *Adam {
	return &Adam{Rate: rate, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
}

func (a *Adam) Name() string { return "adam" }

func (a *Adam) Step(control, grad []float64) []float64 {
	if len(a.m) != len(control) {
		a.m = make([]float64, len(control))
		a.v = make([]float64, len(control))
		a.step = 0
	}
	a.step++
	next := make([]float64, len(control))
	c1 := 1.0 - math.Pow(a.Beta1, float64(a.step))
	c2 := 1.0 - math.Pow(a.Beta2, float64(a.step))
	for i := range control {
		a.m[i] = a.Beta1*a.m[i] + (1.0-a.Beta1)*grad[i]
		a.v[i] = a.Beta2*a.v[i] + (1.0-a.Beta2)*grad[i]*grad[i]
		mHat := a.m[i] / c1
		vHat := a.v[i] / c2
		next[i] = control[i] - a.Rate*mHat/(math.Sqrt(vHat)+a.Epsilon)
	}
	return next
}

func (a *Adam) Reset() {
	a.m = nil
	a.v = nil
	a.step = 0
}

// MethodByName builds a descent method from its config/CLI name.
func MethodByName(name string, rate float64) (Method, error) {
	switch name {
	case "gd", "descent":
		return NewGradientDescent(rate), nil
	case "momentum":
		return NewMomentum(rate, 0.9), nil
	case "adam":
		return NewAdam(rate), nil
	default:
		return nil, fmt.Errorf("unknown method: %s", name)
	}
}
