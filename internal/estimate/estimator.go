package estimate

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Problem is the scalar cost surface being minimized, with its exact
// gradient. Both calls must be pure functions of the control vector.
type Problem interface {
	Cost(control []float64) (float64, error)
	Gradient(control []float64) ([]float64, error)
}

// Status is the estimator state machine. A run starts Running and ends in
// exactly one of the three terminal states.
type Status int

const (
	Running Status = iota
	Converged
	MaxIterationsReached
	Diverged
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max_iterations"
	case Diverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// Options bound a run. Zero values fall back to conservative defaults.
type Options struct {
	Method          Method
	Tolerance       float64 // convergence: |cost change| or gradient norm below this
	MaxIterations   int
	BlowupThreshold float64 // divergence: cost or gradient norm above this
}

const (
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 500
	DefaultBlowup        = 1e8
)

func (o Options) withDefaults() Options {
	if o.Method == nil {
		o.Method = NewGradientDescent(1e-3)
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.BlowupThreshold <= 0 {
		o.BlowupThreshold = DefaultBlowup
	}
	return o
}

// Record is one history entry: the cost and gradient norm seen at an
// iteration, plus a snapshot of the control vector after the step.
type Record struct {
	Iteration int
	Cost      float64
	GradNorm  float64
	Control   []float64
}

// Result carries the final control vector, the full iteration history, and
// the terminal status. On divergence the partial history is still
// returned; divergence is an outcome, not an error.
type Result struct {
	Control    []float64
	History    []Record
	Status     Status
	Iterations int
}

// Observer receives each history record as it is produced, e.g. for a live
// progress view.
type Observer interface {
	OnIteration(r Record)
}

// Estimator minimizes a Problem's cost from a caller-supplied starting
// control vector.
type Estimator struct {
	problem   Problem
	opts      Options
	observers []Observer
}

func New(problem Problem, opts Options) *Estimator {
	return &Estimator{problem: problem, opts: opts.withDefaults()}
}

func (e *Estimator) AddObserver(o Observer) { e.observers = append(e.observers, o) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Run iterates until convergence, the iteration budget, divergence, or
// context cancellation. The initial vector is not mutated; each iteration
// evaluates the gradient at the current control, applies the step rule,
// and evaluates the cost at the proposed control.
func (e *Estimator) Run(ctx context.Context, initial []float64) (*Result, error) {
	control := make([]float64, len(initial))
	copy(control, initial)
	e.opts.Method.Reset()

	cost, err := e.problem.Cost(control)
	if err != nil {
		return nil, fmt.Errorf("initial cost: %w", err)
	}

	result := &Result{
		Control: control,
		History: make([]Record, 0, e.opts.MaxIterations+1),
		Status:  Running,
	}
	e.record(result, Record{Iteration: 0, Cost: cost, Control: control})

	if !finite(cost) || cost > e.opts.BlowupThreshold {
		result.Status = Diverged
		return result, nil
	}

	prev := cost
	for i := 1; i <= e.opts.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		grad, err := e.problem.Gradient(control)
		if err != nil {
			return result, fmt.Errorf("iteration %d: %w", i, err)
		}
		gradNorm := floats.Norm(grad, 2)
		if !finite(gradNorm) || gradNorm > e.opts.BlowupThreshold {
			result.Status = Diverged
			break
		}

		control = e.opts.Method.Step(control, grad)
		cost, err = e.problem.Cost(control)
		if err != nil {
			return result, fmt.Errorf("iteration %d: %w", i, err)
		}

		result.Control = control
		result.Iterations = i
		e.record(result, Record{Iteration: i, Cost: cost, GradNorm: gradNorm, Control: control})

		if !finite(cost) || cost > e.opts.BlowupThreshold {
			result.Status = Diverged
			break
		}
		if gradNorm < e.opts.Tolerance || math.Abs(prev-cost) < e.opts.Tolerance {
			result.Status = Converged
			break
		}
		prev = cost
	}

	if result.Status == Running {
		result.Status = MaxIterationsReached
	}
	return result, nil
}

func (e *Estimator) record(result *Result, r Record) {
	snapshot := make([]float64, len(r.Control))
	copy(snapshot, r.Control)
	r.Control = snapshot
	result.History = append(result.History, r)
	for _, o := range e.observers {
		o.OnIteration(r)
	}
}
