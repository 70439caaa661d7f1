package ebm

// FitProblem binds a model configuration, forcing series, and observation
// target into the cost/gradient pair an estimator drives. The struct is
// read-only during estimation; only the control vector changes between
// iterations, and it is owned by the caller.
type FitProblem struct {
	Config      Config
	Forcing     []float64
	Observation []float64
	Dt          float64
	N           int
}

// Dim is the control vector length, two blocks of N.
func (p FitProblem) Dim() int { return 2 * p.N }

func (p FitProblem) Cost(control []float64) (float64, error) {
	return Cost(p.Config, control, p.Forcing, p.Dt, p.N, p.Observation)
}

func (p FitProblem) Gradient(control []float64) ([]float64, error) {
	return Gradient(p.Config, control, p.Forcing, p.Dt, p.N, p.Observation)
}
