package estimate_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ebmfit/internal/ebm"
	"github.com/san-kum/ebmfit/internal/estimate"
)

// quadratic is a convex test surface: cost = sum (c_i - target_i)^2.
type quadratic struct {
	target []float64
}

func (q quadratic) Cost(control []float64) (float64, error) {
	sum := 0.0
	for i := range control {
		d := control[i] - q.target[i]
		sum += d * d
	}
	return sum, nil
}

func (q quadratic) Gradient(control []float64) ([]float64, error) {
	grad := make([]float64, len(control))
	for i := range control {
		grad[i] = 2.0 * (control[i] - q.target[i])
	}
	return grad, nil
}

type failing struct{}

func (failing) Cost([]float64) (float64, error)      { return 0, errors.New("boom") }
func (failing) Gradient([]float64) ([]float64, error) { return nil, errors.New("boom") }

type countingObserver struct {
	calls int
}

func (c *countingObserver) OnIteration(estimate.Record) { c.calls++ }

var _ = Describe("Estimator", func() {
	var (
		problem quadratic
		initial []float64
	)

	BeforeEach(func() {
		problem = quadratic{target: []float64{1.0, -2.0, 0.5}}
		initial = []float64{0, 0, 0}
	})

	It("converges on a convex surface with plain descent", func() {
		est := estimate.New(problem, estimate.Options{
			Method:    estimate.NewGradientDescent(0.25),
			Tolerance: 1e-9,
		})
		result, err := est.Run(context.Background(), initial)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(estimate.Converged))
		for i, want := range problem.target {
			Expect(result.Control[i]).To(BeNumerically("~", want, 1e-3))
		}
	})

	It("produces non-increasing costs under a small fixed step", func() {
		est := estimate.New(problem, estimate.Options{
			Method:        estimate.NewGradientDescent(0.1),
			MaxIterations: 50,
		})
		result, err := est.Run(context.Background(), initial)
		Expect(err).NotTo(HaveOccurred())
		for i := 1; i < len(result.History); i++ {
			Expect(result.History[i].Cost).To(BeNumerically("<=", result.History[i-1].Cost))
		}
	})

	It("stops at the iteration budget when tolerance is unreachable", func() {
		est := estimate.New(problem, estimate.Options{
			Method:        estimate.NewGradientDescent(1e-9),
			Tolerance:     1e-30,
			MaxIterations: 5,
		})
		result, err := est.Run(context.Background(), initial)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(estimate.MaxIterationsReached))
		Expect(result.Iterations).To(Equal(5))
		// initial record plus one per iteration
		Expect(result.History).To(HaveLen(6))
	})

	It("reports divergence instead of failing, keeping partial history", func() {
		est := estimate.New(problem, estimate.Options{
			Method: estimate.NewGradientDescent(1.5),
		})
		result, err := est.Run(context.Background(), initial)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(estimate.Diverged))
		Expect(len(result.History)).To(BeNumerically(">", 1))
	})

	It("improves the cost with momentum", func() {
		est := estimate.New(problem, estimate.Options{
			Method:        estimate.NewMomentum(0.05, 0.9),
			MaxIterations: 100,
		})
		result, err := est.Run(context.Background(), initial)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).NotTo(Equal(estimate.Diverged))
		final := result.History[len(result.History)-1].Cost
		Expect(final).To(BeNumerically("<", result.History[0].Cost))
	})

	It("improves the cost with adam", func() {
		est := estimate.New(problem, estimate.Options{
			Method:        estimate.NewAdam(0.1),
			MaxIterations: 200,
		})
		result, err := est.Run(context.Background(), initial)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).NotTo(Equal(estimate.Diverged))
		final := result.History[len(result.History)-1].Cost
		Expect(final).To(BeNumerically("<", result.History[0].Cost))
	})

	It("notifies observers once per history record", func() {
		obs := &countingObserver{}
		est := estimate.New(problem, estimate.Options{
			Method:        estimate.NewGradientDescent(0.25),
			MaxIterations: 20,
		})
		est.AddObserver(obs)
		result, err := est.Run(context.Background(), initial)
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.calls).To(Equal(len(result.History)))
	})

	It("propagates evaluation errors", func() {
		est := estimate.New(failing{}, estimate.Options{})
		_, err := est.Run(context.Background(), initial)
		Expect(err).To(HaveOccurred())
	})

	It("honors context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		est := estimate.New(problem, estimate.Options{})
		_, err := est.Run(ctx, initial)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("MethodByName", func() {
	It("builds each known method", func() {
		for _, name := range []string{"gd", "momentum", "adam"} {
			m, err := estimate.MethodByName(name, 0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).NotTo(BeNil())
		}
	})

	It("rejects unknown names", func() {
		_, err := estimate.MethodByName("simplex", 0.01)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("SweepRates", func() {
	It("prefers a stable rate over a diverging one", func() {
		problem := quadratic{target: []float64{2.0, -1.0}}
		rate, cost, err := estimate.SweepRates(context.Background(), problem, []float64{0, 0}, []float64{0.25, 1.5}, 30)
		Expect(err).NotTo(HaveOccurred())
		Expect(rate).To(Equal(0.25))
		Expect(cost).To(BeNumerically("<", 1e-6))
	})

	It("fails when every candidate diverges", func() {
		problem := quadratic{target: []float64{2.0}}
		_, _, err := estimate.SweepRates(context.Background(), problem, []float64{0}, []float64{1.5, 2.0}, 50)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("fitting the energy-balance model", func() {
	It("reduces the misfit against a synthetic observation", func() {
		cfg := ebm.DefaultConfig()
		n := 4
		forcing := make([]float64, 20)
		for i := range forcing {
			forcing[i] = 340.0
		}
		grid, err := ebm.NewGrid(n)
		Expect(err).NotTo(HaveOccurred())
		obs := make([]float64, n)
		for i, x := range grid.Centers {
			obs[i] = 27.0 - 45.0*x*x
		}
		problem := ebm.FitProblem{
			Config:      cfg,
			Forcing:     forcing,
			Observation: obs,
			Dt:          2.6e6,
			N:           n,
		}

		est := estimate.New(problem, estimate.Options{
			Method:        estimate.NewGradientDescent(1e-3),
			MaxIterations: 30,
		})
		result, err := est.Run(context.Background(), make([]float64, problem.Dim()))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).NotTo(Equal(estimate.Diverged))

		first := result.History[0].Cost
		last := result.History[len(result.History)-1].Cost
		Expect(math.IsNaN(last)).To(BeFalse())
		Expect(last).To(BeNumerically("<", first))
	})
})
