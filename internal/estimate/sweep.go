package estimate

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// SweepRates runs a short plain-descent fit for each candidate learning
// rate and reports the rate with the lowest final cost. Candidates run
// concurrently, each with its own method state from the same initial
// control; the Problem must be safe for concurrent evaluation. Diverged
// candidates are skipped.
func SweepRates(ctx context.Context, problem Problem, initial []float64, rates []float64, iterations int) (float64, float64, error) {
	if len(rates) == 0 {
		return 0, 0, fmt.Errorf("no candidate rates")
	}

	results := make([]*Result, len(rates))
	errs := make([]error, len(rates))

	var wg sync.WaitGroup
	for i, rate := range rates {
		wg.Add(1)
		go func(idx int, rate float64) {
			defer wg.Done()

			opts := Options{
				Method:        NewGradientDescent(rate),
				MaxIterations: iterations,
			}
			results[idx], errs[idx] = New(problem, opts).Run(ctx, initial)
		}(i, rate)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return 0, 0, err
		}
	}

	best := math.Inf(1)
	bestRate := 0.0
	found := false
	for i, result := range results {
		if result.Status == Diverged {
			continue
		}
		final := result.History[len(result.History)-1].Cost
		if final < best {
			best = final
			bestRate = rates[i]
			found = true
		}
	}

	if !found {
		return 0, 0, fmt.Errorf("all %d candidate rates diverged", len(rates))
	}
	return bestRate, best, nil
}
