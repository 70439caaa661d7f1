// Package dataio loads the numeric series the fit consumes: the insolation
// forcing and the observed zonal-mean temperature profile. It also provides
// synthetic stand-ins so the tool runs end-to-end without external data.
package dataio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/ebmfit/internal/ebm"
)

// LoadSeries reads a one-dimensional series of floats from a text file.
// Values may be separated by newlines, commas, or whitespace; blank lines
// and lines starting with '#' are skipped.
func LoadSeries(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		for _, field := range strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad value %q: %w", path, line, field, err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: no values", path)
	}
	return values, nil
}

// LoadObservation reads an observation vector and checks it against the
// grid resolution.
func LoadObservation(path string, n int) ([]float64, error) {
	obs, err := LoadSeries(path)
	if err != nil {
		return nil, err
	}
	if len(obs) != n {
		return nil, fmt.Errorf("%s: want %d observations, got %d", path, n, len(obs))
	}
	return obs, nil
}

// ConstantForcing is a flat insolation series, one value per step.
func ConstantForcing(value float64, steps int) []float64 {
	f := make([]float64, steps)
	for i := range f {
		f[i] = value
	}
	return f
}

// SyntheticObservation is an idealized zonal-mean surface temperature in
// Celsius: about 27 at the equator falling to -18 at the poles, quadratic
// in sine latitude.
func SyntheticObservation(g *ebm.Grid) []float64 {
	obs := make([]float64, g.N)
	for i, x := range g.Centers {
		obs[i] = 27.0 - 45.0*x*x
	}
	return obs
}
