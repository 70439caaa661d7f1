package store

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/san-kum/ebmfit/internal/estimate"
)

// ExportData is the full serialized form of a fit run, for downstream
// plotting or analysis outside this tool.
type ExportData struct {
	Meta       RunMetadata `json:"meta"`
	Profile    []float64   `json:"profile"`
	Iterations []int       `json:"iterations"`
	Costs      []float64   `json:"costs"`
	GradNorms  []float64   `json:"grad_norms"`
}

// sanitize clamps non-finite values, which encoding/json refuses. The
// terminal status still records that the run blew up.
func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(v, -1) {
		return -math.MaxFloat64
	}
	return v
}

func buildExport(meta RunMetadata, result *estimate.Result, profile []float64) ExportData {
	data := ExportData{
		Meta:       meta,
		Profile:    make([]float64, len(profile)),
		Iterations: make([]int, len(result.History)),
		Costs:      make([]float64, len(result.History)),
		GradNorms:  make([]float64, len(result.History)),
	}
	for i, v := range profile {
		data.Profile[i] = sanitize(v)
	}
	for i, rec := range result.History {
		data.Iterations[i] = rec.Iteration
		data.Costs[i] = sanitize(rec.Cost)
		data.GradNorms[i] = sanitize(rec.GradNorm)
	}
	return data
}

// ExportJSON writes a run to a file.
func ExportJSON(path string, meta RunMetadata, result *estimate.Result, profile []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeExport(f, meta, result, profile)
}

// ExportJSONStdout writes a run to standard output.
func ExportJSONStdout(meta RunMetadata, result *estimate.Result, profile []float64) error {
	return writeExport(os.Stdout, meta, result, profile)
}

func writeExport(w io.Writer, meta RunMetadata, result *estimate.Result, profile []float64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildExport(meta, result, profile))
}
