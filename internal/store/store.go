// Package store persists completed fit runs: metadata, the cost history,
// and the fitted temperature profile, one directory per run.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/ebmfit/internal/ebm"
	"github.com/san-kum/ebmfit/internal/estimate"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	N          int       `json:"n"`
	Dt         float64   `json:"dt"`
	Steps      int       `json:"steps"`
	Method     string    `json:"method"`
	Rate       float64   `json:"rate"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	FinalCost  float64   `json:"final_cost"`
	Control    []float64 `json:"control,omitempty"`
}

// Save writes one run directory: metadata.json, history.csv with the cost
// trajectory, and profile.csv with the fitted temperatures per latitude.
func (s *Store) Save(meta RunMetadata, result *estimate.Result, grid *ebm.Grid, profile []float64) (string, error) {
	runID := fmt.Sprintf("fit_%d", time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Status = result.Status.String()
	meta.Iterations = result.Iterations
	if len(result.History) > 0 {
		meta.FinalCost = result.History[len(result.History)-1].Cost
	}
	// JSON cannot encode NaN/Inf; a diverged run keeps its story in Status
	// and in history.csv, which stores the raw values.
	meta.FinalCost = sanitize(meta.FinalCost)
	meta.Control = make([]float64, len(result.Control))
	for i, v := range result.Control {
		meta.Control[i] = sanitize(v)
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := s.writeHistory(filepath.Join(runDir, "history.csv"), result); err != nil {
		return "", err
	}
	if err := s.writeProfile(filepath.Join(runDir, "profile.csv"), grid, profile); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeHistory(path string, result *estimate.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"iteration", "cost", "grad_norm"}); err != nil {
		return err
	}
	for _, rec := range result.History {
		row := []string{
			strconv.Itoa(rec.Iteration),
			strconv.FormatFloat(rec.Cost, 'g', -1, 64),
			strconv.FormatFloat(rec.GradNorm, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeProfile(path string, grid *ebm.Grid, profile []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"latitude_deg", "temperature_k"}); err != nil {
		return err
	}
	for i, t := range profile {
		row := []string{
			strconv.FormatFloat(grid.LatDeg[i], 'f', 3, 64),
			strconv.FormatFloat(t, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns metadata for all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Load(e.Name())
		if err != nil {
			continue // skip directories without valid metadata
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// LoadHistory reads the iteration records of a stored run. Control
// snapshots are not persisted per iteration, so the records carry only
// cost and gradient norm.
func (s *Store) LoadHistory(runID string) ([]estimate.Record, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "history.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("run %s: empty history", runID)
	}

	records := make([]estimate.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 3 {
			return nil, fmt.Errorf("run %s: malformed history row %v", runID, row)
		}
		iter, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, err
		}
		cost, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, err
		}
		gradNorm, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, err
		}
		records = append(records, estimate.Record{Iteration: iter, Cost: cost, GradNorm: gradNorm})
	}
	return records, nil
}

// LoadProfile reads the fitted temperature profile of a stored run.
func (s *Store) LoadProfile(runID string) ([]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "profile.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	profile := make([]float64, 0, len(rows))
	for _, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("run %s: malformed profile row %v", runID, row)
		}
		t, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, err
		}
		profile = append(profile, t)
	}
	return profile, nil
}
