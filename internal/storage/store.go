package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/forcefield"
)

const (
	metadataFile  = "metadata.json"
	paramsFile    = "params.yaml"
	positionsName = "positions"
	ForcesName    = "forces"
)

// ErrNoRuns is returned by Latest on an empty store.
var ErrNoRuns = errors.New("storage: no stored runs")

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
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	NDim      int                `json:"n_dim"`
	NFibril   int                `json:"n_fibril"`
	LFibril   int                `json:"l_fibril"`
	NBead     int                `json:"n_bead"`
	Cell      []float64          `json:"cell"`
	Seed      int64              `json:"seed"`
	Energy    float64            `json:"energy"`
	Terms     forcefield.Terms   `json:"terms"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes a new run directory holding metadata, parameters, positions
// and, when res is non-nil, forces.
func (s *Store) Save(p *config.Params, pos dynamo.Positions, res *forcefield.Result, metrics map[string]float64) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: time.Now(),
		NDim:      p.NDim,
		NFibril:   p.NFibril(),
		LFibril:   p.LFibril,
		NBead:     len(pos),
		Cell:      p.Cell(),
		Seed:      p.Seed,
		Metrics:   metrics,
	}
	if res != nil {
		meta.Energy = res.Energy
		meta.Terms = res.Terms
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, paramsFile), p); err != nil {
		return "", err
	}
	if err := s.SaveArray(runID, positionsName, pos); err != nil {
		return "", err
	}
	if res != nil {
		if err := s.SaveArray(runID, ForcesName, res.Forces); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadParams(runID string) (*config.Params, error) {
	return config.Load(filepath.Join(s.baseDir, runID, paramsFile))
}

func (s *Store) LoadPositions(runID string) (dynamo.Positions, error) {
	rows, err := s.LoadArray(runID, positionsName)
	if err != nil {
		return nil, err
	}
	return dynamo.Positions(rows), nil
}

func (s *Store) arrayPath(runID, name string) string {
	return filepath.Join(s.baseDir, runID, name+".csv")
}

// SaveArray writes rows to <run>/<name>.csv under a c0, c1, ... header.
func (s *Store) SaveArray(runID, name string, rows [][]float64) error {
	f, err := os.Create(s.arrayPath(runID, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	header := make([]string, width)
	for i := range header {
		header[i] = fmt.Sprintf("c%d", i)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, width)
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d", dynamo.ErrDimensionMismatch, name, i, len(row), width)
		}
		for j, val := range row {
			record[j] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// LoadArray reads <run>/<name>.csv. With no rows given every row is
// returned, otherwise only the selected rows in the order asked.
func (s *Store) LoadArray(runID, name string, rows ...int) ([][]float64, error) {
	f, err := os.Open(s.arrayPath(runID, name))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %s: %w", runID, name, err)
	}
	if len(records) > 0 {
		records = records[1:]
	}

	if len(rows) == 0 {
		rows = make([]int, len(records))
		for i := range rows {
			rows[i] = i
		}
	}

	out := make([][]float64, 0, len(rows))
	for _, i := range rows {
		if i < 0 || i >= len(records) {
			return nil, fmt.Errorf("%w: %s row %d outside [0, %d)", dynamo.ErrParameterBounds, name, i, len(records))
		}
		row := make([]float64, len(records[i]))
		for j, field := range records[i] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", name, i, j, err)
			}
			row[j] = val
		}
		out = append(out, row)
	}
	return out, nil
}
