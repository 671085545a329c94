package storage

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/san-kum/fibrilsim/internal/config"
)

type ExportData struct {
	Metadata  RunMetadata    `json:"metadata"`
	Params    *config.Params `json:"params"`
	Positions [][]float64    `json:"positions"`
	Forces    [][]float64    `json:"forces,omitempty"`
}

func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	p, err := s.LoadParams(runID)
	if err != nil {
		return nil, err
	}
	pos, err := s.LoadPositions(runID)
	if err != nil {
		return nil, err
	}
	forces, err := s.LoadArray(runID, ForcesName)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return &ExportData{
		Metadata:  *meta,
		Params:    p,
		Positions: pos,
		Forces:    forces,
	}, nil
}

// ExportJSON writes a run as one indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	data, err := s.Export(runID)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (s *Store) ExportFile(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return s.ExportJSON(file, runID)
}
