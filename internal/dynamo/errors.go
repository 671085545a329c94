package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for fibril operations.
var (
	// ErrInvalidState indicates a position array holding NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates positions, cell and parameters disagree on shape.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between positions and cell")

	// ErrTopology indicates a malformed adjacency matrix.
	ErrTopology = errors.New("dynamo: malformed adjacency matrix")

	// ErrInvalidTopology indicates an index list entry that refers to a nonexistent bead or class.
	ErrInvalidTopology = errors.New("dynamo: index out of range in topology")

	// ErrGrowth indicates fibril growth exhausted its retry budget.
	ErrGrowth = errors.New("dynamo: fibril growth exhausted retry budget")
)

// TopologyError reports the matrix entry that broke symmetry, diagonal or shape rules.
type TopologyError struct {
	I, J   int
	Reason string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("%s: entry (%d, %d) %s", ErrTopology, e.I, e.J, e.Reason)
}

func (e *TopologyError) Unwrap() error {
	return ErrTopology
}

// IndexError reports an index list entry pointing outside [0, N).
type IndexError struct {
	Kind  string
	Entry int
	Index int
	N     int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s %d references %d outside [0, %d)", ErrInvalidTopology, e.Kind, e.Entry, e.Index, e.N)
}

func (e *IndexError) Unwrap() error {
	return ErrInvalidTopology
}

type GrowthStage string

const (
	StageSeed   GrowthStage = "seed"
	StageExtend GrowthStage = "extend"
)

// GrowthError carries enough context to replay a failed growth run with the same seed.
type GrowthError struct {
	Stage    GrowthStage
	Fibril   int
	Bead     int
	Attempts int
	Retries  int
}

func (e *GrowthError) Error() string {
	if e.Stage == StageSeed {
		return fmt.Sprintf("%s: cannot seed fibril %d after %d attempts", ErrGrowth, e.Fibril, e.Attempts)
	}
	return fmt.Sprintf("%s: cannot extend fibril %d at bead %d after %d attempts and %d retries",
		ErrGrowth, e.Fibril, e.Bead, e.Attempts, e.Retries)
}

func (e *GrowthError) Unwrap() error {
	return ErrGrowth
}
