package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Callers match with errors.Is.
var (
	// ErrInvalidConfidence indicates a confidence level outside the 1..5 scale.
	ErrInvalidConfidence = errors.New("engine: confidence level outside [1,5]")

	// ErrInvalidScore indicates a score outside its domain.
	ErrInvalidScore = errors.New("engine: score outside its domain")

	// ErrSeriesLengthMismatch indicates paired series of different lengths.
	ErrSeriesLengthMismatch = errors.New("engine: paired series differ in length")

	// ErrInvalidParameters indicates a degenerate Params value.
	ErrInvalidParameters = errors.New("engine: invalid parameters")

	// ErrNotFound indicates an unknown session, objective or item id.
	ErrNotFound = errors.New("engine: not found")

	// ErrSessionTerminated indicates an operation on a closed session.
	ErrSessionTerminated = errors.New("engine: session already terminated")
)

// InsufficientDataError reports an aggregate that cannot be released
// because the underlying pool is too small. Callers match with errors.As.
type InsufficientDataError struct {
	Resource string // what fell short, e.g. "opted-in peers"
	Have     int
	Need     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("engine: insufficient %s: have %d, need %d", e.Resource, e.Have, e.Need)
}
