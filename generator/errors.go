package generator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionBusy is returned when a session already has a generation in flight.
	ErrSessionBusy = errors.New("generator: a generation is already running for this session")
	// ErrEmptyOutput marks a stage whose model response was blank.
	ErrEmptyOutput = errors.New("model returned empty markdown")
)

// ValidationError lists every constraint a RunRequest violated.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "generator: invalid run request: " + strings.Join(e.Problems, "; ")
}

// StageError wraps any failure that aborted the pipeline inside a stage.
type StageError struct {
	Stage StageKind
	Role  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("generator: %s stage (%s) failed: %v", e.Stage, e.Role, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
