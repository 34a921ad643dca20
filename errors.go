package argus

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the argus package.
var (
	// ErrInsufficientData is returned when a series has fewer points than a
	// function's stated minimum.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidInput is returned for misaligned series lengths and for
	// zero-variance series where a correlation is requested.
	ErrInvalidInput = errors.New("invalid input")
)

// AnalysisError wraps a sentinel error with the operation and metric that
// failed. Callers match it with errors.Is against the sentinels above.
type AnalysisError struct {
	Op      string
	Metric  string
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Metric != "" {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Metric, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// newAnalysisError creates a new AnalysisError.
func newAnalysisError(op, metric, message string, err error) *AnalysisError {
	return &AnalysisError{Op: op, Metric: metric, Message: message, Err: err}
}
