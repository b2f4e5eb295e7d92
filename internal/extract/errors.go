package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-review/internal/resilience"
)

// ErrNoPages is returned, wrapped in a *raster.DocumentParseError, when
// Extract is called without any rendered pages.
var ErrNoPages = eris.New("extract: no pages to extract")

// ServiceError reports that the extraction service could not be reached or
// answered with an error. StatusCode is 0 for transport failures.
type ServiceError struct {
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("extract: service error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("extract: service error: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *ServiceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Retryable reports whether re-submitting has a chance of succeeding.
func (e *ServiceError) Retryable() bool {
	return e.Timeout() ||
		errors.Is(e.Err, resilience.ErrCircuitOpen) ||
		resilience.IsTransientHTTPStatus(e.StatusCode) ||
		resilience.IsTransient(e.Err)
}

// FormatError reports a response that was not a usable InspectionData
// JSON object. Raw is the text the service returned.
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("extract: malformed response: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
