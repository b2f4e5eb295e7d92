// Package schema validates and normalizes InspectionData at the two points
// it crosses a trust boundary: right after extraction (lenient) and right
// before persistence (strict).
package schema

import (
	"fmt"
	"strings"
)

// FieldError is a single failed constraint.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Path + ": " + e.Message
}

// ValidationError collects every field failure found in one pass.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return "schema: validation failed: " + strings.Join(parts, "; ")
}

// Field returns the first message recorded for path.
func (e *ValidationError) Field(path string) (string, bool) {
	for _, fe := range e.Errors {
		if fe.Path == path {
			return fe.Message, true
		}
	}
	return "", false
}

type collector struct {
	errs []FieldError
}

func (c *collector) add(path, format string, args ...any) {
	c.errs = append(c.errs, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: c.errs}
}

func indexPath(base string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", base, i, field)
}
