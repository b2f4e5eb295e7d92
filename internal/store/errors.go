package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/inspection-review/internal/db"
)

// Kind classifies a PersistenceError.
type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindForbidden Kind = "forbidden"
	KindConflict  Kind = "conflict"
	KindInternal  Kind = "internal"
)

// PersistenceError is returned by Gateway when a persistence call fails.
// Edited data held by the caller is untouched, so the call can be retried.
type PersistenceError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsKind reports whether err is a PersistenceError of kind k.
func IsKind(err error, k Kind) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == k
}

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	kind := KindInternal
	switch {
	case errors.Is(err, ErrNotFound):
		kind = KindNotFound
	case db.IsUniqueViolation(err), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		kind = KindConflict
	}
	return &PersistenceError{Kind: kind, Op: op, Err: err}
}
