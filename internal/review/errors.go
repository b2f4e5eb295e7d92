package review

import "github.com/rotisserie/eris"

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state.
	ErrInvalidState = eris.New("review: operation not allowed in current state")
	// ErrSaveInFlight is returned while a save is outstanding.
	ErrSaveInFlight = eris.New("review: save already in progress")
	// ErrIndexOutOfRange is returned for a checklist or action index that
	// does not exist.
	ErrIndexOutOfRange = eris.New("review: index out of range")
	// ErrUnknownField is returned by UpdateField for a field that cannot be
	// edited directly.
	ErrUnknownField = eris.New("review: unknown field")
	// ErrUnknownDeadletter is returned when resolving a key that is not
	// pending in deadletter.
	ErrUnknownDeadletter = eris.New("review: deadletter key not pending")
	// ErrNoDocument is returned by Submit before a readable PDF is loaded.
	ErrNoDocument = eris.New("review: no document loaded")
	// ErrSuperseded is returned when a later call replaced the result of
	// this one, or the session moved on while it was running.
	ErrSuperseded = eris.New("review: superseded by a later request")
	// ErrSessionNotFound is returned by Registry for unknown sessions.
	ErrSessionNotFound = eris.New("review: session not found")
	// ErrClosed is returned by every operation on a removed session.
	ErrClosed = eris.New("review: session closed")
)
