package document

import "fmt"

// NotFoundError is returned when a mutation targets an entry that does not exist
type NotFoundError struct {
	Section string
	ID      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s entry not found: %s", e.Section, e.ID)
}

// ValidationError represents a rejected mutation input
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// PersistError wraps a failed write. The session keeps its previous snapshot.
type PersistError struct {
	SessionID string
	Cause     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist error: session %s: %v", e.SessionID, e.Cause)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}
