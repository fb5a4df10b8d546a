package assistant

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an assistant call failed
type ErrorKind string

const (
	// KindValidation means the input was rejected before any network call
	KindValidation ErrorKind = "validation"
	// KindUpstream means the text-generation service failed or was unreachable
	KindUpstream ErrorKind = "upstream"
	// KindMalformed means the service answered with unusable content
	KindMalformed ErrorKind = "malformed"
	// KindNotConfigured means no text-generation client is available
	KindNotConfigured ErrorKind = "not_configured"
)

// Error is returned by every assistant operation
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an assistant error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
