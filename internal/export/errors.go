package export

import (
	"errors"
	"fmt"

	"github.com/jonathan/cv-builder/internal/types"
)

var (
	// ErrRenderTargetMissing means the document could not produce a render tree
	ErrRenderTargetMissing = errors.New("render target missing")
	// ErrExportInProgress means another export for the same key has not finished
	ErrExportInProgress = errors.New("export already in progress")
)

// Error represents a failure in one stage of the export pipeline
type Error struct {
	Stage    string
	Template types.TemplateName
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	prefix := "export"
	if e.Stage != "" {
		prefix = fmt.Sprintf("export %s", e.Stage)
	}
	if e.Template != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.Template)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
