package rendering

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/types"
)

// TemplateError represents an error loading or executing the HTML page template
type TemplateError struct {
	Path    string
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	where := "embedded"
	if e.Path != "" {
		where = e.Path
	}
	if e.Cause != nil {
		return fmt.Sprintf("page template (%s): %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("page template (%s): %s", where, e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError means no render tree could be produced for a document
type RenderError struct {
	Template types.TemplateName
	Message  string
	Cause    error
}

func (e *RenderError) Error() string {
	msg := e.Message
	if e.Template != "" {
		msg = fmt.Sprintf("%s [%s]", e.Message, e.Template)
	}
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", msg, e.Cause)
	}
	return "render error: " + msg
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
