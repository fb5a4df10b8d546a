package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/cv-builder/internal/assistant"
	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/ingestion"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/usage"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUsageLimitReached means the free daily limit of an action is spent
type ErrUsageLimitReached struct {
	Action   usage.Action
	Decision usage.Decision
}

func (e *ErrUsageLimitReached) Error() string {
	return fmt.Sprintf("daily %s limit reached", e.Action)
}

// ErrUnauthorized means the request carried no usable session
type ErrUnauthorized struct{}

func (e *ErrUnauthorized) Error() string {
	return "unauthorized"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		usageErr      *ErrUsageLimitReached
		unauthorized  *ErrUnauthorized
		notFound      *document.NotFoundError
		docValidation *document.ValidationError
		fieldErrors   validator.ValidationErrors
		uploadErr     *ingestion.UploadError
		tooLarge      *http.MaxBytesError
		assistantErr  *assistant.Error
		templateErr   *rendering.TemplateError
		renderErr     *rendering.RenderError
	)

	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &validationErr), errors.As(err, &docValidation), errors.As(err, &fieldErrors):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &usageErr):
		return http.StatusTooManyRequests
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &uploadErr):
		return http.StatusBadRequest
	case errors.As(err, &assistantErr):
		switch assistantErr.Kind {
		case assistant.KindValidation:
			return http.StatusBadRequest
		case assistant.KindNotConfigured:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	case errors.Is(err, export.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, export.ErrRenderTargetMissing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &templateErr):
		return http.StatusInternalServerError
	case errors.As(err, &renderErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable code sent next to the message
func errorCode(err error) string {
	var (
		usageErr     *ErrUsageLimitReached
		assistantErr *assistant.Error
	)
	switch {
	case errors.As(err, &usageErr):
		return "usage_limit_reached"
	case errors.As(err, &assistantErr):
		return string(assistantErr.Kind)
	case errors.Is(err, export.ErrExportInProgress):
		return "export_in_progress"
	case errors.Is(err, export.ErrRenderTargetMissing):
		return "render_target_missing"
	}
	return ""
}
