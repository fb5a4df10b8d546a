package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/types"
)

// maxJSONBody bounds JSON request bodies (photos travel as data URLs)
const maxJSONBody = 8 << 20

var validate = validator.New()

// decodeJSON decodes the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tooLarge
		}
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"assistant": s.assistant.Configured(),
	})
}

// handleCreateSession issues a new editing session with the default document
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := s.newSessionID()

	token, expiresAt, err := s.jwtService.GenerateToken(sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess, err := s.documents.Get(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc := sess.Snapshot()

	s.jsonResponse(w, http.StatusCreated, types.SessionResponse{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt,
		Document:  &doc,
	})
}

// apply runs mutations against the request's session and writes the result
func (s *Server) apply(w http.ResponseWriter, r *http.Request, mutations ...document.Mutation) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc, err := sess.Apply(r.Context(), mutations...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}
