package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/jonathan/cv-builder/internal/assistant"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/ingestion"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/usage"
)

// multipartMemory is how much of an upload is buffered in memory
const multipartMemory = 1 << 20

// lockUsage serializes the check, the action and the record of one action
// for one session, so concurrent requests cannot both pass the check. The
// returned func releases the lock.
func (s *Server) lockUsage(sessionID string, action usage.Action) func() {
	v, _ := s.usageLocks.LoadOrStore(sessionID+":"+string(action), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// checkUsage returns ErrUsageLimitReached when action is spent for today
func (s *Server) checkUsage(ctx context.Context, tracker *usage.Tracker, action usage.Action) error {
	decision, err := tracker.Check(ctx, action)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		log.Printf("[USAGE] %s limit reached", action)
		return &ErrUsageLimitReached{Action: action, Decision: decision}
	}
	return nil
}

// recordUsage counts a completed action. The response is already earned, so
// a failed write is only logged.
func (s *Server) recordUsage(ctx context.Context, tracker *usage.Tracker, action usage.Action) {
	if err := tracker.Record(ctx, action); err != nil {
		log.Printf("[USAGE] failed to record %s: %v", action, err)
	}
}

// handleExport prints the document to PDF. ?template= prints with another
// template. Counts against the daily download limit.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc := sess.Snapshot()

	if param := r.URL.Query().Get("template"); param != "" {
		name, err := types.ParseTemplateName(param)
		if err != nil {
			s.writeError(w, &ErrValidation{Field: "template", Message: err.Error()})
			return
		}
		doc.Template = name
	}

	tracker := s.tracker(sess.ID())
	defer s.lockUsage(sess.ID(), usage.ActionDownload)()
	if err := s.checkUsage(r.Context(), tracker, usage.ActionDownload); err != nil {
		s.writeError(w, err)
		return
	}

	artifact, err := s.exporter.Export(r.Context(), sess.ID(), &doc)
	if err != nil {
		var exportErr *export.Error
		if errors.As(err, &exportErr) {
			log.Printf("[EXPORT] %v", err)
		}
		s.writeError(w, err)
		return
	}
	s.recordUsage(r.Context(), tracker, usage.ActionDownload)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("X-PDF-Pages", strconv.Itoa(artifact.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

type importResponse struct {
	Document types.CVDocument    `json:"document"`
	Metadata *ingestion.Metadata `json:"metadata"`
}

// handleImport reads an uploaded PDF (form field "file"), structures its text
// and merges the result into the document. An optional "locale" field picks
// the extraction language.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, ingestion.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, tooLarge)
			return
		}
		s.writeError(w, &ErrValidation{Field: "file", Message: "expected a multipart upload"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "file", Message: "file is required"})
		return
	}
	defer file.Close()

	if err := ingestion.ValidateUpload(header.Filename, header.Header.Get("Content-Type"), header.Size); err != nil {
		s.writeError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	extracted, err := ingestion.ExtractPDFText(header.Filename, data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	locale := sess.Snapshot().Locale
	if param := r.FormValue("locale"); param != "" {
		if locale, err = types.ParseLocale(param); err != nil {
			s.writeError(w, &ErrValidation{Field: "locale", Message: err.Error()})
			return
		}
	}

	parsed, err := s.assistant.ImportCV(r.Context(), extracted.Text, locale)
	if err != nil {
		s.writeError(w, err)
		return
	}

	doc, err := sess.Apply(r.Context(), func(current types.CVDocument) (types.CVDocument, error) {
		return parsed.ToDocument(current), nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	log.Printf("[AI] Imported %s (%d pages) into session %s", header.Filename, extracted.Metadata.Pages, sess.ID())

	s.jsonResponse(w, http.StatusOK, importResponse{Document: doc, Metadata: extracted.Metadata})
}

type optimizeResponse struct {
	Optimization *assistant.OptimizationResult `json:"optimization"`
	// Fallback is set when the suggestions were synthesized locally
	Fallback bool `json:"fallback"`
}

// handleOptimize returns suggestions for a job application. Counts against
// the daily optimization limit unless the local fallback was used.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req types.OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc := sess.Snapshot()

	locale := doc.Locale
	if req.Locale != "" {
		locale = types.Locale(req.Locale)
	}

	tracker := s.tracker(sess.ID())
	defer s.lockUsage(sess.ID(), usage.ActionOptimize)()
	if err := s.checkUsage(r.Context(), tracker, usage.ActionOptimize); err != nil {
		s.writeError(w, err)
		return
	}

	result, fellBack, err := s.assistant.OptimizeWithFallback(r.Context(), doc, req.Job, locale)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !fellBack {
		s.recordUsage(r.Context(), tracker, usage.ActionOptimize)
	}

	s.jsonResponse(w, http.StatusOK, optimizeResponse{Optimization: result, Fallback: fellBack})
}

// handleApplyOptimization writes accepted suggestions into the document
func (s *Server) handleApplyOptimization(w http.ResponseWriter, r *http.Request) {
	var result assistant.OptimizationResult
	if err := decodeJSON(w, r, &result); err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, r, func(doc types.CVDocument) (types.CVDocument, error) {
		return assistant.ApplyOptimization(doc, result), nil
	})
}

// handleTranslate translates the free-text fields and switches the document
// locale. Counts against the daily translation limit.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req types.TranslateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tracker := s.tracker(sess.ID())
	defer s.lockUsage(sess.ID(), usage.ActionTranslate)()
	if err := s.checkUsage(r.Context(), tracker, usage.ActionTranslate); err != nil {
		s.writeError(w, err)
		return
	}

	translation, err := s.assistant.Translate(r.Context(), sess.Snapshot(), types.Locale(req.Target))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Splice into the current document so edits made during the call survive
	doc, err := sess.Apply(r.Context(), func(current types.CVDocument) (types.CVDocument, error) {
		return assistant.ApplyTranslation(current, translation), nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordUsage(r.Context(), tracker, usage.ActionTranslate)

	s.jsonResponse(w, http.StatusOK, doc)
}
