package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/layout"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
)

// Sections holding identified entries
const (
	sectionExperience = "experience"
	sectionEducation  = "education"
	sectionProjects   = "projects"
	sectionLanguages  = "languages"
)

var entrySections = []string{sectionExperience, sectionEducation, sectionProjects, sectionLanguages}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePatchDocument(w http.ResponseWriter, r *http.Request) {
	var patch types.DocumentPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, r, document.UpdateFields(patch))
}

// handleReplaceDocument replaces the whole document. Missing fields take
// their default values.
func (s *Server) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := schemas.ValidateDocument(data); err != nil {
		s.writeError(w, &ErrValidation{Field: "document", Message: err.Error()})
		return
	}
	doc, err := document.MergeOverDefaults(data)
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "document", Message: err.Error()})
		return
	}
	s.apply(w, r, document.Replace(doc))
}

func (s *Server) handleResetDocument(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc, err := sess.Reset(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	var req types.LocaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, r, document.SetLocale(types.Locale(req.Locale)))
}

func (s *Server) handleSetTemplate(w http.ResponseWriter, r *http.Request) {
	var req types.TemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, r, document.SetTemplate(types.TemplateName(req.Template)))
}

func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	var req types.SkillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, r, document.AddSkill(req.Skill))
}

func (s *Server) handleReplaceSkills(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Skills []string `json:"skills" validate:"dive,max=100"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, r, document.ReplaceSkills(req.Skills))
}

func (s *Server) handleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, document.RemoveSkill(r.PathValue("skill")))
}

func (s *Server) handleAddEntry(section string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := entryMutation(w, r, section, "")
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.apply(w, r, m)
	}
}

func (s *Server) handleUpdateEntry(section string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := entryMutation(w, r, section, r.PathValue("id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.apply(w, r, m)
	}
}

func (s *Server) handleRemoveEntry(section string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var m document.Mutation
		switch section {
		case sectionExperience:
			m = document.RemoveExperience(id)
		case sectionEducation:
			m = document.RemoveEducation(id)
		case sectionProjects:
			m = document.RemoveProject(id)
		default:
			m = document.RemoveLanguage(id)
		}
		s.apply(w, r, m)
	}
}

// entryMutation decodes an entry of section from the body. An empty id adds
// the entry, otherwise the entry with that id is updated.
func entryMutation(w http.ResponseWriter, r *http.Request, section, id string) (document.Mutation, error) {
	switch section {
	case sectionExperience:
		var entry types.Experience
		if err := decodeEntry(w, r, &entry); err != nil {
			return nil, err
		}
		if id == "" {
			return document.AddExperience(entry), nil
		}
		return document.UpdateExperience(id, entry), nil
	case sectionEducation:
		var entry types.Education
		if err := decodeEntry(w, r, &entry); err != nil {
			return nil, err
		}
		if id == "" {
			return document.AddEducation(entry), nil
		}
		return document.UpdateEducation(id, entry), nil
	case sectionProjects:
		var entry types.Project
		if err := decodeEntry(w, r, &entry); err != nil {
			return nil, err
		}
		if id == "" {
			return document.AddProject(entry), nil
		}
		return document.UpdateProject(id, entry), nil
	default:
		var entry types.Language
		if err := decodeEntry(w, r, &entry); err != nil {
			return nil, err
		}
		if id == "" {
			return document.AddLanguage(entry), nil
		}
		return document.UpdateLanguage(id, entry), nil
	}
}

func decodeEntry(w http.ResponseWriter, r *http.Request, entry any) error {
	if err := decodeJSON(w, r, entry); err != nil {
		return err
	}
	return validate.Struct(entry)
}

type layoutResponse struct {
	layout.Decision
	VisibleProjects int `json:"visibleProjects"`
	Experience      int `json:"experience"`
}

// handleLayout reports the section placement the Original template will use
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc := sess.Snapshot()
	s.jsonResponse(w, http.StatusOK, layoutResponse{
		Decision:        layout.ForDocument(doc),
		VisibleProjects: layout.CountVisibleProjects(doc.Projects),
		Experience:      len(doc.Experience),
	})
}

// handleRender returns the HTML preview of the document. ?template= renders
// with another template without changing the selection, ?preview=false
// omits the editor toolbar.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc := sess.Snapshot()

	name := doc.Template
	if param := r.URL.Query().Get("template"); param != "" {
		if name, err = types.ParseTemplateName(param); err != nil {
			s.writeError(w, &ErrValidation{Field: "template", Message: err.Error()})
			return
		}
	}

	tree, err := rendering.RenderAs(doc, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	html, err := rendering.RenderHTML(tree, rendering.HTMLOptions{
		TemplatePath: s.templatePath,
		Preview:      !strings.EqualFold(r.URL.Query().Get("preview"), "false"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}
