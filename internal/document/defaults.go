// Package document owns the CV document lifecycle: default content,
// snapshot-returning mutations and the per-session single writer.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/types"
)

// newID assigns entry identifiers. Replaced in tests for deterministic output.
var newID = func() string {
	return uuid.NewString()
}

// Default returns the placeholder document a new session starts with.
func Default() types.CVDocument {
	doc := types.CVDocument{
		Name:      "Tu Nombre",
		Title:     "Desarrollador Web",
		About:     "Escribe una breve descripción sobre ti...",
		ShowPhoto: true,
		Contact: types.Contact{
			Email:    "tu@email.com",
			Phone:    "+1234567890",
			LinkedIn: "https://linkedin.com/in/tu-perfil",
		},
		Skills: []string{"JavaScript", "React", "TypeScript"},
		Experience: []types.Experience{
			{
				ID:       newID(),
				Company:  "Empresa",
				Position: "Cargo",
				Duration: "2020 - Presente",
			},
		},
		Education: []types.Education{},
		Projects: []types.Project{
			{
				ID:          newID(),
				Name:        "Proyecto 1",
				Description: "Descripción del proyecto 1",
				Skills:      []string{"JavaScript", "React"},
			},
		},
		Languages: []types.Language{},
		Theme:     types.Theme{PrimaryColor: types.DefaultPrimaryColor},
		Locale:    types.LocaleES,
		Template:  types.TemplateOriginal,
	}
	return doc
}

// sectionKeys are the list fields that replace their default wholesale when
// present in stored data.
var sectionKeys = []string{"skills", "experience", "education", "projects", "languages"}

// MergeOverDefaults decodes a stored document over the defaults. Fields absent
// from the stored data keep their default values, so documents written by an
// older version load with newly added fields populated.
func MergeOverDefaults(data []byte) (types.CVDocument, error) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return types.CVDocument{}, fmt.Errorf("failed to parse stored document: %w", err)
	}

	doc := Default()
	// Decoding into a populated slice reuses its elements, which would leak
	// default entry fields into stored entries.
	for _, key := range sectionKeys {
		if _, ok := present[key]; !ok {
			continue
		}
		switch key {
		case "skills":
			doc.Skills = nil
		case "experience":
			doc.Experience = nil
		case "education":
			doc.Education = nil
		case "projects":
			doc.Projects = nil
		case "languages":
			doc.Languages = nil
		}
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return types.CVDocument{}, fmt.Errorf("failed to decode stored document: %w", err)
	}

	ensureIDs(&doc)
	doc.Normalize()
	return doc, nil
}

// ensureIDs assigns identifiers to entries stored without one.
func ensureIDs(doc *types.CVDocument) {
	for i := range doc.Experience {
		if doc.Experience[i].ID == "" {
			doc.Experience[i].ID = newID()
		}
	}
	for i := range doc.Education {
		if doc.Education[i].ID == "" {
			doc.Education[i].ID = newID()
		}
	}
	for i := range doc.Projects {
		if doc.Projects[i].ID == "" {
			doc.Projects[i].ID = newID()
		}
	}
	for i := range doc.Languages {
		if doc.Languages[i].ID == "" {
			doc.Languages[i].ID = newID()
		}
	}
}

// Clone returns a deep copy of doc so that snapshots never share slices.
func Clone(doc types.CVDocument) types.CVDocument {
	out := doc
	out.Skills = append([]string{}, doc.Skills...)
	out.Experience = append([]types.Experience{}, doc.Experience...)
	out.Education = append([]types.Education{}, doc.Education...)
	out.Languages = append([]types.Language{}, doc.Languages...)
	out.Projects = make([]types.Project, len(doc.Projects))
	for i, p := range doc.Projects {
		p.Skills = append([]string{}, p.Skills...)
		out.Projects[i] = p
	}
	return out
}
