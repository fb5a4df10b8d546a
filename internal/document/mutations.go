package document

import (
	"strings"

	"github.com/jonathan/cv-builder/internal/types"
)

// Mutation produces the successor snapshot of a document. Implementations
// must not modify their input.
type Mutation func(doc types.CVDocument) (types.CVDocument, error)

// Apply runs the mutations in order against a copy of doc.
func Apply(doc types.CVDocument, mutations ...Mutation) (types.CVDocument, error) {
	current := doc
	for _, m := range mutations {
		next, err := m(current)
		if err != nil {
			return doc, err
		}
		current = next
	}
	return current, nil
}

// UpdateFields merges a patch of top-level fields.
func UpdateFields(patch types.DocumentPatch) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		if err := patch.Validate(); err != nil {
			return doc, &ValidationError{Message: "invalid document patch", Cause: err}
		}
		next := Clone(doc)
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Title != nil {
			next.Title = *patch.Title
		}
		if patch.About != nil {
			next.About = *patch.About
		}
		if patch.Photo != nil {
			next.Photo = *patch.Photo
		}
		if patch.ShowPhoto != nil {
			next.ShowPhoto = *patch.ShowPhoto
		}
		if c := patch.Contact; c != nil {
			setIf(&next.Contact.Email, c.Email)
			setIf(&next.Contact.Phone, c.Phone)
			setIf(&next.Contact.Address, c.Address)
			setIf(&next.Contact.Website, c.Website)
			setIf(&next.Contact.LinkedIn, c.LinkedIn)
		}
		if patch.Theme != nil {
			setIf(&next.Theme.PrimaryColor, patch.Theme.PrimaryColor)
		}
		return next, nil
	}
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// SetLocale switches the document locale.
func SetLocale(locale types.Locale) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		if !locale.Valid() {
			return doc, &ValidationError{Message: "unsupported locale: " + string(locale)}
		}
		next := Clone(doc)
		next.Locale = locale
		return next, nil
	}
}

// SetTemplate switches the selected template.
func SetTemplate(name types.TemplateName) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		if !name.Valid() {
			return doc, &ValidationError{Message: "unknown template: " + string(name)}
		}
		next := Clone(doc)
		next.Template = name
		return next, nil
	}
}

// Replace swaps in a whole document, as done after an import or translation.
// Entries without identifiers receive fresh ones.
func Replace(doc types.CVDocument) Mutation {
	return func(_ types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		ensureIDs(&next)
		next.Normalize()
		if err := types.ValidateDocument(&next); err != nil {
			return next, &ValidationError{Message: "invalid document", Cause: err}
		}
		return next, nil
	}
}

// AddSkill appends a skill. Duplicates are allowed.
func AddSkill(skill string) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			return doc, &ValidationError{Message: "skill must not be empty"}
		}
		next := Clone(doc)
		next.Skills = append(next.Skills, skill)
		return next, nil
	}
}

// RemoveSkill removes every occurrence of skill.
func RemoveSkill(skill string) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		kept := next.Skills[:0]
		for _, s := range next.Skills {
			if s != skill {
				kept = append(kept, s)
			}
		}
		if len(kept) == len(doc.Skills) {
			return doc, &NotFoundError{Section: "skills", ID: skill}
		}
		next.Skills = kept
		return next, nil
	}
}

// ReplaceSkills sets the whole skill list, dropping blank entries.
func ReplaceSkills(skills []string) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		next.Skills = make([]string, 0, len(skills))
		for _, s := range skills {
			if s = strings.TrimSpace(s); s != "" {
				next.Skills = append(next.Skills, s)
			}
		}
		return next, nil
	}
}

// AddExperience appends an experience entry under a fresh identifier.
func AddExperience(entry types.Experience) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		entry.ID = newID()
		next.Experience = append(next.Experience, entry)
		return next, nil
	}
}

// UpdateExperience replaces the fields of the entry with the given id.
func UpdateExperience(id string, entry types.Experience) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		items, err := replaceByID(next.Experience, id, entry, "experience",
			func(e types.Experience) string { return e.ID },
			func(e *types.Experience, id string) { e.ID = id })
		if err != nil {
			return doc, err
		}
		next.Experience = items
		return next, nil
	}
}

// RemoveExperience deletes the entry with the given id.
func RemoveExperience(id string) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		items, err := removeByID(next.Experience, id, "experience",
			func(e types.Experience) string { return e.ID })
		if err != nil {
			return doc, err
		}
		next.Experience = items
		return next, nil
	}
}

// AddEducation appends an education entry under a fresh identifier.
func AddEducation(entry types.Education) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		entry.ID = newID()
		next.Education = append(next.Education, entry)
		return next, nil
	}
}

// UpdateEducation replaces the fields of the entry with the given id.
func UpdateEducation(id string, entry types.Education) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		items, err := replaceByID(next.Education, id, entry, "education",
			func(e types.Education) string { return e.ID },
			func(e *types.Education, id string) { e.ID = id })
		if err != nil {
			return doc, err
		}
		next.Education = items
		return next, nil
	}
}

// RemoveEducation deletes the entry with the given id.
func RemoveEducation(id string) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		items, err := removeByID(next.Education, id, "education",
			func(e types.Education) string { return e.ID })
		if err != nil {
			return doc, err
		}
		next.Education = items
		return next, nil
	}
}

// AddProject appends a project under a fresh identifier.
func AddProject(entry types.Project) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		entry.ID = newID()
		entry.Skills = append([]string{}, entry.Skills...)
		next.Projects = append(next.Projects, entry)
		return next, nil
	}
}

// UpdateProject replaces the fields of the project with the given id.
func UpdateProject(id string, entry types.Project) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		entry.Skills = append([]string{}, entry.Skills...)
		items, err := replaceByID(next.Projects, id, entry, "projects",
			func(p types.Project) string { return p.ID },
			func(p *types.Project, id string) { p.ID = id })
		if err != nil {
			return doc, err
		}
		next.Projects = items
		return next, nil
	}
}

// RemoveProject deletes the project with the given id.
func RemoveProject(id string) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		items, err := removeByID(next.Projects, id, "projects",
			func(p types.Project) string { return p.ID })
		if err != nil {
			return doc, err
		}
		next.Projects = items
		return next, nil
	}
}

// AddLanguage appends a language under a fresh identifier.
func AddLanguage(entry types.Language) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		entry.ID = newID()
		next.Languages = append(next.Languages, entry)
		return next, nil
	}
}

// UpdateLanguage replaces the fields of the language with the given id.
func UpdateLanguage(id string, entry types.Language) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		items, err := replaceByID(next.Languages, id, entry, "languages",
			func(l types.Language) string { return l.ID },
			func(l *types.Language, id string) { l.ID = id })
		if err != nil {
			return doc, err
		}
		next.Languages = items
		return next, nil
	}
}

// RemoveLanguage deletes the language with the given id.
func RemoveLanguage(id string) Mutation {
	return func(doc types.CVDocument) (types.CVDocument, error) {
		next := Clone(doc)
		items, err := removeByID(next.Languages, id, "languages",
			func(l types.Language) string { return l.ID })
		if err != nil {
			return doc, err
		}
		next.Languages = items
		return next, nil
	}
}

func indexByID[T any](items []T, id string, idOf func(T) string) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

// replaceByID overwrites the matching entry in place, keeping its identifier.
// items must already be a private copy.
func replaceByID[T any](items []T, id string, entry T, section string, idOf func(T) string, setID func(*T, string)) ([]T, error) {
	idx := indexByID(items, id, idOf)
	if idx < 0 {
		return nil, &NotFoundError{Section: section, ID: id}
	}
	setID(&entry, id)
	items[idx] = entry
	return items, nil
}

func removeByID[T any](items []T, id string, section string, idOf func(T) string) ([]T, error) {
	idx := indexByID(items, id, idOf)
	if idx < 0 {
		return nil, &NotFoundError{Section: section, ID: id}
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...), nil
}
