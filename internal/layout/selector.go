// Package layout decides which sections of the two-column template move to
// the left column, based on how much content the document has.
package layout

import "github.com/jonathan/cv-builder/internal/types"

// Decision is the section placement chosen for a document. When both fields
// are false Education and Skills stay in the right column.
type Decision struct {
	MoveEducationAndSkillsLeft bool `json:"moveEducationAndSkillsLeft"`
	MoveSkillsOnlyLeft         bool `json:"moveSkillsOnlyLeft"`
}

// Select maps content volume to a placement. Projects always stay right.
func Select(projectsCount, experienceCount int) Decision {
	if projectsCount >= 2 && experienceCount < 3 {
		return Decision{MoveEducationAndSkillsLeft: true}
	}
	if experienceCount >= 4 {
		return Decision{MoveSkillsOnlyLeft: true}
	}
	return Decision{}
}

// CountVisibleProjects counts projects with a non-blank name or description,
// or at least one skill.
func CountVisibleProjects(projects []types.Project) int {
	n := 0
	for _, p := range projects {
		if p.IsVisible() {
			n++
		}
	}
	return n
}

// ForDocument applies Select to a document's projects and experience.
func ForDocument(doc types.CVDocument) Decision {
	return Select(CountVisibleProjects(doc.Projects), len(doc.Experience))
}

// EducationLeft reports whether Education renders in the left column
func (d Decision) EducationLeft() bool {
	return d.MoveEducationAndSkillsLeft
}

// SkillsLeft reports whether Skills renders in the left column
func (d Decision) SkillsLeft() bool {
	return d.MoveEducationAndSkillsLeft || d.MoveSkillsOnlyLeft
}
