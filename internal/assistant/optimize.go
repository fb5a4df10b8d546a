package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
)

// OptimizationResult is the suggestion bundle for one job application
type OptimizationResult struct {
	OptimizedAbout         string             `json:"optimizedAbout"`
	SuggestedTitle         string             `json:"suggestedTitle"`
	SkillsToReplace        []SkillReplacement `json:"skillsToReplace"`
	SuggestedSkills        []string           `json:"suggestedSkills"`
	ExperienceHighlights   []string           `json:"experienceHighlights"`
	ProjectRecommendations []string           `json:"projectRecommendations"`
	ATSKeywords            []string           `json:"atsKeywords"`
}

// SkillReplacement suggests swapping one listed skill for another
type SkillReplacement struct {
	Current   string `json:"current"`
	Suggested string `json:"suggested,omitempty"`
}

// UnmarshalJSON accepts either an object or a bare skill name.
func (s *SkillReplacement) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = SkillReplacement{Current: name}
		return nil
	}
	type plain SkillReplacement
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SkillReplacement(p)
	return nil
}

// Optimize asks for suggestions tailoring doc to job, answered in locale.
func (a *Assistant) Optimize(ctx context.Context, doc types.CVDocument, job types.JobDescription, locale types.Locale) (*OptimizationResult, error) {
	const op = "optimize"

	job.Company = strings.TrimSpace(job.Company)
	job.Position = strings.TrimSpace(job.Position)
	job.Description = strings.TrimSpace(job.Description)
	if err := validator.New().Struct(job); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "company, position and description are required", Cause: err}
	}

	out, err := a.generateJSON(ctx, call{
		op:        op,
		systemKey: "optimize-system",
		promptKey: "optimize-cv",
		data: map[string]string{
			"Language":    languageName(locale),
			"Name":        doc.Name,
			"Title":       doc.Title,
			"About":       doc.About,
			"Skills":      strings.Join(doc.Skills, ", "),
			"Experience":  experienceSummary(doc.Experience),
			"Company":     job.Company,
			"Position":    job.Position,
			"Description": job.Description,
		},
		tier:        llm.TierAdvanced,
		temperature: 0.7,
		maxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	if err := schemas.ValidateOptimization([]byte(out)); err != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Message: "optimization does not match the expected shape", Cause: err}
	}
	var result OptimizationResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Message: "failed to decode optimization", Cause: err}
	}
	return &result, nil
}

// OptimizeWithFallback runs Optimize and substitutes FallbackOptimization
// when the service fails or answers with unusable content. Validation and
// configuration errors are still returned. The flag reports whether the
// fallback was used.
func (a *Assistant) OptimizeWithFallback(ctx context.Context, doc types.CVDocument, job types.JobDescription, locale types.Locale) (*OptimizationResult, bool, error) {
	result, err := a.Optimize(ctx, doc, job, locale)
	if err == nil {
		return result, false, nil
	}
	if IsKind(err, KindUpstream) || IsKind(err, KindMalformed) {
		log.Printf("[AI] optimization fell back to local suggestions: %v", err)
		return FallbackOptimization(doc, job), true, nil
	}
	return nil, false, err
}

// FallbackOptimization synthesizes generic suggestions from the document and
// the job without calling the service.
func FallbackOptimization(doc types.CVDocument, job types.JobDescription) *OptimizationResult {
	skills := nonBlank(doc.Skills)
	top3 := firstN(skills, 3)

	keywords := []string{job.Position, job.Company}
	keywords = append(keywords, top3...)

	return &OptimizationResult{
		OptimizedAbout: fmt.Sprintf(
			"Experienced professional with expertise in %s. Seeking %s role at %s to leverage skills and drive impact.",
			strings.Join(top3, ", "), job.Position, job.Company),
		SuggestedTitle:  job.Position,
		SkillsToReplace: []SkillReplacement{},
		SuggestedSkills: firstN(skills, 5),
		ExperienceHighlights: []string{
			"Tailor your experience to match job requirements",
			"Use action verbs and quantify achievements",
			"Highlight relevant accomplishments",
		},
		ProjectRecommendations: []string{
			"Showcase projects demonstrating required skills",
			"Include measurable outcomes and impact",
			"Align projects with company goals",
		},
		ATSKeywords: keywords,
	}
}

// ApplyOptimization copies the accepted suggestions into a new snapshot:
// about and title are replaced when suggested and suggested skills missing
// from the document are appended.
func ApplyOptimization(doc types.CVDocument, result OptimizationResult) types.CVDocument {
	next := document.Clone(doc)
	setIfPresent(&next.About, result.OptimizedAbout)
	setIfPresent(&next.Title, result.SuggestedTitle)

	have := make(map[string]bool, len(next.Skills))
	for _, s := range next.Skills {
		have[s] = true
	}
	for _, s := range result.SuggestedSkills {
		s = strings.TrimSpace(s)
		if s == "" || have[s] {
			continue
		}
		have[s] = true
		next.Skills = append(next.Skills, s)
	}
	return next
}

func experienceSummary(entries []types.Experience) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s at %s", e.Position, e.Company))
	}
	return strings.Join(parts, "; ")
}

func firstN(values []string, n int) []string {
	if len(values) < n {
		n = len(values)
	}
	return append([]string{}, values[:n]...)
}
