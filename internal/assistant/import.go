package assistant

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/ingestion"
	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
)

// MaxImportChars bounds the CV text sent for parsing.
const MaxImportChars = 12000

var newID = func() string {
	return uuid.NewString()
}

// ParsedCV is the structured answer of an import request. Every field is
// optional; absent fields are omitted by the service.
type ParsedCV struct {
	Name       string             `json:"name,omitempty"`
	Title      string             `json:"title,omitempty"`
	About      string             `json:"about,omitempty"`
	Email      string             `json:"email,omitempty"`
	Phone      string             `json:"phone,omitempty"`
	LinkedIn   string             `json:"linkedin,omitempty"`
	Address    string             `json:"address,omitempty"`
	Website    string             `json:"website,omitempty"`
	Skills     []string           `json:"skills,omitempty"`
	Experience []ParsedExperience `json:"experience,omitempty"`
	Education  []ParsedEducation  `json:"education,omitempty"`
	Projects   []ParsedProject    `json:"projects,omitempty"`
	Languages  []ParsedLanguage   `json:"languages,omitempty"`
}

// ParsedExperience is one imported work entry
type ParsedExperience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParsedEducation is one imported education entry
type ParsedEducation struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParsedProject is one imported project
type ParsedProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Skills      []string `json:"skills,omitempty"`
}

// ParsedLanguage is one imported spoken language
type ParsedLanguage struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// ImportCV parses extracted CV text into structured data. Failures surface
// to the caller; there is no fallback for imports.
func (a *Assistant) ImportCV(ctx context.Context, cvText string, locale types.Locale) (*ParsedCV, error) {
	const op = "import"

	cvText = strings.TrimSpace(cvText)
	if cvText == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "CV text is empty"}
	}

	out, err := a.generateJSON(ctx, call{
		op:        op,
		systemKey: "import-system",
		promptKey: "import-cv",
		data: map[string]string{
			"CVText":   ingestion.Truncate(cvText, MaxImportChars),
			"Language": languageName(locale),
		},
		tier:        llm.TierStandard,
		temperature: 0.3,
		maxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	if err := schemas.ValidateParsedCV([]byte(out)); err != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Message: "parsed CV does not match the expected shape", Cause: err}
	}
	var parsed ParsedCV
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Message: "failed to decode parsed CV", Cause: err}
	}
	return &parsed, nil
}

// ToDocument builds a document from the parsed data on top of base. Non-empty
// scalar fields replace base values; every list present in the parse
// replaces the base list and receives fresh entry IDs. Theme, template,
// locale and photo settings are kept from base.
func (p *ParsedCV) ToDocument(base types.CVDocument) types.CVDocument {
	doc := document.Clone(base)

	setIfPresent(&doc.Name, p.Name)
	setIfPresent(&doc.Title, p.Title)
	setIfPresent(&doc.About, p.About)
	setIfPresent(&doc.Contact.Email, p.Email)
	setIfPresent(&doc.Contact.Phone, p.Phone)
	setIfPresent(&doc.Contact.LinkedIn, p.LinkedIn)
	setIfPresent(&doc.Contact.Address, p.Address)
	setIfPresent(&doc.Contact.Website, p.Website)

	if p.Skills != nil {
		doc.Skills = nonBlank(p.Skills)
	}
	if p.Experience != nil {
		doc.Experience = make([]types.Experience, 0, len(p.Experience))
		for _, e := range p.Experience {
			doc.Experience = append(doc.Experience, types.Experience{
				ID:          newID(),
				Company:     strings.TrimSpace(e.Company),
				Position:    strings.TrimSpace(e.Position),
				Period:      ParsePeriod(e.Duration),
				Description: strings.TrimSpace(e.Description),
			})
		}
	}
	if p.Education != nil {
		doc.Education = make([]types.Education, 0, len(p.Education))
		for _, e := range p.Education {
			doc.Education = append(doc.Education, types.Education{
				ID:          newID(),
				Institution: strings.TrimSpace(e.Institution),
				Degree:      strings.TrimSpace(e.Degree),
				Period:      ParsePeriod(e.Duration),
				Description: strings.TrimSpace(e.Description),
			})
		}
	}
	if p.Projects != nil {
		doc.Projects = make([]types.Project, 0, len(p.Projects))
		for _, pr := range p.Projects {
			doc.Projects = append(doc.Projects, types.Project{
				ID:          newID(),
				Name:        strings.TrimSpace(pr.Name),
				Description: strings.TrimSpace(pr.Description),
				Skills:      nonBlank(pr.Skills),
			})
		}
	}
	if p.Languages != nil {
		doc.Languages = make([]types.Language, 0, len(p.Languages))
		for _, l := range p.Languages {
			if strings.TrimSpace(l.Name) == "" {
				continue
			}
			doc.Languages = append(doc.Languages, types.Language{
				ID:    newID(),
				Name:  strings.TrimSpace(l.Name),
				Level: strings.TrimSpace(l.Level),
			})
		}
	}

	doc.Normalize()
	return doc
}

var (
	rangeSeparator = regexp.MustCompile(`\s*[-–—]\s*`)
	yearPattern    = regexp.MustCompile(`^\d{4}$`)
)

// ParsePeriod splits a free-text duration such as "Mar 2020 - Presente" into
// start and end month/year. A trailing four-digit token is the year and the
// rest is the month; a side without a year keeps its whole text as the year
// so words like "Present" still render.
func ParsePeriod(duration string) types.Period {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return types.Period{}
	}

	parts := rangeSeparator.Split(duration, 2)
	var p types.Period
	p.StartMonth, p.StartYear = splitSide(parts[0])
	if len(parts) == 2 {
		p.EndMonth, p.EndYear = splitSide(parts[1])
	}
	return p
}

func splitSide(side string) (month, year string) {
	fields := strings.Fields(side)
	if len(fields) == 0 {
		return "", ""
	}
	last := fields[len(fields)-1]
	if yearPattern.MatchString(last) {
		return strings.Join(fields[:len(fields)-1], " "), last
	}
	return "", strings.Join(fields, " ")
}

func setIfPresent(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
