// Package types provides type definitions for structured data used throughout the cv-builder system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// Locale selects the language of section titles and AI responses
type Locale string

const (
	// LocaleES is Spanish, the default locale
	LocaleES Locale = "es"
	// LocaleEN is English
	LocaleEN Locale = "en"
)

// Valid reports whether the locale is supported
func (l Locale) Valid() bool {
	return l == LocaleES || l == LocaleEN
}

// ParseLocale parses a locale string, case-insensitively
func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unsupported locale %q (expected es or en)", s)
	}
	return l, nil
}

// TemplateName selects which template renderer consumes the document
type TemplateName string

const (
	// TemplateOriginal is the two-column template driven by the layout selector
	TemplateOriginal TemplateName = "original"
	// TemplateModern is a single flowing column
	TemplateModern TemplateName = "modern"
	// TemplateClassic is a fixed sidebar plus content split
	TemplateClassic TemplateName = "classic"
)

// AllTemplates returns every template in display order
func AllTemplates() []TemplateName {
	return []TemplateName{TemplateOriginal, TemplateModern, TemplateClassic}
}

// Valid reports whether the template name is known
func (t TemplateName) Valid() bool {
	switch t {
	case TemplateOriginal, TemplateModern, TemplateClassic:
		return true
	}
	return false
}

// ParseTemplateName parses a template name, case-insensitively
func ParseTemplateName(s string) (TemplateName, error) {
	t := TemplateName(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown template %q (expected original, modern or classic)", s)
	}
	return t, nil
}

// DefaultPrimaryColor is the accent used when the theme color is missing or invalid
const DefaultPrimaryColor = "#3B82F6"

// CVDocument is the canonical structured representation of one CV
type CVDocument struct {
	Name       string       `json:"name" validate:"max=200"`
	Title      string       `json:"title" validate:"max=200"`
	About      string       `json:"about" validate:"max=5000"`
	Photo      string       `json:"photo,omitempty"`
	ShowPhoto  bool         `json:"showPhoto"`
	Contact    Contact      `json:"contact"`
	Skills     []string     `json:"skills"`
	Experience []Experience `json:"experience" validate:"dive"`
	Education  []Education  `json:"education" validate:"dive"`
	Projects   []Project    `json:"projects" validate:"dive"`
	Languages  []Language   `json:"languages" validate:"dive"`
	Theme      Theme        `json:"theme"`
	Locale     Locale       `json:"language"`
	Template   TemplateName `json:"template"`
}

// Contact holds the optional contact line fields
type Contact struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=50"`
	Address  string `json:"address" validate:"max=200"`
	Website  string `json:"website" validate:"max=300"`
	LinkedIn string `json:"linkedin" validate:"max=300"`
}

// Period is an optional start/end month+year pair shared by dated entries
type Period struct {
	StartMonth string `json:"startMonth,omitempty" validate:"max=20"`
	StartYear  string `json:"startYear,omitempty" validate:"max=10"`
	EndMonth   string `json:"endMonth,omitempty" validate:"max=20"`
	EndYear    string `json:"endYear,omitempty" validate:"max=10"`
}

// Experience is one work experience entry
type Experience struct {
	ID       string `json:"id"`
	Company  string `json:"company" validate:"max=200"`
	Position string `json:"position" validate:"max=200"`
	Period
	// Duration is free text appended after the computed date range
	Duration    string `json:"duration,omitempty" validate:"max=100"`
	Description string `json:"description,omitempty" validate:"max=5000"`
}

// Education is one education entry
type Education struct {
	ID          string `json:"id"`
	Institution string `json:"institution" validate:"max=200"`
	Degree      string `json:"degree" validate:"max=200"`
	Period
	Description string `json:"description,omitempty" validate:"max=5000"`
}

// Project is one project entry
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
	Period
	Skills []string `json:"skills"`
}

// Language is one spoken language with a free-text level
type Language struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"max=100"`
	Level string `json:"level" validate:"max=100"`
}

// Theme holds design tokens. PrimaryColor is an accent only.
type Theme struct {
	PrimaryColor string `json:"primaryColor" validate:"omitempty,hexcolor"`
}

// Normalize makes every top-level section present and enum fields valid.
// Nil slices become empty slices so the document always serializes fully.
func (d *CVDocument) Normalize() {
	if d.Skills == nil {
		d.Skills = []string{}
	}
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	for i := range d.Projects {
		if d.Projects[i].Skills == nil {
			d.Projects[i].Skills = []string{}
		}
	}
	if d.Languages == nil {
		d.Languages = []Language{}
	}
	if !d.Locale.Valid() {
		d.Locale = LocaleES
	}
	if !d.Template.Valid() {
		d.Template = TemplateOriginal
	}
	if strings.TrimSpace(d.Theme.PrimaryColor) == "" {
		d.Theme.PrimaryColor = DefaultPrimaryColor
	}
}

// HasStart reports whether either start field is set
func (p Period) HasStart() bool {
	return strings.TrimSpace(p.StartMonth) != "" || strings.TrimSpace(p.StartYear) != ""
}

// IsVisible reports whether a project has any content worth rendering.
// A project counts if its name or description is non-blank or it lists skills.
func (p Project) IsVisible() bool {
	return strings.TrimSpace(p.Name) != "" || strings.TrimSpace(p.Description) != "" || len(p.Skills) > 0
}
