// Package i18n resolves the locale-dependent strings used by the renderers.
package i18n

import "github.com/jonathan/cv-builder/internal/types"

// Titles holds section headings and placeholder strings for one locale
type Titles struct {
	About       string `json:"about"`
	Experience  string `json:"experience"`
	Education   string `json:"education"`
	Projects    string `json:"projects"`
	Skills      string `json:"skills"`
	Languages   string `json:"languages"`
	Contact     string `json:"contact"`
	NoPhoto     string `json:"noPhoto"`
	NoEducation string `json:"noEducation"`
}

var titles = map[types.Locale]Titles{
	types.LocaleES: {
		About:       "Sobre mí",
		Experience:  "Experiencia",
		Education:   "Educación",
		Projects:    "Proyectos",
		Skills:      "Habilidades",
		Languages:   "Idiomas",
		Contact:     "Contacto",
		NoPhoto:     "Sin foto",
		NoEducation: "No se ha añadido formación",
	},
	types.LocaleEN: {
		About:       "About Me",
		Experience:  "Experience",
		Education:   "Education",
		Projects:    "Projects",
		Skills:      "Skills",
		Languages:   "Languages",
		Contact:     "Contact",
		NoPhoto:     "No photo",
		NoEducation: "No education added",
	},
}

// For returns the titles for locale, falling back to Spanish.
func For(locale types.Locale) Titles {
	if t, ok := titles[locale]; ok {
		return t
	}
	return titles[types.LocaleES]
}

// LanguageName is the English name of a locale, as used in AI prompts
func LanguageName(locale types.Locale) string {
	if locale == types.LocaleEN {
		return "English"
	}
	return "Spanish"
}
