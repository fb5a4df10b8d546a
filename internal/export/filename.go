package export

import (
	"strings"
	"unicode"

	"github.com/jonathan/cv-builder/internal/types"
)

// Filename derives the download name from the CV owner's name.
func Filename(name string) string {
	slug := slugify(name)
	if slug == "" {
		return "cv.pdf"
	}
	return "cv-" + slug + ".pdf"
}

// FilenameFor is Filename with the template appended, used when several
// templates are exported at once.
func FilenameFor(name string, tmpl types.TemplateName) string {
	slug := slugify(name)
	if slug == "" {
		return "cv-" + string(tmpl) + ".pdf"
	}
	return "cv-" + slug + "-" + string(tmpl) + ".pdf"
}

func slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsSpace(r):
			pendingDash = true
		case r == '/' || r == '\\' || r == '"' || r == '\'' || unicode.IsControl(r):
			continue
		default:
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
