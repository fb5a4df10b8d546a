package export

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// uiOnlySelector matches elements that exist for on-screen editing only
const uiOnlySelector = ".icon, [data-ui-only], button, input, script, noscript"

// keepBackgroundAttr marks elements whose background survives export
const keepBackgroundAttr = "data-keep-background"

// Sanitize strips interactive and decorative elements from rendered HTML,
// removes inline backgrounds from unmarked elements and forces a white page.
func Sanitize(html string) (string, error) {
	return sanitize(html, "")
}

// Prepare sanitizes html and injects the page rules for setup.
func Prepare(html string, setup PageSetup) (string, error) {
	return sanitize(html, setup.CSS())
}

func sanitize(html string, extraCSS string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(uiOnlySelector).Remove()

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		if _, keep := s.Attr(keepBackgroundAttr); keep {
			return
		}
		style, _ := s.Attr("style")
		cleaned := stripBackground(style)
		if cleaned == "" {
			s.RemoveAttr("style")
			return
		}
		s.SetAttr("style", cleaned)
	})

	css := "html,body{background:#ffffff !important}" + extraCSS
	head := doc.Find("head")
	if head.Length() == 0 {
		doc.Find("html").PrependHtml("<head></head>")
		head = doc.Find("head")
	}
	head.AppendHtml("<style data-export>" + css + "</style>")

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}
	return out, nil
}

// stripBackground drops background and background-* declarations from an
// inline style attribute.
func stripBackground(style string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop := decl
		if i := strings.Index(decl, ":"); i >= 0 {
			prop = decl[:i]
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(prop)), "background") {
			continue
		}
		kept = append(kept, decl)
	}
	return strings.Join(kept, "; ")
}
