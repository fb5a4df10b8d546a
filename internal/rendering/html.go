package rendering

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"strconv"
	"strings"

	"github.com/jonathan/cv-builder/internal/types"
)

//go:embed templates/page.html.tmpl
var pageTemplate string

// HTMLOptions controls how a render tree is serialized
type HTMLOptions struct {
	// TemplatePath overrides the embedded page template when set
	TemplatePath string
	// Preview adds the interactive toolbar used by the editor preview.
	// Export sanitization strips it again.
	Preview bool
}

type pageData struct {
	Tree    *RenderTree
	Styles  template.CSS
	Preview bool
}

var contactIcons = map[string]string{
	"email":    "✉",
	"phone":    "☎",
	"address":  "⌂",
	"website":  "◍",
	"linkedin": "in",
}

// RenderHTML serializes a render tree to a standalone HTML document.
func RenderHTML(tree *RenderTree, opts HTMLOptions) (string, error) {
	if tree == nil {
		return "", &RenderError{Message: "nil render tree"}
	}

	tmpl, err := parseTemplate(opts.TemplatePath, tree.Theme)
	if err != nil {
		return "", err
	}

	data := pageData{
		Tree:    tree,
		Styles:  stylesheet(tree),
		Preview: opts.Preview,
	}

	var result strings.Builder
	if err := tmpl.ExecuteTemplate(&result, "page", data); err != nil {
		return "", &TemplateError{
			Path:    opts.TemplatePath,
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return result.String(), nil
}

// parseTemplate reads and parses the page template, embedded or from disk
func parseTemplate(templatePath string, theme ThemeSpec) (*template.Template, error) {
	content := pageTemplate
	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TemplateError{Path: templatePath, Message: "template file not found", Cause: err}
			}
			return nil, &TemplateError{Path: templatePath, Message: "failed to read template file", Cause: err}
		}
		content = string(raw)
	}

	funcs := template.FuncMap{
		"accent": func() template.CSS { return template.CSS(theme.Accent) },
		"tint":   func() template.CSS { return template.CSS(tintOf(theme.Accent, 0.1)) },
		"icon":   func(name string) string { return contactIcons[name] },
		"photoURL": func(src string) template.URL {
			if safePhotoURL(src) {
				return template.URL(src)
			}
			return ""
		},
	}

	tmpl, err := template.New("page").Funcs(funcs).Parse(content)
	if err != nil {
		return nil, &TemplateError{Path: templatePath, Message: "failed to parse template", Cause: err}
	}
	return tmpl, nil
}

func safePhotoURL(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(lower, "data:image/") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "http://")
}

// tintOf turns a #rgb or #rrggbb color into a translucent rgba() value.
func tintOf(hex string, alpha float64) string {
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return tintOf(types.DefaultPrimaryColor, alpha)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return tintOf(types.DefaultPrimaryColor, alpha)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", v>>16&0xff, v>>8&0xff, v&0xff,
		strconv.FormatFloat(alpha, 'f', -1, 64))
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}

// stylesheet builds the page CSS from the tree's page box and theme.
func stylesheet(tree *RenderTree) template.CSS {
	var b strings.Builder
	p := tree.Page
	th := tree.Theme

	fmt.Fprintf(&b, "*{box-sizing:border-box;margin:0;padding:0}")
	fmt.Fprintf(&b, "body{font-family:'Helvetica Neue',Arial,sans-serif;font-size:10pt;line-height:1.4;color:%s;background:#ffffff}", th.Text)
	fmt.Fprintf(&b, ".page{width:%s;min-height:%s;padding:%s;margin:0 auto;background:#ffffff}", mm(p.WidthMM), mm(p.MinHeightMM), mm(p.PaddingMM))
	fmt.Fprintf(&b, ".header{display:flex;gap:6mm;align-items:center;margin-bottom:6mm}")
	fmt.Fprintf(&b, ".photo{width:32mm;height:32mm;border-radius:50%%;object-fit:cover}")
	fmt.Fprintf(&b, ".photo-placeholder{display:flex;align-items:center;justify-content:center;border:1px dashed %s;color:%s;font-size:8pt}", th.Muted, th.Muted)
	fmt.Fprintf(&b, ".name{font-size:22pt;color:%s}.title{font-size:13pt;font-weight:400;color:%s}", th.Text, th.Muted)
	fmt.Fprintf(&b, ".contact{list-style:none;display:flex;flex-wrap:wrap;gap:2mm 5mm;margin-top:2mm;font-size:9pt}")
	fmt.Fprintf(&b, ".icon{display:inline-block;width:4mm;margin-right:1mm}")
	fmt.Fprintf(&b, ".section{margin-bottom:5mm}")
	fmt.Fprintf(&b, ".section-title{font-size:11pt;text-transform:uppercase;letter-spacing:.05em;border-bottom:1px solid;margin-bottom:2mm;break-after:avoid;page-break-after:avoid}")
	fmt.Fprintf(&b, ".entry{border-left:2px solid;padding-left:3mm;margin-bottom:3mm}")
	fmt.Fprintf(&b, ".entry-head{display:flex;flex-wrap:wrap;gap:0 3mm}.entry-meta{color:%s;font-size:9pt}", th.Muted)
	fmt.Fprintf(&b, ".chips{display:flex;flex-wrap:wrap;gap:1.5mm;margin-top:1.5mm}")
	fmt.Fprintf(&b, ".chip{padding:.5mm 2mm;border-radius:3mm;font-size:8.5pt;border:1px solid transparent}")
	fmt.Fprintf(&b, ".languages{list-style:none}.level{color:%s}", th.Muted)
	fmt.Fprintf(&b, ".placeholder{color:%s;font-style:italic}", th.Muted)
	fmt.Fprintf(&b, ".atomic{break-inside:avoid;page-break-inside:avoid}")

	switch tree.Template {
	case types.TemplateOriginal:
		fmt.Fprintf(&b, ".columns{display:grid;grid-template-columns:1fr 1fr;gap:8mm}")
	case types.TemplateClassic:
		fmt.Fprintf(&b, ".columns{display:grid;grid-template-columns:70mm 1fr;min-height:%s}", mm(p.MinHeightMM))
		fmt.Fprintf(&b, ".column-sidebar{padding:10mm 6mm;color:#ffffff}.column-sidebar .section-title{color:#ffffff !important;border-color:#ffffff !important}")
		fmt.Fprintf(&b, ".column-sidebar .contact{flex-direction:column}.column-sidebar .chip{color:#ffffff !important}")
		fmt.Fprintf(&b, ".column-content{padding:10mm 8mm}")
	}
	fmt.Fprintf(&b, ".toolbar{position:sticky;top:0;display:flex;justify-content:space-between;padding:2mm 4mm;background:#f3f4f6}")
	fmt.Fprintf(&b, "@media print{.toolbar{display:none}}")
	return template.CSS(b.String())
}
