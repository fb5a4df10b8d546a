// Package rendering maps a CV document onto one of the visual templates and
// serializes the resulting render tree to printable HTML.
package rendering

import (
	"regexp"
	"strings"

	"github.com/jonathan/cv-builder/internal/i18n"
	"github.com/jonathan/cv-builder/internal/layout"
	"github.com/jonathan/cv-builder/internal/types"
)

// Renderer maps a document and a layout decision to a render tree.
type Renderer interface {
	Name() types.TemplateName
	Render(doc types.CVDocument, decision layout.Decision, titles i18n.Titles) (*RenderTree, error)
}

var renderers = map[types.TemplateName]Renderer{
	types.TemplateOriginal: Original{},
	types.TemplateModern:   Modern{},
	types.TemplateClassic:  Classic{},
}

// ForTemplate selects the renderer implementation for a template name.
func ForTemplate(name types.TemplateName) (Renderer, error) {
	r, ok := renderers[name]
	if !ok {
		return nil, &RenderError{Template: name, Message: "no renderer for template"}
	}
	return r, nil
}

// Render resolves titles and the layout decision for doc and renders it with
// the template the document selects.
func Render(doc types.CVDocument) (*RenderTree, error) {
	return RenderAs(doc, doc.Template)
}

// RenderAs renders doc with an explicit template, ignoring doc.Template.
func RenderAs(doc types.CVDocument, name types.TemplateName) (*RenderTree, error) {
	r, err := ForTemplate(name)
	if err != nil {
		return nil, err
	}
	return r.Render(doc, layout.ForDocument(doc), i18n.For(doc.Locale))
}

const (
	bodyTextColor  = "#1f2937"
	mutedTextColor = "#6b7280"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// themeFor builds the theme tokens. The primary color only ever becomes the
// accent; body text stays neutral.
func themeFor(doc types.CVDocument) ThemeSpec {
	accent := strings.TrimSpace(doc.Theme.PrimaryColor)
	if !hexColorPattern.MatchString(accent) {
		accent = types.DefaultPrimaryColor
	}
	return ThemeSpec{Accent: accent, Text: bodyTextColor, Muted: mutedTextColor}
}

func newTree(doc types.CVDocument, name types.TemplateName, decision layout.Decision, paddingMM float64, root Block) *RenderTree {
	return &RenderTree{
		Template: name,
		Locale:   doc.Locale,
		Name:     doc.Name,
		Page:     PageSpec{WidthMM: A4WidthMM, MinHeightMM: A4HeightMM, PaddingMM: paddingMM},
		Theme:    themeFor(doc),
		Layout:   decision,
		Root:     root,
	}
}

// photoBlock returns the photo, a placeholder when no photo is set, or nil
// when the photo is hidden.
func photoBlock(doc types.CVDocument, titles i18n.Titles) *Block {
	if !doc.ShowPhoto {
		return nil
	}
	if strings.TrimSpace(doc.Photo) == "" {
		return &Block{Kind: KindPhoto, Placeholder: true, Text: titles.NoPhoto}
	}
	return &Block{Kind: KindPhoto, Image: doc.Photo, Text: doc.Name}
}

// contactItems lists present contact fields in fixed priority order.
func contactItems(c types.Contact) []Item {
	fields := []struct {
		icon  string
		value string
	}{
		{"email", c.Email},
		{"phone", c.Phone},
		{"address", c.Address},
		{"website", c.Website},
		{"linkedin", c.LinkedIn},
	}
	items := make([]Item, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			items = append(items, Item{Icon: f.icon, Text: v})
		}
	}
	return items
}

func contactBlock(c types.Contact) *Block {
	items := contactItems(c)
	if len(items) == 0 {
		return nil
	}
	return &Block{Kind: KindContact, Role: RoleContact, Items: items}
}

// aboutSection always renders, with an empty body when About is blank.
func aboutSection(doc types.CVDocument, titles i18n.Titles) Block {
	return Block{
		Kind:  KindSection,
		Role:  RoleAbout,
		Title: titles.About,
		Children: []Block{
			{Kind: KindText, Text: strings.TrimSpace(doc.About), Atomic: true},
		},
	}
}

func experienceSection(doc types.CVDocument, titles i18n.Titles) *Block {
	if len(doc.Experience) == 0 {
		return nil
	}
	s := Block{Kind: KindSection, Role: RoleExperience, Title: titles.Experience}
	for _, e := range doc.Experience {
		s.Children = append(s.Children, Block{
			Kind:     KindEntry,
			Role:     RoleExperience,
			Title:    e.Position,
			Subtitle: e.Company,
			Meta:     FormatExperienceDates(e),
			Text:     strings.TrimSpace(e.Description),
			Atomic:   true,
		})
	}
	return &s
}

// educationSection renders the entries, or the placeholder when
// withPlaceholder is set and there are none; otherwise nil.
func educationSection(doc types.CVDocument, titles i18n.Titles, withPlaceholder bool) *Block {
	s := Block{Kind: KindSection, Role: RoleEducation, Title: titles.Education}
	if len(doc.Education) == 0 {
		if !withPlaceholder {
			return nil
		}
		s.Children = []Block{{Kind: KindText, Text: titles.NoEducation, Placeholder: true}}
		return &s
	}
	for _, e := range doc.Education {
		s.Children = append(s.Children, Block{
			Kind:     KindEntry,
			Role:     RoleEducation,
			Title:    e.Degree,
			Subtitle: e.Institution,
			Meta:     FormatPeriod(e.Period),
			Text:     strings.TrimSpace(e.Description),
			Atomic:   true,
		})
	}
	return &s
}

// projectsSection includes only visible projects and is nil when none are.
func projectsSection(doc types.CVDocument, titles i18n.Titles) *Block {
	s := Block{Kind: KindSection, Role: RoleProjects, Title: titles.Projects}
	for _, p := range doc.Projects {
		if !p.IsVisible() {
			continue
		}
		s.Children = append(s.Children, Block{
			Kind:   KindEntry,
			Role:   RoleProjects,
			Title:  p.Name,
			Meta:   FormatPeriod(p.Period),
			Text:   strings.TrimSpace(p.Description),
			Items:  textItems(p.Skills),
			Atomic: true,
		})
	}
	if len(s.Children) == 0 {
		return nil
	}
	return &s
}

func skillsSection(doc types.CVDocument, titles i18n.Titles) *Block {
	items := textItems(doc.Skills)
	if len(items) == 0 {
		return nil
	}
	return &Block{
		Kind:     KindSection,
		Role:     RoleSkills,
		Title:    titles.Skills,
		Children: []Block{{Kind: KindChips, Items: items, Atomic: true}},
	}
}

func languagesSection(doc types.CVDocument, titles i18n.Titles) *Block {
	var items []Item
	for _, l := range doc.Languages {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		items = append(items, Item{Text: strings.TrimSpace(l.Name), Detail: strings.TrimSpace(l.Level)})
	}
	if len(items) == 0 {
		return nil
	}
	return &Block{
		Kind:     KindSection,
		Role:     RoleLanguages,
		Title:    titles.Languages,
		Children: []Block{{Kind: KindList, Items: items, Atomic: true}},
	}
}

func textItems(values []string) []Item {
	var items []Item
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, Item{Text: v})
		}
	}
	return items
}

// appendSome appends the non-nil blocks.
func appendSome(dst []Block, blocks ...*Block) []Block {
	for _, b := range blocks {
		if b != nil {
			dst = append(dst, *b)
		}
	}
	return dst
}
