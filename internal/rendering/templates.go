package rendering

import (
	"github.com/jonathan/cv-builder/internal/i18n"
	"github.com/jonathan/cv-builder/internal/layout"
	"github.com/jonathan/cv-builder/internal/types"
)

// Original is the two-column template. The layout decision moves Education
// and Skills between columns; Projects always stay right.
type Original struct{}

// Name implements Renderer
func (Original) Name() types.TemplateName { return types.TemplateOriginal }

// Render implements Renderer
func (Original) Render(doc types.CVDocument, decision layout.Decision, titles i18n.Titles) (*RenderTree, error) {
	header := Block{Kind: KindHeader, Role: RoleHeader, Title: doc.Name, Subtitle: doc.Title}
	header.Children = appendSome(nil, photoBlock(doc, titles), contactBlock(doc.Contact))

	education := educationSection(doc, titles, true)
	skills := skillsSection(doc, titles)

	left := Block{Kind: KindColumn, Role: RoleLeft}
	left.Children = appendSome([]Block{aboutSection(doc, titles)}, experienceSection(doc, titles))
	if decision.EducationLeft() {
		left.Children = appendSome(left.Children, education)
	}
	if decision.SkillsLeft() {
		left.Children = appendSome(left.Children, skills)
	}

	right := Block{Kind: KindColumn, Role: RoleRight}
	right.Children = appendSome(nil, projectsSection(doc, titles))
	if !decision.EducationLeft() {
		right.Children = appendSome(right.Children, education)
	}
	if !decision.SkillsLeft() {
		right.Children = appendSome(right.Children, skills)
	}
	right.Children = appendSome(right.Children, languagesSection(doc, titles))

	root := Block{
		Kind: KindPage,
		Children: []Block{
			header,
			{Kind: KindColumns, Children: []Block{left, right}},
		},
	}
	return newTree(doc, types.TemplateOriginal, decision, 15, root), nil
}

// Modern is a single flowing column. It ignores the layout decision.
type Modern struct{}

// Name implements Renderer
func (Modern) Name() types.TemplateName { return types.TemplateModern }

// Render implements Renderer
func (Modern) Render(doc types.CVDocument, _ layout.Decision, titles i18n.Titles) (*RenderTree, error) {
	header := Block{Kind: KindHeader, Role: RoleHeader, Title: doc.Name, Subtitle: doc.Title}
	header.Children = appendSome(nil, photoBlock(doc, titles), contactBlock(doc.Contact))

	main := Block{Kind: KindColumn, Role: RoleMain}
	main.Children = appendSome([]Block{aboutSection(doc, titles)},
		experienceSection(doc, titles),
		projectsSection(doc, titles),
		educationSection(doc, titles, false),
		skillsSection(doc, titles),
		languagesSection(doc, titles),
	)

	root := Block{Kind: KindPage, Children: []Block{header, main}}
	return newTree(doc, types.TemplateModern, layout.Decision{}, 15, root), nil
}

// Classic splits the page into a colored sidebar (photo, contact, skills,
// languages) and a content column. It ignores the layout decision.
type Classic struct{}

// Name implements Renderer
func (Classic) Name() types.TemplateName { return types.TemplateClassic }

// Render implements Renderer
func (Classic) Render(doc types.CVDocument, _ layout.Decision, titles i18n.Titles) (*RenderTree, error) {
	sidebar := Block{Kind: KindColumn, Role: RoleSidebar}
	sidebar.Children = appendSome(nil, photoBlock(doc, titles))
	if contact := contactBlock(doc.Contact); contact != nil {
		sidebar.Children = append(sidebar.Children, Block{
			Kind:     KindSection,
			Role:     RoleContact,
			Title:    titles.Contact,
			Children: []Block{*contact},
		})
	}
	sidebar.Children = appendSome(sidebar.Children, skillsSection(doc, titles), languagesSection(doc, titles))

	content := Block{Kind: KindColumn, Role: RoleContent}
	content.Children = appendSome([]Block{
		{Kind: KindHeader, Role: RoleHeader, Title: doc.Name, Subtitle: doc.Title},
		aboutSection(doc, titles),
	},
		experienceSection(doc, titles),
		projectsSection(doc, titles),
		educationSection(doc, titles, false),
	)

	root := Block{
		Kind:     KindPage,
		Children: []Block{{Kind: KindColumns, Children: []Block{sidebar, content}}},
	}
	return newTree(doc, types.TemplateClassic, layout.Decision{}, 0, root), nil
}
