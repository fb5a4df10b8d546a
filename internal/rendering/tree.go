package rendering

import (
	"github.com/jonathan/cv-builder/internal/layout"
	"github.com/jonathan/cv-builder/internal/types"
)

// Kind is the structural type of a block
type Kind string

// Block kinds
const (
	KindPage    Kind = "page"
	KindHeader  Kind = "header"
	KindPhoto   Kind = "photo"
	KindColumns Kind = "columns"
	KindColumn  Kind = "column"
	KindSection Kind = "section"
	KindEntry   Kind = "entry"
	KindText    Kind = "text"
	KindContact Kind = "contact"
	KindChips   Kind = "chips"
	KindList    Kind = "list"
)

// Role names what a block holds, for sections, or where it sits, for columns
type Role string

// Section roles
const (
	RoleHeader     Role = "header"
	RoleAbout      Role = "about"
	RoleExperience Role = "experience"
	RoleEducation  Role = "education"
	RoleProjects   Role = "projects"
	RoleSkills     Role = "skills"
	RoleLanguages  Role = "languages"
	RoleContact    Role = "contact"
)

// Column roles
const (
	RoleLeft    Role = "left"
	RoleRight   Role = "right"
	RoleMain    Role = "main"
	RoleSidebar Role = "sidebar"
	RoleContent Role = "content"
)

// Item is one element of a contact line, chip group or list
type Item struct {
	Icon   string `json:"icon,omitempty"`
	Text   string `json:"text"`
	Detail string `json:"detail,omitempty"`
}

// Block is one node of the render tree. Atomic blocks must not be split
// across a page boundary.
type Block struct {
	Kind        Kind    `json:"kind"`
	Role        Role    `json:"role,omitempty"`
	Title       string  `json:"title,omitempty"`
	Subtitle    string  `json:"subtitle,omitempty"`
	Meta        string  `json:"meta,omitempty"`
	Text        string  `json:"text,omitempty"`
	Image       string  `json:"image,omitempty"`
	Placeholder bool    `json:"placeholder,omitempty"`
	Atomic      bool    `json:"atomic,omitempty"`
	Items       []Item  `json:"items,omitempty"`
	Children    []Block `json:"children,omitempty"`
}

// PageSpec is the fixed page box the tree is laid out on
type PageSpec struct {
	WidthMM     float64 `json:"widthMM"`
	MinHeightMM float64 `json:"minHeightMM"`
	PaddingMM   float64 `json:"paddingMM"`
}

// A4 page dimensions in millimetres
const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
)

// ThemeSpec separates the accent color from body text
type ThemeSpec struct {
	Accent string `json:"accent"`
	Text   string `json:"text"`
	Muted  string `json:"muted"`
}

// RenderTree is the styled, printable representation of one document
type RenderTree struct {
	Template types.TemplateName `json:"template"`
	Locale   types.Locale       `json:"locale"`
	Name     string             `json:"name"`
	Page     PageSpec           `json:"page"`
	Theme    ThemeSpec          `json:"theme"`
	Layout   layout.Decision    `json:"layout"`
	Root     Block              `json:"root"`
}

// Section returns the first section with the given role, or nil.
func (t *RenderTree) Section(role Role) *Block {
	return findSection(&t.Root, role)
}

func findSection(b *Block, role Role) *Block {
	if b.Kind == KindSection && b.Role == role {
		return b
	}
	for i := range b.Children {
		if found := findSection(&b.Children[i], role); found != nil {
			return found
		}
	}
	return nil
}

// ColumnOf returns the role of the column holding the section, or "" when
// the section is absent.
func (t *RenderTree) ColumnOf(role Role) Role {
	col, _ := columnOf(&t.Root, role, "")
	return col
}

func columnOf(b *Block, role Role, current Role) (Role, bool) {
	if b.Kind == KindColumn {
		current = b.Role
	}
	if b.Kind == KindSection && b.Role == role {
		return current, true
	}
	for i := range b.Children {
		if col, ok := columnOf(&b.Children[i], role, current); ok {
			return col, true
		}
	}
	return "", false
}

// SectionOrder lists section roles in document order.
func (t *RenderTree) SectionOrder() []Role {
	var out []Role
	var walk func(b *Block)
	walk = func(b *Block) {
		if b.Kind == KindSection {
			out = append(out, b.Role)
		}
		for i := range b.Children {
			walk(&b.Children[i])
		}
	}
	walk(&t.Root)
	return out
}

// AtomicBlocks returns every block marked as unbreakable.
func (t *RenderTree) AtomicBlocks() []Block {
	var out []Block
	var walk func(b *Block)
	walk = func(b *Block) {
		if b.Atomic {
			out = append(out, *b)
		}
		for i := range b.Children {
			walk(&b.Children[i])
		}
	}
	walk(&t.Root)
	return out
}
