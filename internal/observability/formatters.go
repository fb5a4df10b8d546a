// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/cv-builder/internal/assistant"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/layout"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/usage"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to n runes, marking the cut with "..."
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList writes up to limit items as bullets, then a count of the rest
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	for _, item := range items[:min(len(items), limit)] {
		sb.WriteString(fmt.Sprintf("  • %s\n", item))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
}

// PrintDocument outputs a summary of the document and its section sizes.
func (p *Printer) PrintDocument(doc *types.CVDocument) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", doc.Name))
	sb.WriteString(fmt.Sprintf("Title:     %s\n", doc.Title))
	sb.WriteString(fmt.Sprintf("Template:  %s\n", doc.Template))
	sb.WriteString(fmt.Sprintf("Language:  %s\n", doc.Locale))
	sb.WriteString(fmt.Sprintf("Accent:    %s\n", doc.Theme.PrimaryColor))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Experience: %d  Education: %d\n", len(doc.Experience), len(doc.Education)))
	sb.WriteString(fmt.Sprintf("Projects:   %d  Languages: %d\n", len(doc.Projects), len(doc.Languages)))
	if len(doc.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills:     %s\n", strings.Join(doc.Skills, ", ")))
	}

	p.printBox("CV DOCUMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLayout outputs where the two-column template places Education and Skills.
func (p *Printer) PrintLayout(doc *types.CVDocument) {
	if doc == nil {
		return
	}

	decision := layout.ForDocument(*doc)
	side := func(left bool) string {
		if left {
			return "left"
		}
		return "right"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Visible projects: %d\n", layout.CountVisibleProjects(doc.Projects)))
	sb.WriteString(fmt.Sprintf("Experience:       %d\n", len(doc.Experience)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Education → %s column\n", side(decision.EducationLeft())))
	sb.WriteString(fmt.Sprintf("Skills    → %s column", side(decision.SkillsLeft())))

	p.printBox("LAYOUT", sb.String())
}

// PrintParsedCV outputs what the import assistant extracted from a file.
func (p *Printer) PrintParsedCV(parsed *assistant.ParsedCV) {
	if parsed == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:   %s\n", parsed.Name))
	sb.WriteString(fmt.Sprintf("Title:  %s\n", parsed.Title))
	if parsed.Email != "" {
		sb.WriteString(fmt.Sprintf("Email:  %s\n", parsed.Email))
	}
	sb.WriteString("\n")

	roles := make([]string, 0, len(parsed.Experience))
	for _, e := range parsed.Experience {
		role := strings.TrimSpace(e.Position + " @ " + e.Company)
		if e.Duration != "" {
			role += " (" + e.Duration + ")"
		}
		roles = append(roles, role)
	}
	writeList(&sb, "Experience", roles, maxItemsToShow)
	writeList(&sb, "Skills", parsed.Skills, maxItemsToShow)

	p.printBox("IMPORTED CV", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOptimization outputs optimization suggestions, marking fallback results.
func (p *Printer) PrintOptimization(result *assistant.OptimizationResult, fallback bool) {
	if result == nil {
		return
	}

	var sb strings.Builder
	if fallback {
		sb.WriteString("⚠ generated locally, the assistant was unavailable\n\n")
	}
	if result.SuggestedTitle != "" {
		sb.WriteString(fmt.Sprintf("Title: %s\n\n", result.SuggestedTitle))
	}
	if result.OptimizedAbout != "" {
		sb.WriteString("About:\n")
		sb.WriteString(fmt.Sprintf("  %s\n\n", clip(result.OptimizedAbout, 120)))
	}

	replace := make([]string, 0, len(result.SkillsToReplace))
	for _, r := range result.SkillsToReplace {
		if r.Suggested != "" {
			replace = append(replace, r.Current+" → "+r.Suggested)
		} else {
			replace = append(replace, r.Current)
		}
	}
	writeList(&sb, "Suggested skills", result.SuggestedSkills, maxItemsToShow)
	writeList(&sb, "Skills to replace", replace, 3)
	writeList(&sb, "Highlights", result.ExperienceHighlights, 3)
	writeList(&sb, "ATS keywords", result.ATSKeywords, maxItemsToShow)

	p.printBox("CV OPTIMIZATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintUsage outputs today's counters and the subscription state.
func (p *Printer) PrintUsage(summary *usage.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	if summary.Subscription.IsPremium {
		sb.WriteString("Plan: premium")
		if summary.Subscription.ExpiresAt != nil {
			sb.WriteString(" until " + summary.Subscription.ExpiresAt.Format("2006-01-02"))
		}
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("Plan: free (%d per day)\n\n", summary.Limit))
	}

	actions := make([]string, 0, len(summary.Actions))
	for a := range summary.Actions {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)
	for _, name := range actions {
		u := summary.Actions[usage.Action(name)]
		status := "✓"
		if !u.Allowed {
			status = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %-10s used %d", status, name, u.Count))
		if !summary.Subscription.IsPremium {
			sb.WriteString(fmt.Sprintf(", %d left", u.Remaining))
		}
		sb.WriteString("\n")
	}

	p.printBox("USAGE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArtifacts outputs the exported files and their page counts.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintArtifacts(artifacts []*export.Artifact) {
	if len(artifacts) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "⚠ NOTHING EXPORTED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for i, a := range artifacts {
		sb.WriteString(fmt.Sprintf("%s\n", a.Filename))
		sb.WriteString(fmt.Sprintf("  %s, %d page(s), %d KB", a.Template, a.Pages, (len(a.Data)+1023)/1024))
		if i < len(artifacts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PDF EXPORT", sb.String())
}
