package main

import (
	"fmt"
	"os"

	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a CV document to HTML",
	Long:  "Renders a CV document JSON file with its selected template (or --template) into a standalone HTML page.",
	RunE:  runRender,
}

var (
	renderDocFile  string
	renderTemplate string
	renderOutFile  string
	renderPrint    bool
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show where the two-column template places each section",
	RunE:  runLayout,
}

var layoutDocFile string

func init() {
	renderCmd.Flags().StringVarP(&renderDocFile, "doc", "d", "", "Path to CV document JSON (defaults to the placeholder document)")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "", "Template to render with: original, modern or classic")
	renderCmd.Flags().StringVarP(&renderOutFile, "out", "o", "", "Path to output HTML file (stdout when empty)")
	renderCmd.Flags().BoolVar(&renderPrint, "print", false, "Render the print version without the preview toolbar")
	rootCmd.AddCommand(renderCmd)

	layoutCmd.Flags().StringVarP(&layoutDocFile, "doc", "d", "", "Path to CV document JSON")
	rootCmd.AddCommand(layoutCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	doc, err := readDocument(renderDocFile)
	if err != nil {
		return err
	}

	name := doc.Template
	if renderTemplate != "" {
		if name, err = types.ParseTemplateName(renderTemplate); err != nil {
			return err
		}
	}

	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}

	tree, err := rendering.RenderAs(doc, name)
	if err != nil {
		return err
	}
	html, err := rendering.RenderHTML(tree, rendering.HTMLOptions{
		TemplatePath: cfg.TemplatePath,
		Preview:      !renderPrint,
	})
	if err != nil {
		return err
	}

	if renderOutFile == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), html)
		return err
	}
	if err := os.WriteFile(renderOutFile, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write HTML: %w", err)
	}
	if verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintLayout(&doc)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", renderOutFile, name)
	}
	return nil
}

func runLayout(cmd *cobra.Command, _ []string) error {
	doc, err := readDocument(layoutDocFile)
	if err != nil {
		return err
	}
	p := observability.NewPrinter(cmd.OutOrStdout())
	if verbose {
		p.PrintDocument(&doc)
	}
	p.PrintLayout(&doc)
	return nil
}
