package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a CV document to an A4 PDF",
	Long:  "Prints a CV document through headless Chrome into a paginated A4 PDF. --all-templates writes one PDF per template.",
	RunE:  runExport,
}

var (
	exportDocFile      string
	exportTemplate     string
	exportOutDir       string
	exportAllTemplates bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportDocFile, "doc", "d", "", "Path to CV document JSON (defaults to the placeholder document)")
	exportCmd.Flags().StringVarP(&exportTemplate, "template", "t", "", "Template override: original, modern or classic")
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", ".", "Directory for the PDF files")
	exportCmd.Flags().BoolVar(&exportAllTemplates, "all-templates", false, "Export once per template")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	doc, err := readDocument(exportDocFile)
	if err != nil {
		return err
	}
	if exportTemplate != "" {
		if doc.Template, err = types.ParseTemplateName(exportTemplate); err != nil {
			return err
		}
	}

	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}
	renderer := export.NewChromeRenderer(cfg.Verbose)
	if cfg.ChromePath != "" {
		renderer.ExecPath = cfg.ChromePath
	}

	return exportDocument(ctx, cmd, export.NewExporter(renderer, export.Options{
		TemplatePath: cfg.TemplatePath,
		Verbose:      cfg.Verbose,
	}), &doc)
}

// exportDocument runs the exporter and writes the artifacts to exportOutDir
func exportDocument(ctx context.Context, cmd *cobra.Command, exporter *export.Exporter, doc *types.CVDocument) error {
	var artifacts []*export.Artifact
	if exportAllTemplates {
		all, err := exporter.ExportAll(ctx, "cli", doc)
		if err != nil {
			return err
		}
		artifacts = all
	} else {
		art, err := exporter.Export(ctx, "cli", doc)
		if err != nil {
			return err
		}
		artifacts = []*export.Artifact{art}
	}

	if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, art := range artifacts {
		path := filepath.Join(exportOutDir, art.Filename)
		if err := os.WriteFile(path, art.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d pages)\n", path, art.Pages)
	}

	if verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintArtifacts(artifacts)
	}
	return nil
}
