package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/cv-builder/internal/assistant"
	"github.com/jonathan/cv-builder/internal/ingestion"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
)

var importPDFCmd = &cobra.Command{
	Use:   "import-pdf",
	Short: "Import an existing CV from a PDF",
	Long:  "Extracts the text of a PDF CV, structures it with the text-generation service and writes the resulting CV document.",
	RunE:  runImportPDF,
}

var (
	importFile    string
	importDocFile string
	importLocale  string
	importOutFile string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Suggest changes that tailor a CV to a job offer",
	RunE:  runOptimize,
}

var (
	optimizeDocFile         string
	optimizeCompany         string
	optimizePosition        string
	optimizeDescription     string
	optimizeDescriptionFile string
	optimizeLocale          string
	optimizeApply           bool
	optimizeOutFile         string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate the free-text fields of a CV",
	RunE:  runTranslate,
}

var (
	translateDocFile string
	translateTarget  string
	translateOutFile string
)

func init() {
	importPDFCmd.Flags().StringVarP(&importFile, "file", "f", "", "Path to the PDF to import (required)")
	importPDFCmd.Flags().StringVarP(&importDocFile, "doc", "d", "", "Document to import over (keeps its theme, template and language)")
	importPDFCmd.Flags().StringVarP(&importLocale, "locale", "l", "", "Language to extract in: es or en (defaults to the document language)")
	importPDFCmd.Flags().StringVarP(&importOutFile, "out", "o", "", "Path to output document JSON (stdout when empty)")
	_ = importPDFCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importPDFCmd)

	optimizeCmd.Flags().StringVarP(&optimizeDocFile, "doc", "d", "", "Path to CV document JSON")
	optimizeCmd.Flags().StringVar(&optimizeCompany, "company", "", "Company of the job offer (required)")
	optimizeCmd.Flags().StringVar(&optimizePosition, "position", "", "Position of the job offer (required)")
	optimizeCmd.Flags().StringVar(&optimizeDescription, "description", "", "Job description text")
	optimizeCmd.Flags().StringVar(&optimizeDescriptionFile, "description-file", "", "Path to a file holding the job description")
	optimizeCmd.Flags().StringVarP(&optimizeLocale, "locale", "l", "", "Language of the suggestions: es or en")
	optimizeCmd.Flags().BoolVar(&optimizeApply, "apply", false, "Apply the suggestions and write the updated document")
	optimizeCmd.Flags().StringVarP(&optimizeOutFile, "out", "o", "", "Path to output document JSON with --apply (stdout when empty)")
	rootCmd.AddCommand(optimizeCmd)

	translateCmd.Flags().StringVarP(&translateDocFile, "doc", "d", "", "Path to CV document JSON")
	translateCmd.Flags().StringVar(&translateTarget, "target", "", "Target language: es or en (required)")
	translateCmd.Flags().StringVarP(&translateOutFile, "out", "o", "", "Path to output document JSON (stdout when empty)")
	_ = translateCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(translateCmd)
}

func runImportPDF(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	extracted, err := ingestion.ExtractPDFFile(importFile)
	if err != nil {
		return err
	}

	base, err := readDocument(importDocFile)
	if err != nil {
		return err
	}
	locale := base.Locale
	if importLocale != "" {
		if locale, err = types.ParseLocale(importLocale); err != nil {
			return err
		}
	}

	a, closeClient, err := assistantFromSettings(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	if verbose {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Extracted %d characters from %d page(s)\n", extracted.Metadata.TextLength, extracted.Metadata.Pages)
	}
	parsed, err := a.ImportCV(ctx, extracted.Text, locale)
	if err != nil {
		return err
	}
	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintParsedCV(parsed)
	}

	return writeDocument(cmd, importOutFile, parsed.ToDocument(base))
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	doc, err := readDocument(optimizeDocFile)
	if err != nil {
		return err
	}

	description := optimizeDescription
	if optimizeDescriptionFile != "" {
		data, err := os.ReadFile(optimizeDescriptionFile)
		if err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}
		description = string(data)
	}
	job := types.JobDescription{
		Company:     strings.TrimSpace(optimizeCompany),
		Position:    strings.TrimSpace(optimizePosition),
		Description: strings.TrimSpace(description),
	}
	if job.Company == "" || job.Position == "" || job.Description == "" {
		return fmt.Errorf("--company, --position and --description (or --description-file) are required")
	}

	locale := doc.Locale
	if optimizeLocale != "" {
		if locale, err = types.ParseLocale(optimizeLocale); err != nil {
			return err
		}
	}

	a, closeClient, err := assistantFromSettings(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	result, fellBack, err := a.OptimizeWithFallback(ctx, doc, job, locale)
	if err != nil {
		return err
	}

	if !optimizeApply {
		observability.NewPrinter(cmd.OutOrStdout()).PrintOptimization(result, fellBack)
		return nil
	}
	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintOptimization(result, fellBack)
	}
	return writeDocument(cmd, optimizeOutFile, assistant.ApplyOptimization(doc, *result))
}

func runTranslate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	target, err := types.ParseLocale(translateTarget)
	if err != nil {
		return err
	}
	doc, err := readDocument(translateDocFile)
	if err != nil {
		return err
	}

	a, closeClient, err := assistantFromSettings(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	translation, err := a.Translate(ctx, doc, target)
	if err != nil {
		return err
	}
	return writeDocument(cmd, translateOutFile, assistant.ApplyTranslation(doc, translation))
}

// assistantFromSettings loads the configuration and builds the assistant
func assistantFromSettings(ctx context.Context) (*assistant.Assistant, func(), error) {
	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return nil, nil, err
	}
	return newAssistant(ctx, cfg)
}
