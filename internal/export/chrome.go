package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFRenderer turns a standalone HTML document into PDF bytes
type PDFRenderer interface {
	RenderHTMLToPDF(ctx context.Context, html string, setup PageSetup) ([]byte, error)
}

// DefaultPrintTimeout bounds one headless print
const DefaultPrintTimeout = 60 * time.Second

// ChromeRenderer prints through a headless Chrome started per call
type ChromeRenderer struct {
	// ExecPath overrides the Chrome binary; CHROME_PATH is used when empty
	ExecPath string
	Timeout  time.Duration
	Verbose  bool
}

// NewChromeRenderer creates a renderer using CHROME_PATH when set.
func NewChromeRenderer(verbose bool) *ChromeRenderer {
	return &ChromeRenderer{
		ExecPath: os.Getenv("CHROME_PATH"),
		Timeout:  DefaultPrintTimeout,
		Verbose:  verbose,
	}
}

// RenderHTMLToPDF implements PDFRenderer
func (r *ChromeRenderer) RenderHTMLToPDF(ctx context.Context, html string, setup PageSetup) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultPrintTimeout
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	// Loading from a file lets data: photos and large documents through
	// without hitting URL length limits.
	tmpDir, err := os.MkdirTemp("", "cv-export-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write HTML: %w", err)
	}

	if r.Verbose {
		log.Printf("[EXPORT] Printing %d bytes of HTML (%.0fx%.0fmm, margin %.0fmm)",
			len(html), setup.WidthMM, setup.HeightMM, setup.MarginMM)
	}

	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(setup.WidthIn()).
				WithPaperHeight(setup.HeightIn()).
				WithMarginTop(setup.MarginIn()).
				WithMarginBottom(setup.MarginIn()).
				WithMarginLeft(setup.MarginIn()).
				WithMarginRight(setup.MarginIn()).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser print failed: %w", err)
	}

	if r.Verbose {
		log.Printf("[EXPORT] Printed PDF: %d bytes", len(buf))
	}
	return buf, nil
}
