// Package export turns a CV document into a paginated A4 PDF.
package export

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/types"
	"golang.org/x/sync/errgroup"
)

// Artifact is one finished export
type Artifact struct {
	Filename string
	Data     []byte
	Pages    int
	Template types.TemplateName
}

// Options configures an Exporter
type Options struct {
	// TemplatePath overrides the embedded HTML page template
	TemplatePath string
	Verbose      bool
}

// Exporter runs the export pipeline and allows one in-flight export per key.
type Exporter struct {
	renderer PDFRenderer
	opts     Options

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewExporter creates an exporter printing through renderer.
func NewExporter(renderer PDFRenderer, opts Options) *Exporter {
	return &Exporter{
		renderer: renderer,
		opts:     opts,
		inFlight: make(map[string]struct{}),
	}
}

func (e *Exporter) acquire(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[key]; busy {
		return false
	}
	e.inFlight[key] = struct{}{}
	return true
}

func (e *Exporter) release(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, key)
}

// Export renders doc with its own template and prints it. A nil document or
// an unknown template yields ErrRenderTargetMissing with nothing produced.
func (e *Exporter) Export(ctx context.Context, key string, doc *types.CVDocument) (*Artifact, error) {
	if doc == nil {
		log.Printf("[EXPORT] No render target for %s: document is missing", key)
		return nil, ErrRenderTargetMissing
	}
	if !e.acquire(key) {
		return nil, ErrExportInProgress
	}
	defer e.release(key)

	art, err := e.exportAs(ctx, key, *doc, doc.Template)
	if err != nil {
		return nil, err
	}
	art.Filename = Filename(doc.Name)
	return art, nil
}

// ExportAll prints doc once per template concurrently. Results follow
// types.AllTemplates order.
func (e *Exporter) ExportAll(ctx context.Context, key string, doc *types.CVDocument) ([]*Artifact, error) {
	if doc == nil {
		log.Printf("[EXPORT] No render target for %s: document is missing", key)
		return nil, ErrRenderTargetMissing
	}
	if !e.acquire(key) {
		return nil, ErrExportInProgress
	}
	defer e.release(key)

	templates := types.AllTemplates()
	artifacts := make([]*Artifact, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range templates {
		g.Go(func() error {
			art, err := e.exportAs(gctx, key, *doc, name)
			if err != nil {
				return err
			}
			art.Filename = FilenameFor(doc.Name, name)
			artifacts[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (e *Exporter) exportAs(ctx context.Context, key string, doc types.CVDocument, name types.TemplateName) (*Artifact, error) {
	tree, err := rendering.RenderAs(doc, name)
	if err != nil {
		var renderErr *rendering.RenderError
		if errors.As(err, &renderErr) {
			log.Printf("[EXPORT] No render target for %s: %v", key, err)
			return nil, ErrRenderTargetMissing
		}
		return nil, &Error{Stage: "render", Template: name, Message: "failed to render document", Cause: err}
	}

	html, err := rendering.RenderHTML(tree, rendering.HTMLOptions{TemplatePath: e.opts.TemplatePath})
	if err != nil {
		return nil, &Error{Stage: "html", Template: name, Message: "failed to emit HTML", Cause: err}
	}

	setup := SetupFor(name)
	printable, err := Prepare(html, setup)
	if err != nil {
		return nil, &Error{Stage: "sanitize", Template: name, Message: "failed to sanitize HTML", Cause: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := e.renderer.RenderHTMLToPDF(ctx, printable, setup)
	if err != nil {
		log.Printf("[EXPORT] Print failed for %s (%s): %v", key, name, err)
		return nil, &Error{Stage: "print", Template: name, Message: "failed to print PDF", Cause: err}
	}

	pages, err := CountPages(data)
	if err != nil {
		return nil, err
	}

	if e.opts.Verbose {
		log.Printf("[EXPORT] %s exported with %s: %d page(s), %d bytes", key, name, pages, len(data))
	}
	return &Artifact{Data: data, Pages: pages, Template: name}, nil
}
