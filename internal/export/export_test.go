package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a structurally valid PDF with the given page count.
func minimalPDF(pages int) []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	var kids []string
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type fakeRenderer struct {
	mu      sync.Mutex
	pages   int
	err     error
	block   chan struct{}
	started chan struct{}
	html    []string
	setups  []PageSetup
}

func (f *fakeRenderer) RenderHTMLToPDF(ctx context.Context, html string, setup PageSetup) ([]byte, error) {
	f.mu.Lock()
	f.html = append(f.html, html)
	f.setups = append(f.setups, setup)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	pages := f.pages
	if pages == 0 {
		pages = 1
	}
	return minimalPDF(pages), nil
}

func sampleDoc() *types.CVDocument {
	return &types.CVDocument{
		Name:       "Ana García",
		Title:      "Engineer",
		About:      "About text",
		Skills:     []string{"Go"},
		Experience: []types.Experience{{ID: "e1", Company: "Acme", Position: "Dev"}},
		Theme:      types.Theme{PrimaryColor: "#3B82F6"},
		Locale:     types.LocaleEN,
		Template:   types.TemplateOriginal,
	}
}

func TestCountPages(t *testing.T) {
	for _, n := range []int{1, 3} {
		pages, err := CountPages(minimalPDF(n))
		require.NoError(t, err)
		assert.Equal(t, n, pages)
	}

	_, err := CountPages([]byte("<html></html>"))
	var exportErr *Error
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "pdf", exportErr.Stage)
}

func TestExport_Success(t *testing.T) {
	r := &fakeRenderer{pages: 2}
	ex := NewExporter(r, Options{})

	art, err := ex.Export(context.Background(), "s1", sampleDoc())
	require.NoError(t, err)

	assert.Equal(t, "cv-ana-garcía.pdf", art.Filename)
	assert.Equal(t, 2, art.Pages)
	assert.Equal(t, types.TemplateOriginal, art.Template)
	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))

	require.Len(t, r.html, 1)
	html := r.html[0]
	assert.NotContains(t, html, `class="icon`)
	assert.Contains(t, html, "@page{size:210mm 297mm;margin:10mm}")
	assert.Equal(t, SetupFor(types.TemplateOriginal), r.setups[0])
}

func TestExport_SkillChipsKeepTheirTint(t *testing.T) {
	const tint = "background-color: rgba(59, 130, 246, 0.1)"
	doc := sampleDoc()
	doc.Skills = []string{"Go", "SQL"}
	doc.Projects = []types.Project{{ID: "p1", Name: "cv", Skills: []string{"Go"}}}

	chips := 0
	for _, name := range types.AllTemplates() {
		r := &fakeRenderer{}
		doc.Template = name
		_, err := NewExporter(r, Options{}).Export(context.Background(), "s1", doc)
		require.NoError(t, err)

		html := r.html[0]
		n := strings.Count(html, `class="chip"`)
		assert.Equal(t, n, strings.Count(html, tint), "every chip keeps its background in %s", name)
		chips += n
	}
	assert.Positive(t, chips)
}

func TestExport_ClassicHasNoMargin(t *testing.T) {
	r := &fakeRenderer{}
	doc := sampleDoc()
	doc.Template = types.TemplateClassic

	_, err := NewExporter(r, Options{}).Export(context.Background(), "s1", doc)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.setups[0].MarginMM)
	assert.Contains(t, r.html[0], "data-keep-background")
}

func TestExport_RenderTargetMissing(t *testing.T) {
	r := &fakeRenderer{}
	ex := NewExporter(r, Options{})

	_, err := ex.Export(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, ErrRenderTargetMissing)

	doc := sampleDoc()
	doc.Template = "poster"
	_, err = ex.Export(context.Background(), "s1", doc)
	assert.ErrorIs(t, err, ErrRenderTargetMissing)

	assert.Empty(t, r.html, "nothing is printed without a render target")
}

func TestExport_PrintFailure(t *testing.T) {
	cause := errors.New("chrome crashed")
	ex := NewExporter(&fakeRenderer{err: cause}, Options{})

	_, err := ex.Export(context.Background(), "s1", sampleDoc())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var exportErr *Error
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "print", exportErr.Stage)
}

func TestExport_RejectsConcurrentExportForSameKey(t *testing.T) {
	r := &fakeRenderer{block: make(chan struct{}), started: make(chan struct{}, 1)}
	ex := NewExporter(r, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := ex.Export(context.Background(), "s1", sampleDoc())
		done <- err
	}()
	<-r.started

	_, err := ex.Export(context.Background(), "s1", sampleDoc())
	assert.ErrorIs(t, err, ErrExportInProgress)

	r.started = nil
	other := make(chan error, 1)
	go func() {
		_, err := ex.Export(context.Background(), "s2", sampleDoc())
		other <- err
	}()

	close(r.block)
	require.NoError(t, <-done)
	require.NoError(t, <-other)

	_, err = ex.Export(context.Background(), "s1", sampleDoc())
	assert.NoError(t, err, "key is released after completion")
}

func TestExportAll(t *testing.T) {
	r := &fakeRenderer{}
	arts, err := NewExporter(r, Options{}).ExportAll(context.Background(), "s1", sampleDoc())
	require.NoError(t, err)
	require.Len(t, arts, 3)

	for i, name := range types.AllTemplates() {
		assert.Equal(t, name, arts[i].Template)
		assert.Equal(t, fmt.Sprintf("cv-ana-garcía-%s.pdf", name), arts[i].Filename)
	}
	assert.Len(t, r.html, 3)
}
