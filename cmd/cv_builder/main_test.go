package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/usage"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
}

func TestLoadSettings_Defaults(t *testing.T) {
	withConfigPath(t, "")

	cfg, err := loadSettings(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, storage.BackendFile, cfg.StorageBackend)
	assert.Equal(t, "groq", cfg.LLMProvider)
}

func TestLoadSettings_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\nstorage_backend: memory\nllm_provider: gemini\n"), 0o644))
	withConfigPath(t, path)

	cfg, err := loadSettings(envMap(map[string]string{
		"PORT":           "9100",
		"GEMINI_API_KEY": "gemini-key",
		"GROQ_API_KEY":   "groq-key",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port, "environment overrides the file")
	assert.Equal(t, storage.BackendMemory, cfg.StorageBackend)
	assert.Equal(t, "gemini-key", cfg.APIKey)
}

func TestLoadSettings_Invalid(t *testing.T) {
	withConfigPath(t, "")

	_, err := loadSettings(envMap(map[string]string{"STORAGE_BACKEND": "mongo"}))
	assert.Error(t, err)

	_, err = loadSettings(envMap(map[string]string{"PORT": "eighty"}))
	assert.Error(t, err)

	withConfigPath(t, filepath.Join(t.TempDir(), "missing.json"))
	_, err = loadSettings(envMap(nil))
	assert.Error(t, err)
}

func TestReadDocument(t *testing.T) {
	doc, err := readDocument("")
	require.NoError(t, err)
	assert.Equal(t, "Tu Nombre", doc.Name)

	dir := t.TempDir()
	path := filepath.Join(dir, "cv.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "Ana", "template": "modern", "experience": [{"company": "Acme"}]}`), 0o644))

	doc, err = readDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Name)
	assert.Equal(t, types.TemplateModern, doc.Template)
	require.Len(t, doc.Experience, 1)
	assert.NotEmpty(t, doc.Experience[0].ID)
	assert.Equal(t, types.LocaleES, doc.Locale)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"skills": "Go"}`), 0o644))
	_, err = readDocument(bad)
	assert.Error(t, err)

	_, err = readDocument(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWriteDocument(t *testing.T) {
	doc, err := readDocument("")
	require.NoError(t, err)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, writeDocument(cmd, "", doc))

	var decoded types.CVDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, doc.Name, decoded.Name)

	path := filepath.Join(t.TempDir(), "nested", "cv.json")
	require.NoError(t, writeDocument(cmd, path, doc))
	roundTrip, err := readDocument(path)
	require.NoError(t, err)
	assert.Equal(t, doc, roundTrip)
}

func TestRenderCommand(t *testing.T) {
	withConfigPath(t, "")
	dir := t.TempDir()
	docPath := filepath.Join(dir, "cv.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"name": "Ana Garcia", "language": "en"}`), 0o644))
	outPath := filepath.Join(dir, "cv.html")

	rootCmd.SetArgs([]string{"render", "--doc", docPath, "--template", "classic", "--out", outPath, "--print"})
	require.NoError(t, rootCmd.Execute())

	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Ana Garcia")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(strings.ToLower(string(html))), "<!doctype html"))
}

func TestRenderCommand_UnknownTemplate(t *testing.T) {
	withConfigPath(t, "")
	rootCmd.SetArgs([]string{"render", "--doc", "", "--template", "fancy", "--out", filepath.Join(t.TempDir(), "x.html")})
	assert.Error(t, rootCmd.Execute())
}

func TestLayoutCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"layout", "--doc", ""})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, buf.String(), "LAYOUT")
	assert.Contains(t, buf.String(), "Visible projects: 1")
}

// pdfRenderer prints a minimal structurally valid PDF
type pdfRenderer struct{}

func (pdfRenderer) RenderHTMLToPDF(_ context.Context, _ string, _ export.PageSetup) ([]byte, error) {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes(), nil
}

func TestExportDocument(t *testing.T) {
	prevDir, prevAll := exportOutDir, exportAllTemplates
	t.Cleanup(func() { exportOutDir, exportAllTemplates = prevDir, prevAll })

	doc, err := readDocument("")
	require.NoError(t, err)
	doc.Name = "Ana Garcia"

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	exporter := export.NewExporter(pdfRenderer{}, export.Options{})

	exportOutDir = t.TempDir()
	exportAllTemplates = false
	require.NoError(t, exportDocument(context.Background(), cmd, exporter, &doc))

	entries, err := os.ReadDir(exportOutDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".pdf"))
	assert.Contains(t, buf.String(), "(1 pages)")

	exportOutDir = t.TempDir()
	exportAllTemplates = true
	require.NoError(t, exportDocument(context.Background(), cmd, exporter, &doc))

	entries, err = os.ReadDir(exportOutDir)
	require.NoError(t, err)
	assert.Len(t, entries, len(types.AllTemplates()))
}

func TestPrintUsage(t *testing.T) {
	prevActivate, prevCancel := usageActivate, usageCancel
	t.Cleanup(func() { usageActivate, usageCancel = prevActivate, prevCancel })

	store := storage.NewMemoryStore()
	now := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)
	tracker := usage.NewTracker(storage.Namespaced(store, "session-1")).WithClock(func() time.Time { return now })
	require.NoError(t, tracker.Record(context.Background(), usage.ActionDownload))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	usageActivate, usageCancel = 0, false
	require.NoError(t, printUsage(context.Background(), cmd, tracker))
	assert.Contains(t, buf.String(), "free (1 per day)")
	assert.Contains(t, buf.String(), "download   used 1")

	buf.Reset()
	usageActivate = 3
	require.NoError(t, printUsage(context.Background(), cmd, tracker))
	assert.Contains(t, buf.String(), "premium until 2024-08-14")

	buf.Reset()
	usageActivate, usageCancel = 0, true
	require.NoError(t, printUsage(context.Background(), cmd, tracker))
	assert.Contains(t, buf.String(), "free")
}
