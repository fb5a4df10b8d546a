package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)

// fakeRenderer prints a structurally valid PDF without a browser
type fakeRenderer struct {
	pages int
	err   error
}

func (f *fakeRenderer) RenderHTMLToPDF(_ context.Context, _ string, _ export.PageSetup) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return buildPDF(f.pages, nil), nil
}

// fakeLLM answers every prompt with the same response
type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	out, err := f.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	return llm.CleanJSONBlock(out), nil
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                  { return nil }

// blockingLLM holds every call until release is closed. started receives
// one value per call.
type blockingLLM struct {
	fakeLLM
	started chan struct{}
	release chan struct{}
}

func newBlockingLLM(response string) *blockingLLM {
	return &blockingLLM{
		fakeLLM: fakeLLM{response: response},
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (b *blockingLLM) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return b.fakeLLM.GenerateJSON(ctx, req)
}

// serveAsync runs a JSON request in the background; the recorder is ready
// once the returned channel is closed.
func serveAsync(t *testing.T, s *Server, method, path, token string, body any) (*httptest.ResponseRecorder, <-chan struct{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Handler().ServeHTTP(w, req)
	}()
	return w, done
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// buildPDF writes a minimal PDF with the given page count. Lines are drawn on
// the first page.
func buildPDF(pages int, lines []string) []byte {
	if pages < 1 {
		pages = 1
	}
	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n72 720 Td\n14 TL\n")
	for _, l := range lines {
		fmt.Fprintf(&content, "(%s) Tj\nT*\n", l)
	}
	content.WriteString("ET")
	stream := content.String()

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+5)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 3 0 R >>")
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
	return buf.Bytes()
}

func newTestServerWith(t *testing.T, client llm.Client, renderer export.PDFRenderer, limits *ratelimit.Config) *Server {
	t.Helper()
	if limits == nil {
		limits = &ratelimit.Config{Enabled: false}
	}
	s, err := New(Config{RateLimit: limits}, Dependencies{
		Store:    storage.NewMemoryStore(),
		Renderer: renderer,
		LLM:      client,
		JWT:      &config.JWTConfig{Secret: "test-secret-key-for-jwt-signing-minimum-32-bytes", ExpirationHours: 1},
	})
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(s.Close)
	return s
}

func newTestServer(t *testing.T, client llm.Client) *Server {
	return newTestServerWith(t, client, &fakeRenderer{pages: 2}, nil)
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, s *Server) (string, types.CVDocument) {
	t.Helper()
	w := doRequest(t, s, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp types.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.Document)
	return resp.Token, *resp.Document
}

func decodeDocument(t *testing.T, w *httptest.ResponseRecorder) types.CVDocument {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var doc types.CVDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	return doc
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, false, resp["assistant"])
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t, nil)
	s.newSessionID = func() string { return "session-1" }

	w := doRequest(t, s, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp types.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "session-1", resp.SessionID)
	assert.Equal(t, types.LocaleES, resp.Document.Locale)
	assert.Equal(t, types.TemplateOriginal, resp.Document.Template)

	claims, err := s.jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestDocumentRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/document"},
		{http.MethodPatch, "/document"},
		{http.MethodPost, "/document/export"},
		{http.MethodGet, "/usage"},
	} {
		w := doRequest(t, s, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}

	w := doRequest(t, s, http.MethodGet, "/document", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t, nil)
	tokenA, _ := createSession(t, s)
	tokenB, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPatch, "/document", tokenA, map[string]any{"name": "Ana"}))
	assert.Equal(t, "Ana", doc.Name)

	other := decodeDocument(t, doRequest(t, s, http.MethodGet, "/document", tokenB, nil))
	assert.Equal(t, "Tu Nombre", other.Name)
}

func TestPatchDocument(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPatch, "/document", token, map[string]any{
		"title":   "Platform Engineer",
		"contact": map[string]any{"email": "ana@example.com"},
		"theme":   map[string]any{"primaryColor": "#112233"},
	}))
	assert.Equal(t, "Platform Engineer", doc.Title)
	assert.Equal(t, "ana@example.com", doc.Contact.Email)
	assert.Equal(t, "+1234567890", doc.Contact.Phone)
	assert.Equal(t, "#112233", doc.Theme.PrimaryColor)

	w := doRequest(t, s, http.MethodPatch, "/document", token, map[string]any{"theme": map[string]any{"primaryColor": "blue"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeError(t, w)

	w = doRequest(t, s, http.MethodPatch, "/document", token, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Rejected patches leave the document unchanged
	current := decodeDocument(t, doRequest(t, s, http.MethodGet, "/document", token, nil))
	assert.Equal(t, "#112233", current.Theme.PrimaryColor)
}

func TestReplaceAndResetDocument(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPut, "/document", token,
		`{"name": "Ana", "skills": ["Go"], "experience": [{"company": "Acme", "position": "Dev"}]}`))
	assert.Equal(t, "Ana", doc.Name)
	assert.Equal(t, []string{"Go"}, doc.Skills)
	require.Len(t, doc.Experience, 1)
	assert.NotEmpty(t, doc.Experience[0].ID)
	assert.Equal(t, "Desarrollador Web", doc.Title, "missing fields take defaults")

	w := doRequest(t, s, http.MethodPut, "/document", token, `{"skills": "Go"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reset := decodeDocument(t, doRequest(t, s, http.MethodDelete, "/document", token, nil))
	assert.Equal(t, "Tu Nombre", reset.Name)
}

func TestLocaleAndTemplate(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPut, "/document/locale", token, map[string]string{"locale": "en"}))
	assert.Equal(t, types.LocaleEN, doc.Locale)

	doc = decodeDocument(t, doRequest(t, s, http.MethodPut, "/document/template", token, map[string]string{"template": "classic"}))
	assert.Equal(t, types.TemplateClassic, doc.Template)

	w := doRequest(t, s, http.MethodPut, "/document/locale", token, map[string]string{"locale": "fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(t, s, http.MethodPut, "/document/template", token, map[string]string{"template": "fancy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSkills(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/skills", token, map[string]string{"skill": "Go"}))
	assert.Contains(t, doc.Skills, "Go")

	doc = decodeDocument(t, doRequest(t, s, http.MethodDelete, "/document/skills/React", token, nil))
	assert.NotContains(t, doc.Skills, "React")

	w := doRequest(t, s, http.MethodDelete, "/document/skills/Cobol", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	doc = decodeDocument(t, doRequest(t, s, http.MethodPut, "/document/skills", token, map[string]any{"skills": []string{"Rust", " ", "Go"}}))
	assert.Equal(t, []string{"Rust", "Go"}, doc.Skills)

	w = doRequest(t, s, http.MethodPost, "/document/skills", token, map[string]string{"skill": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExperienceLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	token, initial := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/experience", token, map[string]any{
		"company": "Acme", "position": "Engineer", "startYear": "2021",
	}))
	require.Len(t, doc.Experience, len(initial.Experience)+1)
	added := doc.Experience[len(doc.Experience)-1]
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "2021", added.StartYear)

	doc = decodeDocument(t, doRequest(t, s, http.MethodPut, "/document/experience/"+added.ID, token, map[string]any{
		"company": "Acme Corp", "position": "Senior Engineer",
	}))
	updated := doc.Experience[len(doc.Experience)-1]
	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, "Acme Corp", updated.Company)

	doc = decodeDocument(t, doRequest(t, s, http.MethodDelete, "/document/experience/"+added.ID, token, nil))
	assert.Len(t, doc.Experience, len(initial.Experience))

	w := doRequest(t, s, http.MethodDelete, "/document/experience/"+added.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, s, http.MethodPut, "/document/experience/missing", token, map[string]any{"company": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, s, http.MethodPost, "/document/experience", token, map[string]any{"company": strings.Repeat("x", 201)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOtherSections(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/education", token, map[string]any{"institution": "UBA", "degree": "CS"}))
	require.Len(t, doc.Education, 1)

	doc = decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/languages", token, map[string]any{"name": "English", "level": "C1"}))
	require.Len(t, doc.Languages, 1)
	langID := doc.Languages[0].ID

	doc = decodeDocument(t, doRequest(t, s, http.MethodPut, "/document/languages/"+langID, token, map[string]any{"name": "English", "level": "C2"}))
	assert.Equal(t, "C2", doc.Languages[0].Level)

	doc = decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/projects", token, map[string]any{"name": "cv", "skills": []string{"Go"}}))
	projectID := doc.Projects[len(doc.Projects)-1].ID

	doc = decodeDocument(t, doRequest(t, s, http.MethodDelete, "/document/projects/"+projectID, token, nil))
	for _, p := range doc.Projects {
		assert.NotEqual(t, projectID, p.ID)
	}

	doc = decodeDocument(t, doRequest(t, s, http.MethodDelete, "/document/education/"+doc.Education[0].ID, token, nil))
	assert.Empty(t, doc.Education)
}

func TestLayoutEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	// Two visible projects with one experience moves education and skills left
	doRequest(t, s, http.MethodPost, "/document/projects", token, map[string]any{"name": "second"})

	w := doRequest(t, s, http.MethodGet, "/document/layout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["moveEducationAndSkillsLeft"])
	assert.Equal(t, false, resp["moveSkillsOnlyLeft"])
	assert.Equal(t, float64(2), resp["visibleProjects"])
	assert.Equal(t, float64(1), resp["experience"])
}

func TestRenderEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)
	doRequest(t, s, http.MethodPatch, "/document", token, map[string]any{"name": "Ana <b>García</b>"})

	w := doRequest(t, s, http.MethodGet, "/document/render", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Ana &lt;b&gt;García&lt;/b&gt;")

	w = doRequest(t, s, http.MethodGet, "/document/render?template=modern&preview=false", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/document/render?template=fancy", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport_UsageLimit(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	w := doRequest(t, s, http.MethodPost, "/document/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".pdf")
	assert.Equal(t, "2", w.Header().Get("X-PDF-Pages"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	// Second download on the same day is refused
	w = doRequest(t, s, http.MethodPost, "/document/export", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "usage_limit_reached", body["code"])
	assert.Equal(t, "download", body["action"])

	// Premium lifts the limit
	w = doRequest(t, s, http.MethodPost, "/subscription", token, map[string]int{"months": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, true, info["isPremium"])

	w = doRequest(t, s, http.MethodPost, "/document/export?template=classic", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodDelete, "/subscription", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, s, http.MethodPost, "/document/export", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestExport_FailureIsNotCounted(t *testing.T) {
	s := newTestServerWith(t, nil, &fakeRenderer{err: fmt.Errorf("chrome crashed")}, nil)
	token, _ := createSession(t, s)

	w := doRequest(t, s, http.MethodPost, "/document/export", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doRequest(t, s, http.MethodGet, "/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Actions map[string]struct {
			Count   int  `json:"count"`
			Allowed bool `json:"allowed"`
		} `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 0, summary.Actions["download"].Count)
	assert.True(t, summary.Actions["download"].Allowed)
}

func TestExport_InvalidTemplate(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	w := doRequest(t, s, http.MethodPost, "/document/export?template=fancy", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)
	doRequest(t, s, http.MethodPost, "/document/export", token, nil)

	w := doRequest(t, s, http.MethodGet, "/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		Limit   int `json:"limit"`
		Actions map[string]struct {
			Count     int  `json:"count"`
			Allowed   bool `json:"allowed"`
			Remaining int  `json:"remaining"`
		} `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Limit)
	assert.Equal(t, 1, summary.Actions["download"].Count)
	assert.False(t, summary.Actions["download"].Allowed)
	assert.True(t, summary.Actions["translate"].Allowed)

	w = doRequest(t, s, http.MethodPost, "/subscription", token, map[string]int{"months": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

const optimizationResponse = `{
	"optimizedAbout": "Platform engineer focused on developer tooling.",
	"suggestedTitle": "Platform Engineer",
	"skillsToReplace": ["JavaScript"],
	"suggestedSkills": ["Terraform", "Go"],
	"experienceHighlights": ["Led migrations"],
	"projectRecommendations": ["Publish the CLI"],
	"atsKeywords": ["kubernetes"]
}`

var optimizeBody = map[string]any{
	"job": map[string]string{
		"company":     "Initech",
		"position":    "Platform Engineer",
		"description": "Build internal platforms.",
	},
	"locale": "en",
}

func TestOptimize(t *testing.T) {
	client := &fakeLLM{response: "```json\n" + optimizationResponse + "\n```"}
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	w := doRequest(t, s, http.MethodPost, "/document/optimize", token, optimizeBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Optimization struct {
			OptimizedAbout  string   `json:"optimizedAbout"`
			SuggestedSkills []string `json:"suggestedSkills"`
		} `json:"optimization"`
		Fallback bool `json:"fallback"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Fallback)
	assert.Equal(t, "Platform engineer focused on developer tooling.", resp.Optimization.OptimizedAbout)

	w = doRequest(t, s, http.MethodPost, "/document/optimize", token, optimizeBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, client.calls, "the limit is checked before calling the service")
}

func TestOptimize_FallbackIsNotCounted(t *testing.T) {
	client := &fakeLLM{err: fmt.Errorf("connection refused")}
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	for i := 0; i < 2; i++ {
		w := doRequest(t, s, http.MethodPost, "/document/optimize", token, optimizeBody)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["fallback"])
	}
}

func TestOptimize_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	w := doRequest(t, s, http.MethodPost, "/document/optimize", token, map[string]any{"job": map[string]string{"company": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodPost, "/document/optimize", token, optimizeBody)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_configured", decodeError(t, w)["code"])
}

func TestApplyOptimization(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/optimize/apply", token, optimizationResponse))
	assert.Equal(t, "Platform engineer focused on developer tooling.", doc.About)
	assert.Equal(t, "Platform Engineer", doc.Title)
	assert.Contains(t, doc.Skills, "Terraform")
}

func TestTranslate(t *testing.T) {
	client := &fakeLLM{response: `{"about": "Write a short description about yourself...", "title": "Web Developer", "experience": [], "projects": [], "education": []}`}
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	doc := decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/translate", token, map[string]string{"target": "en"}))
	assert.Equal(t, types.LocaleEN, doc.Locale)
	assert.Equal(t, "Web Developer", doc.Title)
	assert.Equal(t, "Tu Nombre", doc.Name, "structural fields are untouched")

	stored := decodeDocument(t, doRequest(t, s, http.MethodGet, "/document", token, nil))
	assert.Equal(t, "Web Developer", stored.Title)

	w := doRequest(t, s, http.MethodPost, "/document/translate", token, map[string]string{"target": "es"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestTranslate_UpstreamFailureSurfaces(t *testing.T) {
	client := &fakeLLM{err: fmt.Errorf("timeout")}
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	w := doRequest(t, s, http.MethodPost, "/document/translate", token, map[string]string{"target": "en"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream", decodeError(t, w)["code"])

	doc := decodeDocument(t, doRequest(t, s, http.MethodGet, "/document", token, nil))
	assert.Equal(t, types.LocaleES, doc.Locale)

	w = doRequest(t, s, http.MethodPost, "/document/translate", token, map[string]string{"target": "de"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslate_KeepsEditsMadeDuringTheCall(t *testing.T) {
	client := newBlockingLLM(`{"about": "Backend developer.", "title": "Web Developer"}`)
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	translating, done := serveAsync(t, s, http.MethodPost, "/document/translate", token, map[string]string{"target": "en"})
	waitFor(t, client.started, "the translation call")

	edited := decodeDocument(t, doRequest(t, s, http.MethodPost, "/document/skills", token, map[string]string{"skill": "Kubernetes"}))
	require.Contains(t, edited.Skills, "Kubernetes")

	close(client.release)
	waitFor(t, done, "the translate response")
	require.Equal(t, http.StatusOK, translating.Code, translating.Body.String())

	doc := decodeDocument(t, doRequest(t, s, http.MethodGet, "/document", token, nil))
	assert.Contains(t, doc.Skills, "Kubernetes")
	assert.Equal(t, "Web Developer", doc.Title)
	assert.Equal(t, types.LocaleEN, doc.Locale)
}

func TestTranslate_ConcurrentRequestsCountOnce(t *testing.T) {
	client := newBlockingLLM(`{"title": "Web Developer"}`)
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	first, firstDone := serveAsync(t, s, http.MethodPost, "/document/translate", token, map[string]string{"target": "en"})
	waitFor(t, client.started, "the first translation call")

	second, secondDone := serveAsync(t, s, http.MethodPost, "/document/translate", token, map[string]string{"target": "en"})
	time.Sleep(50 * time.Millisecond)

	close(client.release)
	waitFor(t, firstDone, "the first response")
	waitFor(t, secondDone, "the second response")

	assert.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, http.StatusTooManyRequests, second.Code, second.Body.String())
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "usage_limit_reached", decodeError(t, second)["code"])
}

func uploadRequest(t *testing.T, token, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("locale", "en"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/document/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestImport(t *testing.T) {
	client := &fakeLLM{response: `{"name": "Ana Garcia", "title": "Backend Engineer", "skills": ["Go", "SQL"],
		"experience": [{"company": "Acme", "position": "Engineer", "duration": "Mar 2020 - 2023", "description": "APIs"}]}`}
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, token, "cv.pdf", buildPDF(1, []string{"Ana Garcia", "Backend Engineer"})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Document types.CVDocument `json:"document"`
		Metadata struct {
			Filename string `json:"filename"`
			Pages    int    `json:"pages"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Ana Garcia", resp.Document.Name)
	assert.Equal(t, []string{"Go", "SQL"}, resp.Document.Skills)
	require.Len(t, resp.Document.Experience, 1)
	assert.Equal(t, "2020", resp.Document.Experience[0].StartYear)
	assert.Equal(t, types.TemplateOriginal, resp.Document.Template)
	assert.Equal(t, "cv.pdf", resp.Metadata.Filename)
	assert.Equal(t, 1, resp.Metadata.Pages)
	assert.Equal(t, 1, client.calls)
}

func TestImport_RejectsBeforeCallingService(t *testing.T) {
	client := &fakeLLM{response: `{}`}
	s := newTestServer(t, client)
	token, _ := createSession(t, s)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, token, "cv.txt", []byte("plain text cv")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, token, "cv.pdf", []byte("not really a pdf")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodPost, "/document/import", token, `{"file": "cv.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 0, client.calls)
}

func TestRateLimit(t *testing.T) {
	s := newTestServerWith(t, nil, &fakeRenderer{}, &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
	})

	w := doRequest(t, s, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = doRequest(t, s, http.MethodPost, "/sessions", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, w)["error"])

	// Health checks are never limited
	w = doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/document", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestNew_RequiresDependencies(t *testing.T) {
	jwtConfig := &config.JWTConfig{Secret: "secret", ExpirationHours: 1}

	_, err := New(Config{}, Dependencies{Renderer: &fakeRenderer{}, JWT: jwtConfig})
	assert.Error(t, err)
	_, err = New(Config{}, Dependencies{Store: storage.NewMemoryStore(), JWT: jwtConfig})
	assert.Error(t, err)
	_, err = New(Config{}, Dependencies{Store: storage.NewMemoryStore(), Renderer: &fakeRenderer{}})
	assert.Error(t, err)
}
