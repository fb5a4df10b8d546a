// Package server provides the HTTP REST API for the CV builder.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/assistant"
	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/usage"
	"github.com/rs/cors"
)

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	handler      http.Handler
	store        storage.Store
	documents    *document.Registry
	exporter     *export.Exporter
	assistant    *assistant.Assistant
	llmClient    llm.Client
	jwtService   *JWTService
	rateLimiter  *ratelimit.Limiter
	usageLocks   sync.Map // "session:action" -> *sync.Mutex
	templatePath string
	now          func() time.Time
	newSessionID func() string
}

// Config holds server configuration
type Config struct {
	Port         int
	CORSOrigins  []string
	TemplatePath string
	RateLimit    *ratelimit.Config
	Verbose      bool
}

// Dependencies are the collaborators a Server runs against. A nil LLM
// disables import, optimize and translate.
type Dependencies struct {
	Store    storage.Store
	Renderer export.PDFRenderer
	LLM      llm.Client
	JWT      *config.JWTConfig
}

// Open builds a server from the application configuration: storage backend,
// headless Chrome, text-generation client and session secret.
func Open(ctx context.Context, cfg config.Config) (*Server, error) {
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		_ = storage.Close(store)
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	var client llm.Client
	c, err := llm.NewClient(ctx, llm.ConfigFor(cfg.LLMProvider), cfg.APIKey)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		log.Printf("[AI] No API key for %s; import, optimize and translate are disabled", cfg.LLMProvider)
	case err != nil:
		_ = storage.Close(store)
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	default:
		client = c
	}

	renderer := export.NewChromeRenderer(cfg.Verbose)
	if cfg.ChromePath != "" {
		renderer.ExecPath = cfg.ChromePath
	}

	return New(Config{
		Port:         cfg.Port,
		CORSOrigins:  cfg.CORSOrigins,
		TemplatePath: cfg.TemplatePath,
		RateLimit:    ratelimit.LoadConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		Verbose:      cfg.Verbose,
	}, Dependencies{
		Store:    store,
		Renderer: renderer,
		LLM:      client,
		JWT:      jwtConfig,
	})
}

// New creates a new server instance
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("PDF renderer is required")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("JWT config is required")
	}

	s := &Server{
		store:        deps.Store,
		documents:    document.NewRegistry(storage.NewDocumentRepository(deps.Store)),
		exporter:     export.NewExporter(deps.Renderer, export.Options{TemplatePath: cfg.TemplatePath, Verbose: cfg.Verbose}),
		assistant:    assistant.New(deps.LLM),
		llmClient:    deps.LLM,
		jwtService:   NewJWTService(deps.JWT),
		rateLimiter:  ratelimit.NewLimiter(cfg.RateLimit),
		templatePath: cfg.TemplatePath,
		now:          time.Now,
		newSessionID: uuid.NewString,
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", "X-PDF-Pages", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
	})

	s.handler = corsHandler.Handler(s.withRateLimit(s.withLogging(s.routes())))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // PDF printing and text generation are slow
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes registers every endpoint
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)

	// Document
	mux.Handle("GET /document", protect(s.handleGetDocument))
	mux.Handle("PATCH /document", protect(s.handlePatchDocument))
	mux.Handle("PUT /document", protect(s.handleReplaceDocument))
	mux.Handle("DELETE /document", protect(s.handleResetDocument))
	mux.Handle("PUT /document/locale", protect(s.handleSetLocale))
	mux.Handle("PUT /document/template", protect(s.handleSetTemplate))

	// Sections
	mux.Handle("POST /document/skills", protect(s.handleAddSkill))
	mux.Handle("PUT /document/skills", protect(s.handleReplaceSkills))
	mux.Handle("DELETE /document/skills/{skill}", protect(s.handleRemoveSkill))
	for _, section := range entrySections {
		mux.Handle("POST /document/"+section, protect(s.handleAddEntry(section)))
		mux.Handle("PUT /document/"+section+"/{id}", protect(s.handleUpdateEntry(section)))
		mux.Handle("DELETE /document/"+section+"/{id}", protect(s.handleRemoveEntry(section)))
	}

	// Rendering and export
	mux.Handle("GET /document/layout", protect(s.handleLayout))
	mux.Handle("GET /document/render", protect(s.handleRender))
	mux.Handle("POST /document/export", protect(s.handleExport))

	// Assistant
	mux.Handle("POST /document/import", protect(s.handleImport))
	mux.Handle("POST /document/optimize", protect(s.handleOptimize))
	mux.Handle("POST /document/optimize/apply", protect(s.handleApplyOptimization))
	mux.Handle("POST /document/translate", protect(s.handleTranslate))

	// Usage and subscription
	mux.Handle("GET /usage", protect(s.handleUsage))
	mux.Handle("POST /subscription", protect(s.handleActivateSubscription))
	mux.Handle("DELETE /subscription", protect(s.handleCancelSubscription))

	return mux
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close releases the rate limiter, the text-generation client and storage
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.llmClient != nil {
		if err := s.llmClient.Close(); err != nil {
			log.Printf("[AI] failed to close client: %v", err)
		}
	}
	if err := storage.Close(s.store); err != nil {
		log.Printf("[STORAGE] failed to close storage: %v", err)
	}
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// session resolves the document session of the authenticated request
func (s *Server) session(r *http.Request) (*document.Session, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, err
	}
	return s.documents.Get(r.Context(), id)
}

// sessionID returns the authenticated session of r
func sessionID(r *http.Request) (string, error) {
	id, err := middleware.GetSessionID(r)
	if err != nil {
		return "", &ErrUnauthorized{}
	}
	return id, nil
}

// tracker returns the usage tracker scoped to a session
func (s *Server) tracker(sessionID string) *usage.Tracker {
	return usage.NewTracker(storage.Namespaced(s.store, sessionID)).WithClock(s.now)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to its status and writes it as JSON
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}

	body := map[string]any{"error": err.Error()}
	if code := errorCode(err); code != "" {
		body["code"] = code
	}
	var usageErr *ErrUsageLimitReached
	if errors.As(err, &usageErr) {
		body["action"] = usageErr.Action
		body["remaining"] = usageErr.Decision.Remaining
	}
	s.jsonResponse(w, status, body)
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
