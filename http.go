package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"ollamaui/chat"
	"ollamaui/config"
	"ollamaui/health"
	"ollamaui/logger"
	"ollamaui/models"
	"ollamaui/providers"
)

//go:embed templates/index.html
var indexTemplate string

var pageTemplate = template.Must(template.New("index").Parse(indexTemplate))

// pageData is what the chat page renders
type pageData struct {
	Title    string
	Models   []models.ModelDescriptor
	Selected string
}

// WebServer serves the chat page and the generate action
type WebServer struct {
	cfg       *config.Config
	responder *chat.Responder
	limiter   *RateLimiter
	tokens    *TokenCounter
	health    *health.Checker
}

// NewWebServer wires the web front-end; limiter may be nil
func NewWebServer(cfg *config.Config, responder *chat.Responder, limiter *RateLimiter) *WebServer {
	return &WebServer{
		cfg:       cfg,
		responder: responder,
		limiter:   limiter,
		tokens:    NewTokenCounter(cfg.Telemetry.CountTokens),
		health:    health.NewChecker(responder, cfg.HealthInterval(), 5*time.Second),
	}
}

// Handler returns the routed, CORS-wrapped handler
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/models", s.handleListModels)
	mux.HandleFunc("/health", s.handleHealth)

	origin := s.cfg.Server.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return cors.New(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		MaxAge:         86400,
	}).Handler(mux)
}

func (s *WebServer) newHTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Generation can legitimately take as long as the chat timeout
		WriteTimeout: s.cfg.ChatTimeout() + 10*time.Second,
	}
}

// StartHTTPServer serves plain HTTP until ctx is done
func StartHTTPServer(ctx context.Context, s *WebServer, port int) error {
	srv := s.newHTTPServer(port)
	logger.Component("HTTP").Info("listening", "addr", srv.Addr)
	return serveUntilDone(ctx, srv, srv.ListenAndServe)
}

// StartHTTPSServer serves HTTPS until ctx is done
func StartHTTPSServer(ctx context.Context, s *WebServer, port int, certFile, keyFile string) error {
	srv := s.newHTTPServer(port)
	logger.Component("HTTPS").Info("listening", "addr", srv.Addr, "cert", certFile)
	return serveUntilDone(ctx, srv, func() error {
		return srv.ListenAndServeTLS(certFile, keyFile)
	})
}

func serveUntilDone(ctx context.Context, srv *http.Server, serve func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- serve() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	telemetry := newTelemetry("HTTP", r.RemoteAddr)
	telemetry.Method = r.Method
	telemetry.Path = r.URL.Path
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		telemetry.Status = rec.status
		telemetry.Finish()
	}()

	if r.URL.Path != "/" {
		http.NotFound(rec, r)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		rec.Header().Set("Allow", "GET, POST, OPTIONS")
		http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.limiter.Allow(r.RemoteAddr) {
		http.Error(rec, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(rec, r.Body, s.cfg.Server.MaxFormBytes)
		if err := parseForm(r, s.cfg.Server.MaxFormBytes); err != nil {
			writeJSON(rec, http.StatusBadRequest, map[string]string{"error": "Failed to parse form"})
			return
		}

		prompt := r.PostFormValue("prompt")
		if r.PostFormValue("action") == "generate" && strings.TrimSpace(prompt) != "" {
			s.handleGenerate(rec, r, prompt, telemetry)
			return
		}
	}

	s.renderModels(rec, r)
}

// parseForm accepts both urlencoded and multipart bodies (browser FormData is multipart)
func parseForm(r *http.Request, maxBytes int64) error {
	err := r.ParseMultipartForm(maxBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func (s *WebServer) handleGenerate(w http.ResponseWriter, r *http.Request, prompt string, telemetry *RequestTelemetry) {
	model := r.PostFormValue("model")
	if model == "" {
		model = s.cfg.Inference.DefaultModel
	}

	history := chat.WithPrompt(chat.ParseHistory(r.PostFormValue("history")), prompt)

	telemetry.Model = model
	telemetry.InputHash = generateSignature(prompt)
	telemetry.InputTokens = s.tokens.Count(joinContent(history))

	result, err := s.responder.GenerateChatResponse(r.Context(), prompt, model, history)
	if err != nil {
		kind := chat.KindOf(err)
		telemetry.ErrorKind = string(kind)
		writeJSON(w, statusForKind(kind), map[string]string{
			"error": "Error generating response",
			"kind":  string(kind),
		})
		return
	}

	telemetry.OutputHash = generateSignature(result.Response)
	telemetry.OutputTokens = s.tokens.Count(result.Response + result.ChainOfThought)
	writeJSON(w, http.StatusOK, result)
}

// renderModels is the fall-through for anything that is not a generate action
func (s *WebServer) renderModels(w http.ResponseWriter, r *http.Request) {
	list := s.responder.ListModels(r.Context())

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"models": list})
		return
	}

	selected := s.cfg.Inference.DefaultModel
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{Title: s.cfg.Server.Title, Models: list, Selected: selected}); err != nil {
		logger.Component("HTTP").Error("failed to render page", "err", err)
	}
}

// handleListModels handles GET /api/models
func (s *WebServer) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": s.responder.ListModels(r.Context()),
	})
}

// handleHealth reports front-end and inference server status
func (s *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := map[string]interface{}{
		"status": "healthy",
		"services": map[string]bool{
			"http":  s.cfg.Server.HTTPPort > 0,
			"https": s.cfg.Server.HTTPSPort > 0,
			"dns":   s.cfg.DNS.Port > 0,
			"ssh":   s.cfg.SSH.Port > 0,
		},
		"inference_url": s.cfg.Inference.BaseURL,
	}

	inference := s.health.Current(r.Context())
	report["inference"] = inference
	report["inference_reachable"] = inference.Healthy
	if !inference.Healthy {
		report["status"] = "degraded"
	}

	writeJSON(w, http.StatusOK, report)
}

// statusForKind maps generation failures to HTTP status codes
func statusForKind(kind chat.ErrorKind) int {
	switch kind {
	case chat.KindInvalidRequest:
		return http.StatusBadRequest
	case chat.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Component("HTTP").Error("failed to encode response", "err", err)
	}
}

func joinContent(history []providers.Message) string {
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// statusRecorder remembers the status code for telemetry
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
