// Package server exposes the analyzer over a small HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sqanar/urlguard/internal/analyzer"
	"github.com/sqanar/urlguard/internal/logging"
)

// Config holds the API surface settings.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string
}

func DefaultConfig() Config {
	return Config{ListenAddr: ":8080"}
}

// Server routes analysis requests to an analyzer.
type Server struct {
	cfg      Config
	analyzer *analyzer.Analyzer
	router   chi.Router
	logger   logging.Logger
}

func NewServer(cfg Config, a *analyzer.Analyzer, logger logging.Logger) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}
	s := &Server{
		cfg:      cfg,
		analyzer: a,
		router:   chi.NewRouter(),
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestIDMiddleware)
	r.Get("/healthz", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
}

// requestIDMiddleware tags every response with an X-Request-ID, honoring one
// supplied by the caller.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := s.analyzer.AnalyzeURL(r.Context(), body.URL)
	if err != nil {
		s.logger.Warn("analyzing url",
			logging.Field{Key: "url", Value: body.URL},
			logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("analyzed url",
		logging.Field{Key: "url", Value: res.URL},
		logging.Field{Key: "label", Value: string(res.Label)},
		logging.Field{Key: "from_cache", Value: res.FromCache})
	writeJSON(w, http.StatusOK, res)
}
