package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kalambet/talkscope/internal/analysis"
	"github.com/kalambet/talkscope/internal/config"
)

// Analyzer runs one analysis. *analysis.Runner implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Deps holds everything the HTTP handlers need. Config is read-only after
// construction; nothing here is mutated per request.
type Deps struct {
	Analyzer Analyzer
	Config   config.Config
}

// NewHandler returns the HTTP API: the analyze, validate and health
// endpoints plus the landing page and its static assets.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Analysis-ID", "X-Analysis-Model"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", handleIndex(deps))
	r.Handle("/static/*", staticHandler())
	r.Get("/health", handleHealth(deps))
	r.Post("/analyze", handleAnalyze(deps, analysis.Basic))
	r.Post("/analyze/advanced", handleAnalyze(deps, analysis.Advanced))
	r.Post("/validate", handleValidate(deps))

	return r
}

type healthResponse struct {
	Status        string `json:"status"`
	APIConfigured bool   `json:"api_configured"`
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:        "healthy",
			APIConfigured: deps.Config.APIConfigured(),
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func httpError(w http.ResponseWriter, code int, errCode string, format string, args ...any) {
	writeJSON(w, code, errorResponse{
		Error:   errCode,
		Message: fmt.Sprintf(format, args...),
	})
}
