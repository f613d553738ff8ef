package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/cadence/internal/golden"
	"github.com/MikeSquared-Agency/cadence/internal/session"
)

// Server exposes the evaluation engine to the admin console. Everything it
// serves is plain JSON over the contracts the core already emits.
type Server struct {
	router  *chi.Mux
	port    int
	manager *session.Manager
	golden  golden.Store
	version string
	logger  *slog.Logger
}

func NewServer(port int, apiToken string, manager *session.Manager, goldenStore golden.Store, version string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		manager: manager,
		golden:  goldenStore,
		version: version,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/cadence/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/evaluations", s.evaluate)
		r.Get("/sessions/{conversationID}", s.getSession)
		r.Get("/sessions/{conversationID}/transcript", s.getCorrectedTranscript)
		r.Post("/sessions/{conversationID}/corrections", s.applyCorrections)
		r.Post("/responses/validate", s.validateResponse)
		r.Post("/specs/lint", s.lintSpec)
		r.Post("/golden", s.pinGolden)
		r.Post("/golden/replay", s.replayGolden)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the configured bearer
// token. An empty token disables auth, for local runs.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":        "cadence",
		"rubric_version": s.version,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
