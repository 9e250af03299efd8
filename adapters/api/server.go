// Package api exposes finished runs over a read-only HTTP surface:
// run listings, per-subject outcomes, and raw artifact downloads.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dynaconn/adapters/store"
	"dynaconn/domain/core"
	"dynaconn/internal"
	"dynaconn/internal/config"
	"dynaconn/internal/errors"
	"dynaconn/ports"
)

// Server serves the run registry and artifact store over HTTP. All
// endpoints are read-only; runs are created through the CLI.
type Server struct {
	router   *chi.Mux
	registry ports.RunRegistry
	reader   ports.ArtifactReader
	cfg      config.ServerConfig
	log      *internal.Logger
}

func NewServer(cfg config.ServerConfig, registry ports.RunRegistry, reader ports.ArtifactReader, log *internal.Logger) *Server {
	if log == nil {
		log = internal.DefaultLogger
	}
	s := &Server{
		router:   chi.NewRouter(),
		registry: registry,
		reader:   reader,
		cfg:      cfg,
		log:      log.Tagged("api"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/runs", s.handleListRuns)
	s.router.Get("/api/runs/{id}", s.handleGetRun)
	s.router.Get("/api/runs/{id}/subjects", s.handleListSubjects)
	s.router.Get("/api/runs/{id}/artifacts", s.handleListArtifacts)
	s.router.Get("/api/runs/{id}/artifacts/*", s.handleGetArtifact)
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := s.registry.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": records})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.InvalidInput("malformed run id"))
		return
	}

	record, err := s.registry.GetRun(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.InvalidInput("malformed run id"))
		return
	}

	outcomes, err := s.registry.ListSubjects(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": outcomes})
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.InvalidInput("malformed run id"))
		return
	}

	keys, err := s.reader.List(r.Context(), store.RunPrefix(runID))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.InvalidInput("malformed run id"))
		return
	}
	rel := chi.URLParam(r, "*")
	if rel == "" || strings.Contains(rel, "..") {
		s.writeError(w, errors.InvalidInput("malformed artifact key"))
		return
	}

	key := store.RunPrefix(runID) + rel
	rc, err := s.reader.Open(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer rc.Close()

	switch {
	case strings.HasSuffix(key, ".json"):
		w.Header().Set("Content-Type", "application/json")
	case strings.HasSuffix(key, ".csv.gz"):
		// Stored bytes are already gzip, so advertise the encoding and
		// let the client decompress.
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Encoding", "gzip")
	case strings.HasSuffix(key, ".csv"):
		w.Header().Set("Content-Type", "text/csv")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Error("stream %s: %v", key, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": code})
}

func statusForCode(code string) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeConfiguration, errors.CodeInputShape:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
