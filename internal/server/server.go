// Package server serves built book artifacts to reader clients: segment and
// index files as static content with Range support, a small JSON API over the
// book list, and a WebSocket channel that streams rebuild progress.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/inkstone/bookforge/core/segment"
	"github.com/inkstone/bookforge/internal/logging"
	"github.com/inkstone/bookforge/internal/pipeline"
	"github.com/inkstone/bookforge/internal/validation"
)

// Config configures the reader server.
type Config struct {
	Addr      string
	OutDir    string
	SourceDir string // enables POST /api/rebuild when set
	CORS      CORSConfig
	Pipeline  pipeline.Options
}

// Server is the reader HTTP server.
type Server struct {
	cfg Config
	hub *Hub

	mu         sync.Mutex
	rebuilding bool

	httpServer *http.Server
}

// New creates a server. The hub's Run loop starts when ListenAndServe is
// called.
func New(cfg Config) *Server {
	return &Server{cfg: cfg, hub: NewHub()}
}

// Handler builds the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/books", s.handleBooks)
	mux.HandleFunc("GET /api/books/{id}/chapters", s.handleChapters)
	mux.HandleFunc("POST /api/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	mux.HandleFunc("GET /files/{name}", s.handleFile)

	var h http.Handler = mux
	h = CORSMiddleware(s.cfg.CORS, h)
	h = SecurityHeadersMiddleware(h)
	h = LoggingMiddleware(h)
	h = RequestIDMiddleware(h)
	return h
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.hub.Run()

	s.httpServer = &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Handler(),
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.ServerStartup("reader", s.cfg.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// handleBooks returns the compact book list.
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	list, err := segment.LoadBookList(s.cfg.OutDir)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load book list")
		return
	}
	writeJSON(w, list)
}

// handleChapters returns the per-book chapter index.
func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateFilename(id); err != nil {
		httpError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	idx, err := segment.LoadIndex(filepath.Join(s.cfg.OutDir, segment.IndexFilename(id)))
	if err != nil {
		httpError(w, http.StatusNotFound, "unknown book")
		return
	}
	writeJSON(w, idx)
}

// handleFile serves one artifact (segment or index) with Range support via
// http.ServeFile, so readers can fetch a single chapter out of a 25 MiB
// segment using the index's byte offsets.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := validation.ValidateFilename(name); err != nil {
		httpError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".json") {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if strings.HasSuffix(name, ".txt") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.OutDir, name))
}

// handleRebuild kicks off a batch run in the background; progress streams
// over the WebSocket channel. Only one rebuild runs at a time.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if s.cfg.SourceDir == "" {
		httpError(w, http.StatusForbidden, "rebuild not enabled")
		return
	}

	s.mu.Lock()
	if s.rebuilding {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, "rebuild already in progress")
		return
	}
	s.rebuilding = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.rebuilding = false
			s.mu.Unlock()
		}()

		runner := pipeline.NewRunner(s.cfg.Pipeline, s.hub.BroadcastEvent)
		if _, err := runner.Run(context.Background()); err != nil {
			logging.Error("rebuild failed", "error", err)
			s.hub.BroadcastEvent(pipeline.Event{Type: "failed", Message: err.Error()})
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
