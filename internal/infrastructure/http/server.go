// Package http exposes the pipeline over a JSON API with SSE progress
// streaming.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/usecases"
)

// SessionFactory builds a fresh orchestrator for each API session.
type SessionFactory func() *usecases.Orchestrator

// Server is the HTTP front end. Each session owns one orchestrator, so
// repositories and conversations are isolated per session.
type Server struct {
	factory SessionFactory
	addr    string
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*usecases.Orchestrator
}

// NewServer creates a server listening on addr.
func NewServer(factory SessionFactory, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		factory:  factory,
		addr:     addr,
		logger:   logger,
		sessions: make(map[string]*usecases.Orchestrator),
	}
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/repository", s.handleProcessRepository).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	return s.corsMiddleware(s.loggingMiddleware(r))
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // long enough for SSE pipelines
	}

	s.logger.Info("server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) session(r *http.Request) (*usecases.Orchestrator, bool) {
	id := mux.Vars(r)["id"]
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.sessions[id]
	return o, ok
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	o := s.factory()
	s.mu.Lock()
	s.sessions[o.ID()] = o
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"id": o.ID()})
}

type stateResponse struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason,omitempty"`
	Repo   string `json:"repository,omitempty"`
}

func stateBody(o *usecases.Orchestrator) stateResponse {
	st := o.CurrentState()
	body := stateResponse{Stage: st.Stage.String(), Reason: st.Reason}
	if repo := o.Repository(); repo.URL != "" {
		body.Repo = repo.String()
	}
	return body
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, stateBody(o))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	o.Reset()
	writeJSON(w, http.StatusOK, stateBody(o))
}

// handleProcessRepository kicks off ingestion and streams pipeline states as
// SSE until the terminal Ready or Failed state.
func (s *Server) handleProcessRepository(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "repository url required")
		return
	}

	updates, err := o.ProcessRepository(r.Context(), req.URL)
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, entities.ErrInvalidURL) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for st := range updates {
		payload := stateResponse{Stage: st.Stage.String(), Reason: st.Reason}
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}

	answer, err := o.Ask(r.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, entities.ErrNotReady):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, entities.ErrGeneration),
			errors.Is(err, entities.ErrEmbeddingUnavailable):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
