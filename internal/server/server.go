// Package server exposes the read-only HTTP API: current phase, latest
// cycle result, and transition history.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

// Evaluator is the engine surface the server reads from.
type Evaluator interface {
	CurrentPhase() float64
	LastResult() *model.CycleResult
	TransitionsSince(cutoff time.Time) []model.Transition
}

// Server wraps the chi router and the evaluator it reads from.
type Server struct {
	cfg    config.Config
	eval   Evaluator
	router *chi.Mux
}

// New builds the router with middleware and routes.
func New(cfg config.Config, eval Evaluator) *Server {
	s := &Server{cfg: cfg, eval: eval, router: chi.NewRouter()}

	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	s.router.Get("/result", s.handleResult)
	s.router.Get("/transitions", s.handleTransitions)

	return s
}

// Handler returns the underlying http.Handler for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	phase := s.eval.CurrentPhase()

	status := map[string]any{
		"phase": phase,
	}
	if band, ok := s.cfg.BandFor(phase); ok {
		status["name"] = band.Name
		status["headline"] = band.Headline
	}
	if last := s.eval.LastResult(); last != nil {
		status["composite"] = last.HOPI.Composite
		status["confidence"] = last.HOPI.Confidence
		status["tallies"] = last.Tallies
		status["evaluated_at"] = last.Timestamp
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleResult(w http.ResponseWriter, _ *http.Request) {
	last := s.eval.LastResult()
	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no cycle evaluated yet"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	hours := 24 * 7
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hours must be a positive integer"})
			return
		}
		hours = parsed
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	transitions := s.eval.TransitionsSince(cutoff)
	if transitions == nil {
		transitions = []model.Transition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":       cutoff,
		"transitions": transitions,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}
