// Package server exposes the tracking engine and session history over HTTP.
// The engine is single-writer: every handler that touches the session
// manager holds the server mutex, so frames and control commands are
// applied in arrival order.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/session"
	"github.com/claude/repcoach/internal/storage"
)

// Store is the persistence collaborator. *storage.DB satisfies it; tests
// substitute a fake.
type Store interface {
	InsertSession(ctx context.Context, row models.SessionRow) (bool, error)
	InsertSessionSets(ctx context.Context, rows []models.SessionSetRow) (int64, error)
	QuerySessions(ctx context.Context, start, end time.Time, userID int) ([]models.SessionRow, error)
	GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*storage.SessionDetail, error)
	QuerySessionSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.SessionSetRow, error)
	ExerciseStats(ctx context.Context, start, end time.Time, userID int) ([]models.ExerciseStat, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Store
	registry *exercise.Registry
	log      *slog.Logger
	apiKey   string
	router   chi.Router

	mu      sync.Mutex
	manager *session.Manager
	saved   bool // current session's record has been persisted
}

// New creates a new Server with all routes configured.
func New(store Store, registry *exercise.Registry, manager *session.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:    store,
		registry: registry,
		manager:  manager,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetMCP mounts the MCP transport handler under /mcp. Call before serving.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Mount("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Frame ingest and session control (API key required)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/frames", s.handleFrame)
			r.Post("/session/start", s.handleSessionStart)
			r.Post("/session/skip-rest", s.handleSkipRest)
			r.Post("/session/end", s.handleSessionEnd)
			r.Post("/ingest/sessions", s.handleSessionIngest)
		})

		// Read-only dashboard endpoints
		r.Get("/session", s.handleSessionSnapshot)
		r.Get("/exercises", s.handleExercises)
		r.Get("/sessions", s.handleQuerySessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sets", s.handleQuerySets)
		r.Get("/stats", s.handleStats)
	})
}
