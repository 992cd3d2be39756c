package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/court-agent/internal/server/middleware"
	"github.com/jonathan/court-agent/internal/types"
)

// Engine is the orchestrator surface the API exposes.
type Engine interface {
	Status() types.RunStatus
	RunAsync(cfg types.BookingConfig) error
	Stop()
}

// Store is the persistence surface the API reads and writes.
type Store interface {
	GetConfig(ctx context.Context, id uuid.UUID) (*types.BookingConfig, error)
	ListConfigs(ctx context.Context) ([]types.BookingConfig, error)
	CreateConfig(ctx context.Context, cfg types.BookingConfig) (uuid.UUID, error)
	SetConfigEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	ListRuns(ctx context.Context, limit int) ([]types.RunResult, error)
	AutomationEnabled(ctx context.Context) (bool, error)
	SetAutomationEnabled(ctx context.Context, enabled bool) error
}

// Config holds server configuration.
type Config struct {
	Port              int
	JWTSecret         string
	AdminPasswordHash string // bcrypt hash of the admin password
}

// Server is the HTTP control API: status snapshots, run history, config
// management, manual trigger and stop.
type Server struct {
	httpServer *http.Server
	engine     Engine
	store      Store
	jwtService *JWTService
	adminHash  string
}

// New creates a server around an engine and store.
func New(cfg Config, eng Engine, store Store) (*Server, error) {
	jwtService, err := NewJWTService(cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	if cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("admin password hash is empty")
	}

	s := &Server{
		engine:     eng,
		store:      store,
		jwtService: jwtService,
		adminHash:  cfg.AdminPasswordHash,
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// routes builds the router: open endpoints plus a JWT-protected API.
func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /status", s.handleStatus)
	api.HandleFunc("POST /stop", s.handleStop)
	api.HandleFunc("POST /run/{id}", s.handleRunNow)
	api.HandleFunc("GET /runs", s.handleListRuns)
	api.HandleFunc("GET /configs", s.handleListConfigs)
	api.HandleFunc("POST /configs", s.handleCreateConfig)
	api.HandleFunc("PUT /configs/{id}/enabled", s.handleSetConfigEnabled)
	api.HandleFunc("GET /automation", s.handleGetAutomation)
	api.HandleFunc("PUT /automation", s.handleSetAutomation)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.Handle("/", middleware.Auth(s.jwtService)(api))
	return mux
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	}
}

// errorResponse writes a JSON error body with the given status.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonResponse writes a JSON body with the given status.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
