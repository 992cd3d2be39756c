package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/court-agent/internal/engine"
	"github.com/jonathan/court-agent/internal/types"
)

// LoginRequest is the request body for /login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string `json:"token"`
}

// AutomationRequest toggles the global automation switch.
type AutomationRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin checks the admin password against the configured bcrypt hash
// and issues a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(req.Password)); err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.jwtService.GenerateToken()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.jsonResponse(w, http.StatusOK, LoginResponse{Token: token})
}

// handleStatus returns the engine's current run status snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.engine.Status())
}

// handleStop cancels the in-flight run, if any.
func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.engine.Stop()
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// handleRunNow manually triggers a run for a stored config, bypassing the
// schedule but not the single-flight guard.
func (s *Server) handleRunNow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid config id")
		return
	}

	cfg, err := s.store.GetConfig(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load config: "+err.Error())
		return
	}
	if cfg == nil {
		s.errorResponse(w, http.StatusNotFound, "Config not found")
		return
	}

	if err := s.engine.RunAsync(*cfg); err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			s.jsonResponse(w, http.StatusConflict, map[string]string{
				"error":  "A booking run is already in progress",
				"reason": string(types.ReasonAlreadyRunning),
			})
			return
		}
		var validation *engine.ValidationError
		if errors.As(err, &validation) {
			s.errorResponse(w, http.StatusUnprocessableEntity, validation.Error())
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

// handleListRuns returns recent run history.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []types.RunResult{}
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

// handleListConfigs returns all booking configs.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.ListConfigs(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list configs: "+err.Error())
		return
	}
	if configs == nil {
		configs = []types.BookingConfig{}
	}
	s.jsonResponse(w, http.StatusOK, configs)
}

// handleCreateConfig validates and stores a new booking config.
func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg types.BookingConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateConfig(r.Context(), cfg)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create config: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id.String()})
}

// handleSetConfigEnabled flips a config's enabled flag.
func (s *Server) handleSetConfigEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid config id")
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.store.SetConfigEnabled(r.Context(), id, req.Enabled); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to update config: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// handleGetAutomation reports the global automation switch.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.store.AutomationEnabled(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to read setting: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, AutomationRequest{Enabled: enabled})
}

// handleSetAutomation flips the global automation switch; it takes effect on
// the trigger loop's next tick.
func (s *Server) handleSetAutomation(w http.ResponseWriter, r *http.Request) {
	var req AutomationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.store.SetAutomationEnabled(r.Context(), req.Enabled); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to write setting: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}
