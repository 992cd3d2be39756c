package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/court-agent/internal/engine"
	"github.com/jonathan/court-agent/internal/types"
)

type fakeEngine struct {
	status     types.RunStatus
	runErr     error
	ranConfigs []uuid.UUID
	stopped    bool
}

func (f *fakeEngine) Status() types.RunStatus { return f.status }

func (f *fakeEngine) RunAsync(cfg types.BookingConfig) error {
	if f.runErr != nil {
		return f.runErr
	}
	f.ranConfigs = append(f.ranConfigs, cfg.ID)
	return nil
}

func (f *fakeEngine) Stop() { f.stopped = true }

type fakeStore struct {
	configs    map[uuid.UUID]types.BookingConfig
	runs       []types.RunResult
	automation bool
	failWith   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{configs: make(map[uuid.UUID]types.BookingConfig), automation: true}
}

func (f *fakeStore) GetConfig(_ context.Context, id uuid.UUID) (*types.BookingConfig, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	cfg, ok := f.configs[id]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (f *fakeStore) ListConfigs(_ context.Context) ([]types.BookingConfig, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]types.BookingConfig, 0, len(f.configs))
	for _, cfg := range f.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (f *fakeStore) CreateConfig(_ context.Context, cfg types.BookingConfig) (uuid.UUID, error) {
	if f.failWith != nil {
		return uuid.Nil, f.failWith
	}
	id := uuid.New()
	cfg.ID = id
	f.configs[id] = cfg
	return id, nil
}

func (f *fakeStore) SetConfigEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	if f.failWith != nil {
		return f.failWith
	}
	cfg, ok := f.configs[id]
	if !ok {
		return fmt.Errorf("config %s not found", id)
	}
	cfg.Enabled = enabled
	f.configs[id] = cfg
	return nil
}

func (f *fakeStore) ListRuns(_ context.Context, _ int) ([]types.RunResult, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.runs, nil
}

func (f *fakeStore) AutomationEnabled(_ context.Context) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.automation, nil
}

func (f *fakeStore) SetAutomationEnabled(_ context.Context, enabled bool) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.automation = enabled
	return nil
}

const testPassword = "correct horse"

func newTestServer(t *testing.T, eng *fakeEngine, store *fakeStore) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	s, err := New(Config{Port: 0, JWTSecret: "test-secret", AdminPasswordHash: string(hash)}, eng, store)
	require.NoError(t, err)
	return s
}

func authedRequest(t *testing.T, s *Server, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)

	token, err := s.jwtService.GenerateToken()
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func testStoredConfig() types.BookingConfig {
	return types.BookingConfig{
		ID:          uuid.New(),
		FacilityURL: "https://booking.example.com/courts/riverside",
		Sport:       "badminton",
		PartySize:   2,
		Enabled:     true,
		Schedule: types.Schedule{
			time.Tuesday: {{Hour: 9, Minute: 30}},
		},
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, newFakeStore())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, newFakeStore())

	body := bytes.NewBufferString(`{"password": "correct horse"}`)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	subject, err := s.jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, newFakeStore())

	body := bytes.NewBufferString(`{"password": "wrong"}`)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedEndpoints_RejectMissingToken(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, newFakeStore())

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/status"},
		{http.MethodPost, "/stop"},
		{http.MethodGet, "/runs"},
		{http.MethodGet, "/configs"},
		{http.MethodGet, "/automation"},
	} {
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestStatus(t *testing.T) {
	eng := &fakeEngine{status: types.RunStatus{State: types.StateRunning, Stage: "navigating"}}
	s := newTestServer(t, eng, newFakeStore())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status types.RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, types.StateRunning, status.State)
	assert.Equal(t, "navigating", status.Stage)
}

func TestStop(t *testing.T) {
	eng := &fakeEngine{}
	s := newTestServer(t, eng, newFakeStore())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodPost, "/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, eng.stopped)
}

func TestRunNow(t *testing.T) {
	eng := &fakeEngine{}
	store := newFakeStore()
	cfg := testStoredConfig()
	store.configs[cfg.ID] = cfg
	s := newTestServer(t, eng, store)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodPost, "/run/"+cfg.ID.String(), nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, eng.ranConfigs, 1)
	assert.Equal(t, cfg.ID, eng.ranConfigs[0])
}

func TestRunNow_UnknownConfig(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, newFakeStore())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodPost, "/run/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunNow_BadID(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, newFakeStore())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodPost, "/run/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunNow_AlreadyRunningConflict(t *testing.T) {
	eng := &fakeEngine{runErr: engine.ErrAlreadyRunning}
	store := newFakeStore()
	cfg := testStoredConfig()
	store.configs[cfg.ID] = cfg
	s := newTestServer(t, eng, store)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodPost, "/run/"+cfg.ID.String(), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ReasonAlreadyRunning), resp["reason"])
}

func TestCreateConfig(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, &fakeEngine{}, store)

	body := map[string]any{
		"facility_url": "https://booking.example.com/courts/riverside",
		"sport":        "tennis",
		"party_size":   1,
		"enabled":      true,
		"schedule":     map[string][]string{"tuesday": {"09:30"}},
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodPost, "/configs", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id, err := uuid.Parse(resp["id"])
	require.NoError(t, err)
	assert.Contains(t, store.configs, id)
}

func TestCreateConfig_InvalidRejected(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, &fakeEngine{}, store)

	// Party size above the portal's maximum.
	body := map[string]any{
		"facility_url": "https://booking.example.com/courts/riverside",
		"sport":        "tennis",
		"party_size":   5,
		"schedule":     map[string][]string{"tuesday": {"09:30"}},
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodPost, "/configs", body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, store.configs)
}

func TestSetConfigEnabled(t *testing.T) {
	store := newFakeStore()
	cfg := testStoredConfig()
	store.configs[cfg.ID] = cfg
	s := newTestServer(t, &fakeEngine{}, store)

	rec := httptest.NewRecorder()
	req := authedRequest(t, s, http.MethodPut, "/configs/"+cfg.ID.String()+"/enabled", map[string]bool{"enabled": false})
	s.routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, store.configs[cfg.ID].Enabled)
}

func TestListRuns_EmptyHistoryIsEmptyArray(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, newFakeStore())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAutomationToggle(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, &fakeEngine{}, store)

	rec := httptest.NewRecorder()
	req := authedRequest(t, s, http.MethodPut, "/automation", AutomationRequest{Enabled: false})
	s.routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, store.automation)

	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, authedRequest(t, s, http.MethodGet, "/automation", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AutomationRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Enabled)
}
