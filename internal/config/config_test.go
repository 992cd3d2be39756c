package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/court-agent/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `{
		"database_url": "postgres://localhost/court_agent",
		"contact": {"name": "Jane Doe", "phone": "010-1234-5678", "email": "jane@example.com"},
		"verification_sender": "noreply@booking.example.com",
		"page_load_timeout_sec": 20,
		"grace_window_sec": 120
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/court_agent", cfg.DatabaseURL)
	assert.Equal(t, "Jane Doe", cfg.Contact.Name)
	assert.Equal(t, 20*time.Second, cfg.PageLoadTimeout())
	assert.Equal(t, 2*time.Minute, cfg.GraceWindow())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, 15*time.Second, cfg.PageLoadTimeout())
	assert.Equal(t, 5*time.Minute, cfg.VerifyDeadline())
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, time.Minute, cfg.TickInterval())
	assert.Equal(t, time.Duration(0), cfg.GraceWindow())
	assert.True(t, cfg.HeadlessBrowser())
}

func TestConfig_Validate_NegativeTiming(t *testing.T) {
	cfg := Config{PollIntervalSec: -1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval_sec")
}

func TestConfig_Validate_InvalidContact(t *testing.T) {
	cfg := Config{Contact: types.Contact{Name: "Jane", Phone: "1", Email: "not-an-email"}}
	assert.Error(t, cfg.Validate())
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")

	var cfg Config
	cfg.ApplyEnv()
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)

	// Explicit file value wins over the environment.
	cfg = Config{DatabaseURL: "postgres://file/db"}
	cfg.ApplyEnv()
	assert.Equal(t, "postgres://file/db", cfg.DatabaseURL)
}
