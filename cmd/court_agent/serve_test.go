package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfigFile(t, `{
		"database_url": "postgres://localhost/court_agent",
		"contact": {"name": "Jane Doe", "phone": "+15551234567", "email": "jane@example.com"},
		"tick_interval_sec": 30
	}`)

	cfg, err := loadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/court_agent", cfg.DatabaseURL)
	assert.Equal(t, "Jane Doe", cfg.Contact.Name)
}

func TestLoadAppConfig_EnvFillsDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/court_agent")
	path := writeConfigFile(t, `{
		"contact": {"name": "Jane Doe", "phone": "+15551234567", "email": "jane@example.com"}
	}`)

	cfg, err := loadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/court_agent", cfg.DatabaseURL)
}

func TestLoadAppConfig_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfigFile(t, `{
		"contact": {"name": "Jane Doe", "phone": "+15551234567", "email": "jane@example.com"}
	}`)

	_, err := loadAppConfig(path)
	assert.ErrorContains(t, err, "database URL")
}

func TestLoadAppConfig_MissingContact(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfigFile(t, `{"database_url": "postgres://localhost/court_agent"}`)

	_, err := loadAppConfig(path)
	assert.ErrorContains(t, err, "contact")
}

func TestLoadAppConfig_BadFile(t *testing.T) {
	_, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
