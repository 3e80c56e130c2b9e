package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relata.yml"), []byte(contents), 0o644))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Redis.RateLimit)
	assert.Equal(t, time.Minute, cfg.Redis.RateWindow)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	dir := writeConfig(t, `
project_name: blog
server:
  host: localhost
  port: 3000
  base_url: https://api.example.com
database:
  driver: sqlite3
  url: blog.db
redis:
  enabled: true
  addr: redis:6379
log:
  debug: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "blog", cfg.ProjectName)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
	assert.Equal(t, "https://api.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Log.Debug)
}

func TestLoad_InvalidDriver(t *testing.T) {
	dir := writeConfig(t, "database:\n  driver: mysql\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestLoad_AuthRequiresSecret(t *testing.T) {
	dir := writeConfig(t, "auth:\n  enabled: true\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret")
}

func TestDatabaseURL_EnvironmentWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")

	cfg := &Config{Database: DatabaseConfig{URL: "postgres://file/db"}}
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL())
}
