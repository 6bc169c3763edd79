package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("SESSION_FILE", "/tmp/groceryadmin-test/session.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "file", cfg.Session.Store)
	assert.Equal(t, "/tmp/groceryadmin-test/session.json", cfg.Session.FilePath)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 1, cfg.Cache.Retry)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GCTime)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.freshcart.test/api/")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("CACHE_STALE_TIME", "1m")
	t.Setenv("CACHE_GC_TIME", "30s")
	t.Setenv("AUDIT_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.freshcart.test/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 30*time.Second, cfg.Cache.GCTime)
	assert.True(t, cfg.Database.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"relative base url", "API_BASE_URL", "/api"},
		{"unknown session store", "SESSION_STORE", "cookie"},
		{"bad duration", "API_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "audit", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=audit sslmode=disable", d.DSN())
}
