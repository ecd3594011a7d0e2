package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("NHLBETS_CONFIG", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NHLBETS_DATABASE_URL", "postgres://localhost/nhlbets")
	t.Setenv("NHLBETS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/nhlbets", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Addr, "defaults survive env layering")
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout())
}

func TestLoadBareDatabaseURL(t *testing.T) {
	t.Setenv("NHLBETS_CONFIG", "")
	t.Setenv("NHLBETS_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/legacy", cfg.DatabaseURL)
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("NHLBETS_CONFIG", "")
	t.Setenv("NHLBETS_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestTodayOverride(t *testing.T) {
	cfg := New()
	cfg.RunDate = "2023-01-14"
	today, err := cfg.Today()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC), today)

	cfg.RunDate = "not-a-date"
	_, err = cfg.Today()
	assert.Error(t, err)
}
