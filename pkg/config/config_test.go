package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	require.NoError(t, os.Chdir(t.TempDir()))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "zh", cfg.Language)
	assert.Equal(t, "file", cfg.Store)
	assert.Equal(t, defaultDatasetBaseURL, cfg.Dataset.BaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
language: en
store: redis
dataset:
  baseURL: https://example.com/data/
  versionCode: 42
  checksumTimeout: PT3S
typhoon:
  ttl: PT1M
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, 42, cfg.Dataset.VersionCode)
	assert.Equal(t, time.Minute, MustDuration(cfg.Typhoon.TTL, 0))
	assert.Equal(t, 3*time.Second, MustDuration(cfg.Dataset.ChecksumTimeout, 0))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("store: sqlite\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HKBUSETA_LANGUAGE", "en")
	t.Setenv("HKBUSETA_VERSION_CODE", "7")

	cfg, err := Load(writeEmpty(t))
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 7, cfg.Dataset.VersionCode)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("PT5M")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	_, err = ParseDuration("five minutes")
	assert.Error(t, err)
}

func writeEmpty(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	return path
}
