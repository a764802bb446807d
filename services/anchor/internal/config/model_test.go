package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANCHOR_CATALOG_PATH", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.Connect.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Query.Timeout)
	assert.Equal(t, 50, cfg.Paginate.DefaultPageSize)
	assert.Equal(t, 1000, cfg.Paginate.MaxPageSize)
	assert.Equal(t, "ANCHOR_KEYRING_PASSWORD", cfg.Keyring.MasterPasswordEnv)
	assert.NotEmpty(t, cfg.Catalog.Path)
	assert.NotEmpty(t, cfg.Keyring.Path)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchor.yaml")
	body := "catalog:\n  path: " + filepath.Join(dir, "ds.json") + "\n" +
		"connect:\n  timeout: 2s\n" +
		"paginate:\n  default_page_size: 20\n  max_page_size: 200\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("ANCHOR_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ds.json"), cfg.Catalog.Path)
	assert.Equal(t, 2*time.Second, cfg.Connect.Timeout)
	assert.Equal(t, 20, cfg.Paginate.DefaultPageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadPaging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paginate:\n  default_page_size: 100\n  max_page_size: 10\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
