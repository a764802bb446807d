package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Path    string        `yaml:"path" env:"SAMPLE_PATH" env-default:"/tmp/default.json"`
	Level   string        `yaml:"level" env:"SAMPLE_LEVEL" env-default:"info"`
	Timeout time.Duration `yaml:"timeout" env:"SAMPLE_TIMEOUT" env-default:"10s"`
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	var cfg sample
	require.NoError(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
	assert.Equal(t, "/tmp/default.json", cfg.Path)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("path: /data/catalog.json\nlevel: debug\n"), 0o600))
	t.Setenv("SAMPLE_LEVEL", "warn")

	var cfg sample
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "/data/catalog.json", cfg.Path)
	assert.Equal(t, "warn", cfg.Level)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("path: [unclosed\n"), 0o600))

	var cfg sample
	assert.Error(t, Load(path, &cfg))
}

func TestExpandPath(t *testing.T) {
	t.Setenv("ANCHOR_TEST_DIR", "/srv")
	assert.Equal(t, "/srv/a.json", ExpandPath("$ANCHOR_TEST_DIR/a.json"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x.yaml"), ExpandPath("~/x.yaml"))
}
