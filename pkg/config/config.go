package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load fills dst from a YAML file and the environment. Struct tags follow
// cleanenv: `yaml`, `env` and `env-default`. A missing file is not an error:
// defaults and environment variables still apply.
func Load(path string, dst interface{}) error {
	path = ExpandPath(path)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, dst); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(dst); err != nil {
		return fmt.Errorf("failed to read config from environment: %w", err)
	}
	return nil
}

// Usage renders the environment variables dst understands.
func Usage(dst interface{}) string {
	text, err := cleanenv.GetDescription(dst, nil)
	if err != nil {
		return ""
	}
	return text
}

// ExpandPath expands environment variables and a leading "~/".
func ExpandPath(path string) string {
	path = os.ExpandEnv(strings.TrimSpace(path))
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}
