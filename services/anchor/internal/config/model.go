package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	pkgconfig "github.com/redbco/redb-anchor/pkg/config"
	"github.com/redbco/redb-anchor/pkg/keyring"
)

// Config is the anchor service configuration.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Log      LogConfig      `yaml:"log"`
	Connect  ConnectConfig  `yaml:"connect"`
	Query    QueryConfig    `yaml:"query"`
	Paginate PaginateConfig `yaml:"paginate"`
	Keyring  KeyringConfig  `yaml:"keyring"`
}

type CatalogConfig struct {
	Path string `yaml:"path" env:"ANCHOR_CATALOG_PATH" env-description:"data source catalog file"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"ANCHOR_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
}

type ConnectConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"ANCHOR_CONNECT_TIMEOUT" env-default:"10s" env-description:"timeout for opening a backend session"`
}

type QueryConfig struct {
	// Zero means no timeout beyond the driver's own.
	Timeout time.Duration `yaml:"timeout" env:"ANCHOR_QUERY_TIMEOUT" env-default:"0s" env-description:"timeout for a single data operation"`
}

type PaginateConfig struct {
	DefaultPageSize int `yaml:"default_page_size" env:"ANCHOR_PAGE_SIZE" env-default:"50"`
	MaxPageSize     int `yaml:"max_page_size" env:"ANCHOR_MAX_PAGE_SIZE" env-default:"1000"`
}

type KeyringConfig struct {
	Path              string        `yaml:"path" env:"ANCHOR_KEYRING_PATH" env-description:"encrypted keyring file used when no system keyring is available"`
	MasterPasswordEnv string        `yaml:"master_password_env" env-default:"ANCHOR_KEYRING_PASSWORD"`
	Service           string        `yaml:"service" env-default:"redb-anchor"`
	CheckTimeout      time.Duration `yaml:"check_timeout" env-default:"3s"`
}

// DefaultConfigPath returns $HOME/.redb/anchor.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "anchor.yaml"
	}
	return filepath.Join(home, ".redb", "anchor.yaml")
}

// DefaultCatalogPath returns $HOME/.redb/anchor/datasources.json.
func DefaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "datasources.json"
	}
	return filepath.Join(home, ".redb", "anchor", "datasources.json")
}

// Load reads the configuration file at path, applies the environment and
// fills derived defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg := &Config{
		Log:      LogConfig{Level: "info"},
		Connect:  ConnectConfig{Timeout: 10 * time.Second},
		Paginate: PaginateConfig{DefaultPageSize: 50, MaxPageSize: 1000},
		Keyring:  KeyringConfig{MasterPasswordEnv: "ANCHOR_KEYRING_PASSWORD", Service: keyring.DefaultService, CheckTimeout: 3 * time.Second},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Catalog.Path == "" {
		c.Catalog.Path = DefaultCatalogPath()
	}
	c.Catalog.Path = pkgconfig.ExpandPath(c.Catalog.Path)
	if c.Keyring.Path == "" {
		c.Keyring.Path = keyring.DefaultPath()
	}
	c.Keyring.Path = pkgconfig.ExpandPath(c.Keyring.Path)
	if c.Keyring.Service == "" {
		c.Keyring.Service = keyring.DefaultService
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Connect.Timeout < 0 {
		return fmt.Errorf("connect.timeout must not be negative")
	}
	if c.Query.Timeout < 0 {
		return fmt.Errorf("query.timeout must not be negative")
	}
	if c.Paginate.DefaultPageSize < 1 {
		return fmt.Errorf("paginate.default_page_size must be positive")
	}
	if c.Paginate.MaxPageSize < c.Paginate.DefaultPageSize {
		return fmt.Errorf("paginate.max_page_size must be at least default_page_size")
	}
	return nil
}

// MasterPassword returns the keyring master password from the configured
// environment variable.
func (c *Config) MasterPassword() string {
	return os.Getenv(c.Keyring.MasterPasswordEnv)
}
