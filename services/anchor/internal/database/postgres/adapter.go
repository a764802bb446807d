package postgres

import (
	"context"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct{}

// NewAdapter creates a new PostgreSQL adapter.
func NewAdapter() adapter.Adapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.PostgreSQL
}

// Capabilities returns the capabilities metadata for PostgreSQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.PostgreSQL)
}

// Connect creates a pool and verifies it with a ping.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Session, error) {
	connString, err := buildConnString(config)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, adapter.NewConfigurationError(dbcapabilities.PostgreSQL, "", err.Error())
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.PostgreSQL, config.Host, config.PortOr(5432), err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, adapter.NewConnectionError(dbcapabilities.PostgreSQL, config.Host, config.PortOr(5432), err)
	}

	return newSession(pool, config), nil
}

// getSslMode returns the sslmode connection parameter
func getSslMode(config adapter.ConnectionConfig) string {
	if !config.SSL {
		return "disable"
	}
	if config.SSLMode != "" {
		return config.SSLMode
	}
	if !config.RejectUnauthorized() {
		return "require"
	}
	return "verify-full"
}

// buildConnString renders a postgres:// URL for the config. A configured
// URL is used as is.
func buildConnString(config adapter.ConnectionConfig) (string, error) {
	if config.URL != "" {
		return config.URL, nil
	}
	if config.Host == "" {
		return "", adapter.NewConfigurationError(dbcapabilities.PostgreSQL, "host", "host is required")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   config.Address(dbcapabilities.PostgreSQL),
		Path:   "/" + config.Database,
	}
	if config.User != "" {
		u.User = url.UserPassword(config.User, config.Password)
	}

	q := url.Values{}
	q.Set("sslmode", getSslMode(config))
	if config.SSL {
		if config.SSLRootCert != "" {
			q.Set("sslrootcert", config.SSLRootCert)
		}
		if config.SSLCert != "" && config.SSLKey != "" {
			q.Set("sslcert", config.SSLCert)
			q.Set("sslkey", config.SSLKey)
		}
	}
	q.Set("connect_timeout", strconv.Itoa(defaultConnectTimeoutSeconds))
	for k, v := range config.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

const defaultConnectTimeoutSeconds = 10
