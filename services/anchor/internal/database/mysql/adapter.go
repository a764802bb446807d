package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

const (
	defaultDialTimeout = 10 * time.Second
	maxOpenConns       = 25
	maxIdleConns       = 5
)

// Adapter implements adapter.Adapter for MySQL.
type Adapter struct{}

// NewAdapter creates a new MySQL adapter.
func NewAdapter() adapter.Adapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MySQL
}

// Capabilities returns the capabilities metadata for MySQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MySQL)
}

// Connect opens a pool against the server and verifies it with a ping.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Session, error) {
	driverCfg, tlsName, err := buildDriverConfig(config)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(driverCfg)
	if err != nil {
		deregisterTLS(tlsName)
		return nil, adapter.NewConfigurationError(dbcapabilities.MySQL, "", err.Error())
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		deregisterTLS(tlsName)
		return nil, adapter.NewConnectionError(dbcapabilities.MySQL, config.Host, config.PortOr(3306), err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	s := newSession(db, config)
	s.tlsName = tlsName
	return s, nil
}

// buildDriverConfig maps the connection config onto a driver config. When
// custom certificates are configured, a TLS profile is registered with the
// driver and its name returned so it can be released on close.
func buildDriverConfig(config adapter.ConnectionConfig) (*mysql.Config, string, error) {
	if config.Host == "" {
		return nil, "", adapter.NewConfigurationError(dbcapabilities.MySQL, "host", "host is required")
	}

	cfg := mysql.NewConfig()
	cfg.User = config.User
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = config.Address(dbcapabilities.MySQL)
	cfg.DBName = config.Database
	cfg.Timeout = defaultDialTimeout
	cfg.Params = map[string]string{}
	for k, v := range config.Options {
		cfg.Params[k] = v
	}

	if !config.SSL {
		return cfg, "", nil
	}

	if config.SSLRootCert == "" && config.SSLCert == "" {
		if config.RejectUnauthorized() {
			cfg.TLSConfig = "true"
		} else {
			cfg.TLSConfig = "skip-verify"
		}
		return cfg, "", nil
	}

	tlsCfg, err := adapter.TLSConfig(config, config.Host)
	if err != nil {
		return nil, "", err
	}
	name := "anchor-" + uuid.NewString()
	if err := mysql.RegisterTLSConfig(name, tlsCfg); err != nil {
		return nil, "", fmt.Errorf("failed to register TLS config: %w", err)
	}
	cfg.TLSConfig = name
	return cfg, name, nil
}

func deregisterTLS(name string) {
	if name != "" {
		mysql.DeregisterTLSConfig(name)
	}
}
