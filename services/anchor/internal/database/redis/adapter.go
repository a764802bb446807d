package redis

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

const pingTimeout = 5 * time.Second

// Adapter implements adapter.Adapter for Redis.
type Adapter struct{}

// NewAdapter creates a new Redis adapter.
func NewAdapter() adapter.Adapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.Redis
}

// Capabilities returns the capabilities metadata for Redis.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Redis)
}

// Connect creates a client and verifies it with PING.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Session, error) {
	options, err := buildOptions(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, adapter.NewConnectionError(dbcapabilities.Redis, config.HostOrURLHost(), config.PortOr(6379), err)
	}

	return newSession(client, options, config), nil
}

// buildOptions maps the connection config onto client options. A URL
// (redis:// or rediss://) is parsed by the driver; host fields are applied
// otherwise.
func buildOptions(config adapter.ConnectionConfig) (*redis.Options, error) {
	var options *redis.Options
	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, adapter.NewConfigurationError(dbcapabilities.Redis, "url", err.Error())
		}
		options = parsed
	} else {
		if config.Host == "" {
			return nil, adapter.NewConfigurationError(dbcapabilities.Redis, "host", "host is required")
		}
		options = &redis.Options{
			Addr:     config.Address(dbcapabilities.Redis),
			Username: config.User,
			Password: config.Password,
		}
	}
	if config.URL != "" && config.Password != "" {
		options.Password = config.Password
	}

	db, err := logicalDB(config)
	if err != nil {
		return nil, err
	}
	if db >= 0 {
		options.DB = db
	}

	if config.SSL {
		host := config.HostOrURLHost()
		tlsConfig, err := adapter.TLSConfig(config, host)
		if err != nil {
			return nil, err
		}
		options.TLSConfig = tlsConfig
	}
	return options, nil
}

// logicalDB returns the configured database index, or -1 when none is set.
// Database accepts "3" and "db3".
func logicalDB(config adapter.ConnectionConfig) (int, error) {
	if config.DB != nil {
		if *config.DB < 0 {
			return 0, adapter.NewConfigurationError(dbcapabilities.Redis, "db", "db must not be negative")
		}
		return *config.DB, nil
	}
	if config.Database == "" {
		return -1, nil
	}
	n, err := parseDBName(config.Database)
	if err != nil {
		return 0, adapter.NewConfigurationError(dbcapabilities.Redis, "database", err.Error())
	}
	return n, nil
}

func parseDBName(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(name), "db"))
	if err != nil || n < 0 {
		return 0, adapter.NewValidationError("schema", "logical database must look like db0, db1, ...")
	}
	return n, nil
}
