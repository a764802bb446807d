package mongodb

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

const connectTimeout = 10 * time.Second

// Adapter implements adapter.Adapter for MongoDB.
type Adapter struct{}

// NewAdapter creates a new MongoDB adapter.
func NewAdapter() adapter.Adapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MongoDB
}

// Capabilities returns the capabilities metadata for MongoDB.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MongoDB)
}

// Connect creates a client and verifies it with a ping to the primary.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Session, error) {
	uri, err := buildURI(config)
	if err != nil {
		return nil, err
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout)

	if config.SSL && (config.SSLRootCert != "" || config.SSLCert != "") {
		tlsConfig, err := adapter.TLSConfig(config, config.HostOrURLHost())
		if err != nil {
			return nil, err
		}
		clientOptions.SetTLSConfig(tlsConfig)
	}

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, config.HostOrURLHost(), config.PortOr(27017), err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, config.HostOrURLHost(), config.PortOr(27017), err)
	}

	return newSession(client, config, defaultDatabase(config)), nil
}

// buildURI returns config.URL, or a mongodb:// URI built from host fields.
func buildURI(config adapter.ConnectionConfig) (string, error) {
	if config.URL != "" {
		if !strings.HasPrefix(config.URL, "mongodb://") && !strings.HasPrefix(config.URL, "mongodb+srv://") {
			return "", adapter.NewConfigurationError(dbcapabilities.MongoDB, "url", "url must start with mongodb:// or mongodb+srv://")
		}
		return config.URL, nil
	}
	if config.Host == "" {
		return "", adapter.NewConfigurationError(dbcapabilities.MongoDB, "url", "url or host is required")
	}

	u := &url.URL{
		Scheme: "mongodb",
		Host:   config.Address(dbcapabilities.MongoDB),
		Path:   "/" + config.Database,
	}
	q := url.Values{}
	if config.User != "" {
		u.User = url.UserPassword(config.User, config.Password)
		q.Set("authSource", config.Option("authSource", "admin"))
	}
	if config.SSL {
		q.Set("tls", "true")
		if !config.RejectUnauthorized() {
			q.Set("tlsInsecure", "true")
		}
	}
	for k, v := range config.Options {
		if k != "authSource" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// defaultDatabase is the database named by the config or the URL path.
func defaultDatabase(config adapter.ConnectionConfig) string {
	if config.Database != "" {
		return config.Database
	}
	if config.URL == "" {
		return ""
	}
	details, err := dbcapabilities.ParseConnectionString(config.URL)
	if err != nil {
		return ""
	}
	return details.DatabaseName
}
