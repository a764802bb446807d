package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

const (
	defaultDatabases = 16
	// maxScanKeys caps key listings of large databases.
	maxScanKeys = 10000
	scanCount   = 500
)

// commandClient is the part of *redis.Client the session uses.
type commandClient interface {
	redis.Cmdable
	Close() error
}

// Session implements adapter.Session for Redis. Logical databases are the
// schemas and keys are the tables.
type Session struct {
	client    commandClient
	options   *redis.Options
	config    adapter.ConnectionConfig
	connected int32
}

func newSession(client commandClient, options *redis.Options, config adapter.ConnectionConfig) *Session {
	return &Session{
		client:    client,
		options:   options,
		config:    config,
		connected: 1,
	}
}

// Type returns the database type.
func (s *Session) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.Redis
}

// IsConnected returns whether the session is open.
func (s *Session) IsConnected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

// Ping sends PING.
func (s *Session) Ping(ctx context.Context) error {
	return mapError("ping", "PING", s.client.Ping(ctx).Err())
}

// Close closes the client.
func (s *Session) Close() error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return nil
	}
	return s.client.Close()
}

// Raw returns the underlying client.
func (s *Session) Raw() interface{} {
	return s.client
}

func (s *Session) currentDB() int {
	if s.options == nil {
		return 0
	}
	return s.options.DB
}

// clientFor returns a client bound to schema ("db3"). The session's own
// client serves its database; other databases get a short lived client that
// the caller releases.
func (s *Session) clientFor(schema string) (commandClient, func(), error) {
	if schema == "" {
		return s.client, func() {}, nil
	}
	db, err := parseDBName(schema)
	if err != nil {
		return nil, nil, err
	}
	if db == s.currentDB() {
		return s.client, func() {}, nil
	}
	if s.options == nil {
		return nil, nil, adapter.NewUnsupportedOperationError(dbcapabilities.Redis, "select database",
			fmt.Sprintf("session is bound to db%d", s.currentDB()))
	}
	options := *s.options
	options.DB = db
	client := redis.NewClient(&options)
	return client, func() { _ = client.Close() }, nil
}

// ListSchemas returns db0..dbN-1 where N is the server's "databases"
// setting, or 16 when CONFIG is not permitted.
func (s *Session) ListSchemas(ctx context.Context) ([]string, error) {
	count := defaultDatabases
	values, err := s.client.ConfigGet(ctx, "databases").Result()
	if err != nil && isConnectionLost(err) {
		return nil, mapError("list databases", "CONFIG GET databases", err)
	}
	if err == nil {
		if n, convErr := strconv.Atoi(values["databases"]); convErr == nil && n > 0 {
			count = n
		}
	}

	names := make([]string, count)
	for i := range names {
		names[i] = "db" + strconv.Itoa(i)
	}
	return names, nil
}

// ListTables returns the keys of a logical database, sorted, up to
// maxScanKeys.
func (s *Session) ListTables(ctx context.Context, schema string) ([]string, error) {
	client, release, err := s.clientFor(schema)
	if err != nil {
		return nil, err
	}
	defer release()

	keys, err := scanKeys(ctx, client, "*", maxScanKeys)
	if err != nil {
		return nil, mapError("list keys", "SCAN", err)
	}
	return keys, nil
}

// GetStructure returns an empty structure; keys have no declared columns.
func (s *Session) GetStructure(ctx context.Context, schema, table string) (*adapter.Structure, error) {
	return adapter.EmptyStructure(), nil
}

// scanKeys walks SCAN until the cursor is exhausted or limit keys are
// found, and returns them sorted.
func scanKeys(ctx context.Context, client commandClient, pattern string, limit int) ([]string, error) {
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		cursor = next
		if cursor == 0 || len(seen) >= limit {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
