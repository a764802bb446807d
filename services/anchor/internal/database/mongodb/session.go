package mongodb

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Session implements adapter.Session for MongoDB. Statements run against the
// active database, which starts as the configured one and is switched with
// "use <db>".
type Session struct {
	client    *mongo.Client
	config    adapter.ConnectionConfig
	connected int32

	mu        sync.RWMutex
	currentDB string
}

func newSession(client *mongo.Client, config adapter.ConnectionConfig, database string) *Session {
	return &Session{
		client:    client,
		config:    config,
		connected: 1,
		currentDB: database,
	}
}

// Type returns the database type.
func (s *Session) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MongoDB
}

// IsConnected returns whether the session is open.
func (s *Session) IsConnected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

// Ping checks the primary.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return mapError("ping", "", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Session) Close() error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Raw returns the *mongo.Client.
func (s *Session) Raw() interface{} {
	return s.client
}

// CurrentDatabase returns the active database.
func (s *Session) CurrentDatabase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDB
}

func (s *Session) setCurrentDatabase(name string) {
	s.mu.Lock()
	s.currentDB = name
	s.mu.Unlock()
}

func (s *Session) database(name, statement string) (*mongo.Database, error) {
	if name == "" {
		name = s.CurrentDatabase()
	}
	if name == "" {
		return nil, adapter.NewNoDatabaseSelectedError(dbcapabilities.MongoDB, statement, nil)
	}
	return s.client.Database(name), nil
}

// ListSchemas returns the database names.
func (s *Session) ListSchemas(ctx context.Context) ([]string, error) {
	names, err := s.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, mapError("list databases", "", err)
	}
	sort.Strings(names)
	return names, nil
}

// ListTables returns the collection names of a database.
func (s *Session) ListTables(ctx context.Context, schema string) ([]string, error) {
	db, err := s.database(schema, "")
	if err != nil {
		return nil, err
	}
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, mapError("list collections", "", err)
	}
	sort.Strings(names)
	return names, nil
}
