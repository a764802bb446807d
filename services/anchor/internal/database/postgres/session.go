package postgres

import (
	"context"
	"database/sql/driver"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// defaultSchema is used for listing and structure calls when no schema was
// selected.
const defaultSchema = "public"

// splitOptions are the lexical rules of PostgreSQL scripts: backslashes
// escape only inside E'...' strings.
var splitOptions = adapter.SplitOptions{DollarQuotes: true}

// pooledConn is the part of *pgxpool.Conn that Execute uses.
type pooledConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Release()
}

// Session implements adapter.Session for PostgreSQL on top of a pgx pool.
// A schema selected with USE or SET search_path is remembered and applied to
// the pooled connection used by each Execute.
type Session struct {
	pool      *pgxpool.Pool
	config    adapter.ConnectionConfig
	connected int32

	acquireConn func(ctx context.Context) (pooledConn, error)

	mu            sync.RWMutex
	searchPath    string
	currentSchema string
}

func newSession(pool *pgxpool.Pool, config adapter.ConnectionConfig) *Session {
	return &Session{
		pool:      pool,
		config:    config,
		connected: 1,
		acquireConn: func(ctx context.Context) (pooledConn, error) {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// Type returns the database type.
func (s *Session) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.PostgreSQL
}

// IsConnected returns whether the session is open.
func (s *Session) IsConnected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

// Ping checks the server.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return mapError("ping", "", err)
	}
	return nil
}

// Close closes the pool.
func (s *Session) Close() error {
	if atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		s.pool.Close()
	}
	return nil
}

// Raw returns the *pgxpool.Pool.
func (s *Session) Raw() interface{} {
	return s.pool
}

// CurrentSchema returns the schema selected for this session.
func (s *Session) CurrentSchema() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSchema
}

func (s *Session) setSearchPath(value, first string) {
	s.mu.Lock()
	s.searchPath = value
	s.currentSchema = first
	s.mu.Unlock()
}

func (s *Session) resolveSchema(schema string) string {
	if schema != "" {
		return schema
	}
	if current := s.CurrentSchema(); current != "" {
		return current
	}
	return defaultSchema
}

// acquire takes a connection from the pool with the session's search_path
// applied.
func (s *Session) acquire(ctx context.Context) (pooledConn, error) {
	conn, err := s.acquireConn(ctx)
	if err != nil {
		return nil, mapError("execute", "", err)
	}

	s.mu.RLock()
	searchPath := s.searchPath
	s.mu.RUnlock()

	if searchPath != "" {
		stmt := "SET search_path TO " + searchPath
		if _, err := conn.Exec(ctx, stmt); err != nil {
			conn.Release()
			return nil, mapError("execute", stmt, err)
		}
	}
	return conn, nil
}

// Execute runs a single statement or a semicolon separated script. Every
// statement but the last is executed for its side effects; USE <schema> and
// SET search_path switch the session's active schema. The result of the
// last statement is returned and params bind to it only.
func (s *Session) Execute(ctx context.Context, statement string, params []interface{}) (*adapter.Result, error) {
	statements := adapter.SplitStatements(statement, splitOptions)
	if len(statements) == 0 {
		return nil, adapter.NewValidationError("statement", "statement is empty")
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	last := len(statements) - 1
	for i, stmt := range statements {
		if value, first, ok := schemaSwitch(stmt); ok {
			if _, err := conn.Exec(ctx, "SET search_path TO "+value); err != nil {
				return nil, mapError("execute", stmt, err)
			}
			s.setSearchPath(value, first)
			if i == last {
				return &adapter.Result{Data: map[string]interface{}{"schema": first}}, nil
			}
			continue
		}

		if i < last {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return nil, mapError("execute", stmt, err)
			}
			continue
		}

		if adapter.IsRowProducing(stmt) {
			rows, err := conn.Query(ctx, stmt, params...)
			if err != nil {
				return nil, mapError("execute", stmt, err)
			}
			columns, data, err := collectRows(rows)
			if err != nil {
				return nil, mapError("execute", stmt, err)
			}
			return adapter.RowsResult(columns, data), nil
		}

		tag, err := conn.Exec(ctx, stmt, params...)
		if err != nil {
			return nil, mapError("execute", stmt, err)
		}
		result := adapter.ExecResult(tag.RowsAffected())
		result.Data.(map[string]interface{})["command"] = tag.String()
		return result, nil
	}
	return nil, nil
}

// schemaSwitch maps USE <schema> and SET search_path statements onto a
// search_path value.
func schemaSwitch(stmt string) (value string, first string, ok bool) {
	if name, ok := adapter.ParseUse(stmt); ok {
		return QuoteIdentifier(name), name, true
	}
	return parseSearchPath(stmt)
}

// collectRows reads all rows into column-keyed maps and closes rows.
func collectRows(rows pgx.Rows) ([]string, []map[string]interface{}, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var result []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, result, nil
}

// normalizeValue renders pgx values that do not encode well: UUIDs arrive
// as [16]byte and numerics as pgtype structs.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	case driver.Valuer:
		out, err := v.Value()
		if err != nil {
			return nil
		}
		return adapter.NormalizeValue(out)
	default:
		return adapter.NormalizeValue(v)
	}
}
