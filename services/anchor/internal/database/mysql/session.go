package mysql

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// splitOptions are the lexical rules of MySQL scripts: backslashes escape
// in every quoted string.
var splitOptions = adapter.SplitOptions{BackslashEscapes: true}

// Session implements adapter.Session for MySQL on top of a database/sql pool.
// The active database selected with USE is remembered and re-applied on the
// pooled connection used by each call.
type Session struct {
	db        *sql.DB
	config    adapter.ConnectionConfig
	tlsName   string
	connected int32

	mu        sync.RWMutex
	currentDB string
}

func newSession(db *sql.DB, config adapter.ConnectionConfig) *Session {
	return &Session{
		db:        db,
		config:    config,
		connected: 1,
		currentDB: config.Database,
	}
}

// Type returns the database type.
func (s *Session) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MySQL
}

// IsConnected returns whether the session is open.
func (s *Session) IsConnected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

// Ping checks the server.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return mapError("ping", "", err)
	}
	return nil
}

// Close closes the pool.
func (s *Session) Close() error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return nil
	}
	err := s.db.Close()
	deregisterTLS(s.tlsName)
	return err
}

// Raw returns the *sql.DB.
func (s *Session) Raw() interface{} {
	return s.db
}

// CurrentDatabase returns the database selected for this session.
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

// replaceCurrentDatabase switches from old to name unless another USE
// already moved the session elsewhere.
func (s *Session) replaceCurrentDatabase(old, name string) {
	s.mu.Lock()
	if s.currentDB == old {
		s.currentDB = name
	}
	s.mu.Unlock()
}

// resolveSchema returns schema or the active database.
func (s *Session) resolveSchema(schema, statement string) (string, error) {
	if schema != "" {
		return schema, nil
	}
	if current := s.CurrentDatabase(); current != "" {
		return current, nil
	}
	return "", adapter.NewNoDatabaseSelectedError(dbcapabilities.MySQL, statement, nil)
}

// conn takes a dedicated connection from the pool. With reapply set the
// active database is selected on it first. An active database that no
// longer exists is dropped in favour of the configured one, or of none.
func (s *Session) conn(ctx context.Context, reapply bool) (*sql.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, mapError("execute", "", err)
	}
	current := s.CurrentDatabase()
	if !reapply || current == "" {
		return conn, nil
	}

	use := "USE " + QuoteIdentifier(current)
	_, err = conn.ExecContext(ctx, use)
	if err == nil {
		return conn, nil
	}
	if !isUnknownDatabase(err) {
		conn.Close()
		return nil, mapError("execute", use, err)
	}

	fallback := s.config.Database
	if fallback == current {
		fallback = ""
	}
	if fallback != "" {
		if _, err := conn.ExecContext(ctx, "USE "+QuoteIdentifier(fallback)); err != nil {
			fallback = ""
		}
	}
	s.replaceCurrentDatabase(current, fallback)
	return conn, nil
}

// Execute runs a single statement or a semicolon separated script. Every
// statement but the last is executed for its side effects; a USE statement
// switches the session's active database. The result of the last statement
// is returned. params bind to the last statement only.
func (s *Session) Execute(ctx context.Context, statement string, params []interface{}) (*adapter.Result, error) {
	statements := adapter.SplitStatements(statement, splitOptions)
	if len(statements) == 0 {
		return nil, adapter.NewValidationError("statement", "statement is empty")
	}

	_, leadingUse := adapter.ParseUse(statements[0])
	conn, err := s.conn(ctx, !leadingUse)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	last := len(statements) - 1
	for i, stmt := range statements {
		if name, ok := adapter.ParseUse(stmt); ok {
			if _, err := conn.ExecContext(ctx, "USE "+QuoteIdentifier(name)); err != nil {
				return nil, mapError("execute", stmt, err)
			}
			s.setCurrentDatabase(name)
			if i == last {
				return &adapter.Result{Data: map[string]interface{}{"database": name}}, nil
			}
			continue
		}

		if i < last {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return nil, mapError("execute", stmt, err)
			}
			continue
		}

		if adapter.IsRowProducing(stmt) {
			return s.query(ctx, conn, stmt, params)
		}
		res, err := conn.ExecContext(ctx, stmt, params...)
		if err != nil {
			return nil, mapError("execute", stmt, err)
		}
		affected, _ := res.RowsAffected()
		result := adapter.ExecResult(affected)
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			result.Data.(map[string]interface{})["lastInsertId"] = id
		}
		return result, nil
	}
	return nil, nil
}

func (s *Session) query(ctx context.Context, conn *sql.Conn, stmt string, params []interface{}) (*adapter.Result, error) {
	rows, err := conn.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, mapError("execute", stmt, err)
	}
	defer rows.Close()

	columns, data, err := scanRows(rows)
	if err != nil {
		return nil, mapError("execute", stmt, err)
	}
	return adapter.RowsResult(columns, data), nil
}

// scanRows reads every row into a column-keyed map.
func scanRows(rows *sql.Rows) ([]string, []map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = adapter.NormalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, result, nil
}
