package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

// scriptedConn records statements and answers them from fixed tables.
type scriptedConn struct {
	mu       sync.Mutex
	log      []string
	execErr  map[string]error
	rows     map[string][]map[string]interface{}
	columns  map[string][]string
	released int
}

func (c *scriptedConn) record(sql string) {
	c.mu.Lock()
	c.log = append(c.log, sql)
	c.mu.Unlock()
}

func (c *scriptedConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.record(sql)
	if err := c.execErr[sql]; err != nil {
		return pgconn.CommandTag{}, err
	}
	if sql == "INSERT INTO paths VALUES ('C:\\')" {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("SET"), nil
}

func (c *scriptedConn) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	c.record(sql)
	if err := c.execErr[sql]; err != nil {
		return nil, err
	}
	return &tableRows{columns: c.columns[sql], data: c.rows[sql], pos: -1}, nil
}

func (c *scriptedConn) Release() {
	c.mu.Lock()
	c.released++
	c.mu.Unlock()
}

func (c *scriptedConn) statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.log))
	copy(out, c.log)
	c.log = nil
	return out
}

// tableRows serves fixed rows through pgx.Rows.
type tableRows struct {
	columns []string
	data    []map[string]interface{}
	pos     int
}

func (r *tableRows) Close()                        {}
func (r *tableRows) Err() error                    { return nil }
func (r *tableRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *tableRows) Scan(...any) error             { return errors.New("not supported") }
func (r *tableRows) RawValues() [][]byte           { return nil }
func (r *tableRows) Conn() *pgx.Conn               { return nil }

func (r *tableRows) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fields[i] = pgconn.FieldDescription{Name: c}
	}
	return fields
}

func (r *tableRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *tableRows) Values() ([]any, error) {
	values := make([]any, len(r.columns))
	for i, c := range r.columns {
		values[i] = r.data[r.pos][c]
	}
	return values, nil
}

func newScriptedSession(conn *scriptedConn) *Session {
	return &Session{
		connected: 1,
		acquireConn: func(context.Context) (pooledConn, error) {
			return conn, nil
		},
	}
}

func TestExecuteSchemaSwitchCarriesOver(t *testing.T) {
	conn := &scriptedConn{
		columns: map[string][]string{"SELECT * FROM t": {"id"}},
		rows:    map[string][]map[string]interface{}{"SELECT * FROM t": {{"id": int64(1)}, {"id": int64(2)}}},
	}
	s := newScriptedSession(conn)
	ctx := context.Background()

	result, err := s.Execute(ctx, "CREATE SCHEMA s; SET search_path TO s; CREATE TABLE t (id int); SELECT * FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "s", s.CurrentSchema())
	assert.Equal(t, []string{
		"CREATE SCHEMA s",
		"SET search_path TO s",
		"CREATE TABLE t (id int)",
		"SELECT * FROM t",
	}, conn.statements())

	_, err = s.Execute(ctx, "SELECT * FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"SET search_path TO s", "SELECT * FROM t"}, conn.statements())
	assert.Equal(t, 2, conn.released)
}

func TestExecuteUseSelectsSchema(t *testing.T) {
	conn := &scriptedConn{}
	s := newScriptedSession(conn)

	result, err := s.Execute(context.Background(), "USE sales", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"schema": "sales"}, result.Data)
	assert.Equal(t, "sales", s.CurrentSchema())
	assert.Equal(t, []string{`SET search_path TO "sales"`}, conn.statements())
}

func TestExecuteFailedSchemaSwitchKeepsSchema(t *testing.T) {
	conn := &scriptedConn{execErr: map[string]error{
		`SET search_path TO "missing"`: &pgconn.PgError{Code: "42601", Message: "syntax error"},
	}}
	s := newScriptedSession(conn)
	s.setSearchPath("app", "app")

	_, err := s.Execute(context.Background(), "USE missing; SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, adapter.KindQuery, adapter.Classify(err))
	assert.Equal(t, "app", s.CurrentSchema())
}

func TestExecuteInvalidSchemaIsNoDatabaseSelected(t *testing.T) {
	conn := &scriptedConn{execErr: map[string]error{
		"CREATE TABLE t (id int)": &pgconn.PgError{Code: "3F000", Message: "no schema has been selected to create in"},
	}}
	s := newScriptedSession(conn)

	_, err := s.Execute(context.Background(), "SET search_path TO nowhere; CREATE TABLE t (id int)", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrNoDatabaseSelected))
	assert.Equal(t, adapter.KindNoDatabaseSelected, adapter.Classify(err))

	env := adapter.Fail(err)
	assert.Equal(t, "CREATE TABLE t (id int)", env.SQL)
	assert.Equal(t, adapter.NoDatabaseSelectedSuggestion, env.Suggestion)
}

func TestExecuteBackslashIsLiteral(t *testing.T) {
	conn := &scriptedConn{
		columns: map[string][]string{"SELECT count(*) FROM paths": {"count"}},
		rows:    map[string][]map[string]interface{}{"SELECT count(*) FROM paths": {{"count": int64(1)}}},
	}
	s := newScriptedSession(conn)

	result, err := s.Execute(context.Background(), `INSERT INTO paths VALUES ('C:\'); SELECT count(*) FROM paths`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"count"}, result.Columns)
	assert.Equal(t, []map[string]interface{}{{"count": int64(1)}}, result.Data)
	assert.Equal(t, []string{`INSERT INTO paths VALUES ('C:\')`, "SELECT count(*) FROM paths"}, conn.statements())
}

func TestExecuteEmptyScript(t *testing.T) {
	s := newScriptedSession(&scriptedConn{})
	_, err := s.Execute(context.Background(), " ; -- nothing\n", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrValidation))
}
