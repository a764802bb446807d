package testhelpers

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// FakeAdapter opens in-memory FakeSessions. Set ConnectErr to make every
// Connect fail.
type FakeAdapter struct {
	DBType     dbcapabilities.DatabaseType
	ConnectErr error
	PingErr    error
	CloseErr   error

	// Fill seeds each new session.
	Fill func(*FakeSession)

	mu       sync.Mutex
	sessions []*FakeSession
	attempts int32
}

// NewFakeAdapter creates a fake for dbType.
func NewFakeAdapter(dbType dbcapabilities.DatabaseType) *FakeAdapter {
	return &FakeAdapter{DBType: dbType}
}

// NewFakeAdapterRegistry returns an adapter registry holding the given fakes.
func NewFakeAdapterRegistry(fakes ...*FakeAdapter) *adapter.Registry {
	r := adapter.NewRegistry()
	for _, f := range fakes {
		r.Register(f)
	}
	return r
}

func (a *FakeAdapter) Type() dbcapabilities.DatabaseType { return a.DBType }

func (a *FakeAdapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(a.DBType)
}

func (a *FakeAdapter) Connect(ctx context.Context, cfg adapter.ConnectionConfig) (adapter.Session, error) {
	atomic.AddInt32(&a.attempts, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.ConnectErr != nil {
		return nil, a.ConnectErr
	}
	s := &FakeSession{
		DBType:   a.DBType,
		Config:   cfg,
		PingErr:  a.PingErr,
		CloseErr: a.CloseErr,
		Tables:   map[string][]string{},
		Rows:     map[string][]map[string]interface{}{},
	}
	if a.Fill != nil {
		a.Fill(s)
	}
	a.mu.Lock()
	a.sessions = append(a.sessions, s)
	a.mu.Unlock()
	return s, nil
}

// Attempts returns how many times Connect was called.
func (a *FakeAdapter) Attempts() int {
	return int(atomic.LoadInt32(&a.attempts))
}

// Sessions returns every session opened so far.
func (a *FakeAdapter) Sessions() []*FakeSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*FakeSession, len(a.sessions))
	copy(out, a.sessions)
	return out
}

// OpenSessions counts sessions not closed yet.
func (a *FakeAdapter) OpenSessions() int {
	n := 0
	for _, s := range a.Sessions() {
		if s.IsConnected() {
			n++
		}
	}
	return n
}

// FakeSession serves schemas, tables and rows from memory.
type FakeSession struct {
	DBType   dbcapabilities.DatabaseType
	Config   adapter.ConnectionConfig
	PingErr  error
	CloseErr error

	Schemas   []string
	Tables    map[string][]string
	Rows      map[string][]map[string]interface{}
	Structure *adapter.Structure

	// ExecuteFn handles Execute; by default statements echo back as one row.
	ExecuteFn func(statement string, params []interface{}) (*adapter.Result, error)

	// Err, when set, is returned by every data operation.
	Err error

	closed int32
}

func (s *FakeSession) Type() dbcapabilities.DatabaseType { return s.DBType }
func (s *FakeSession) IsConnected() bool                 { return atomic.LoadInt32(&s.closed) == 0 }
func (s *FakeSession) Raw() interface{}                  { return nil }

func (s *FakeSession) Ping(context.Context) error {
	if !s.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return s.PingErr
}

func (s *FakeSession) Close() error {
	atomic.StoreInt32(&s.closed, 1)
	return s.CloseErr
}

func (s *FakeSession) ListSchemas(context.Context) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Schemas, nil
}

func (s *FakeSession) ListTables(_ context.Context, schema string) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Tables[schema], nil
}

func (s *FakeSession) GetStructure(context.Context, string, string) (*adapter.Structure, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Structure == nil {
		return adapter.EmptyStructure(), nil
	}
	return s.Structure, nil
}

func (s *FakeSession) Execute(_ context.Context, statement string, params []interface{}) (*adapter.Result, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.ExecuteFn != nil {
		return s.ExecuteFn(statement, params)
	}
	return adapter.RowsResult([]string{"statement"}, []map[string]interface{}{{"statement": statement}}), nil
}

func (s *FakeSession) rows(schema, table string) []map[string]interface{} {
	return s.Rows[schema+"."+table]
}

func (s *FakeSession) Paginate(_ context.Context, req adapter.PageRequest) (*adapter.Page, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	req = req.Normalize()
	all := s.rows(req.Schema, req.Table)
	start := req.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + req.PageSize
	if end > len(all) {
		end = len(all)
	}
	return adapter.NewPage(req, adapter.ColumnsOf(all), all[start:end], int64(len(all))), nil
}

func (s *FakeSession) ExportAll(_ context.Context, schema, table string, format adapter.ExportFormat) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	rows := s.rows(schema, table)
	return adapter.EncodeRows(adapter.ColumnsOf(rows), rows, format)
}
