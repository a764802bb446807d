package adapter

import (
	"context"

	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Adapter is implemented by every engine package. It is the factory for
// sessions of one database type and is looked up by type in a Registry.
type Adapter interface {
	// Type returns the database type this adapter handles.
	Type() dbcapabilities.DatabaseType

	// Capabilities returns the capability metadata for this engine.
	Capabilities() dbcapabilities.Capability

	// Connect opens a native session. Implementations must release every
	// partially opened resource before returning an error.
	Connect(ctx context.Context, config ConnectionConfig) (Session, error)
}

// Session is one live native session wrapped behind the uniform contract.
// Methods return Go values and typed errors; Operator renders them as Envelopes.
type Session interface {
	Type() dbcapabilities.DatabaseType

	// IsConnected reports whether Close has not been called yet. It does not
	// contact the server; use Ping for that.
	IsConnected() bool

	// Ping issues a cheap liveness check.
	Ping(ctx context.Context) error

	// Close releases the native session.
	Close() error

	// ListSchemas returns databases (relational-A, document), schemas
	// (relational-B) or logical databases (key-value).
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTables returns the tables or collections of schema, or the keys of a
	// key-value logical database.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// GetStructure describes columns, indexes and foreign keys. Engines without
	// a declared structure return an empty Structure.
	GetStructure(ctx context.Context, schema, table string) (*Structure, error)

	// Execute runs a statement, a script, or a newline-delimited command batch
	// depending on the engine.
	Execute(ctx context.Context, statement string, params []interface{}) (*Result, error)

	// Paginate returns one page of rows of a table.
	Paginate(ctx context.Context, req PageRequest) (*Page, error)

	// ExportAll renders every row of a table in the given format.
	ExportAll(ctx context.Context, schema, table string, format ExportFormat) (string, error)

	// Raw returns the underlying driver handle.
	Raw() interface{}
}

// Result is the outcome of Session.Execute.
type Result struct {
	// Data holds []map[string]interface{} rows, []CommandResult for batches,
	// or a scalar/document for single commands.
	Data         interface{}
	Columns      []string
	RowCount     int
	AffectedRows int64
}

// CommandResult is the outcome of one command of a batch. A failed command
// does not abort the batch.
type CommandResult struct {
	Command string      `json:"command"`
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RowsResult builds a Result for a row-producing statement.
func RowsResult(columns []string, rows []map[string]interface{}) *Result {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return &Result{
		Data:     rows,
		Columns:  columns,
		RowCount: len(rows),
	}
}

// ExecResult builds a Result for a statement that only reports affected rows.
func ExecResult(affected int64) *Result {
	return &Result{
		Data:         map[string]interface{}{"affectedRows": affected},
		AffectedRows: affected,
	}
}
