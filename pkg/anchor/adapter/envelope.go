package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Meta carries timing and row accounting of a successful operation.
type Meta struct {
	ExecutionTimeMs int64  `json:"executionTimeMs"`
	AffectedRows    *int64 `json:"affectedRows,omitempty"`
	RowCount        *int   `json:"rowCount,omitempty"`
}

// Envelope is the uniform result of every adapter operation. Exactly one of
// Data and Error is meaningful, as selected by Success. SQL and Suggestion
// are optional diagnostics of relational failures.
type Envelope struct {
	Success    bool
	Data       interface{}
	Meta       *Meta
	Error      string
	SQL        string
	Suggestion string

	// Err keeps the typed error for callers in process; it is never serialized.
	Err error
}

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type failureEnvelope struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	SQL        string `json:"sql,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// MarshalJSON writes data/meta on success and error/sql/suggestion on failure.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Success {
		return json.Marshal(successEnvelope{Success: true, Data: e.Data, Meta: e.Meta})
	}
	return json.Marshal(failureEnvelope{Error: e.Error, SQL: e.SQL, Suggestion: e.Suggestion})
}

// Kind returns the error kind of a failed envelope.
func (e Envelope) Kind() ErrorKind {
	if e.Success {
		return KindNone
	}
	return Classify(e.Err)
}

// Succeed builds a successful envelope.
func Succeed(data interface{}, meta *Meta) Envelope {
	return Envelope{Success: true, Data: data, Meta: meta}
}

// Fail builds a failed envelope from err, lifting SQL and Suggestion out of a
// DatabaseError.
func Fail(err error) Envelope {
	if err == nil {
		err = errors.New("unknown error")
	}
	env := Envelope{Error: err.Error(), Err: err}

	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		env.Error = dbErr.Message()
		env.SQL = dbErr.SQL
		env.Suggestion = dbErr.Suggestion
	}
	return env
}

// Operator renders Session calls as Envelopes, timing each one.
type Operator struct {
	session Session
	now     func() time.Time
}

// NewOperator wraps a session.
func NewOperator(session Session) *Operator {
	return &Operator{session: session, now: time.Now}
}

func (o *Operator) run(fn func() (interface{}, *Meta, error)) Envelope {
	if o.session == nil || !o.session.IsConnected() {
		return Fail(ErrConnectionClosed)
	}

	start := o.now()
	data, meta, err := fn()
	if err != nil {
		return Fail(err)
	}
	if meta == nil {
		meta = &Meta{}
	}
	meta.ExecutionTimeMs = o.now().Sub(start).Milliseconds()
	return Succeed(data, meta)
}

func countMeta(n int) *Meta {
	return &Meta{RowCount: &n}
}

// ListSchemas implements the listSchemas operation.
func (o *Operator) ListSchemas(ctx context.Context) Envelope {
	return o.run(func() (interface{}, *Meta, error) {
		schemas, err := o.session.ListSchemas(ctx)
		if schemas == nil {
			schemas = []string{}
		}
		return schemas, countMeta(len(schemas)), err
	})
}

// ListTables implements the listTables operation.
func (o *Operator) ListTables(ctx context.Context, schema string) Envelope {
	return o.run(func() (interface{}, *Meta, error) {
		tables, err := o.session.ListTables(ctx, schema)
		if tables == nil {
			tables = []string{}
		}
		return tables, countMeta(len(tables)), err
	})
}

// GetStructure implements the getStructure operation.
func (o *Operator) GetStructure(ctx context.Context, schema, table string) Envelope {
	return o.run(func() (interface{}, *Meta, error) {
		structure, err := o.session.GetStructure(ctx, schema, table)
		if err != nil {
			return nil, nil, err
		}
		if structure == nil {
			structure = EmptyStructure()
		}
		structure.normalize()
		return structure, countMeta(len(structure.Columns)), nil
	})
}

// Execute implements the execute operation.
func (o *Operator) Execute(ctx context.Context, statement string, params []interface{}) Envelope {
	return o.run(func() (interface{}, *Meta, error) {
		result, err := o.session.Execute(ctx, statement, params)
		if err != nil {
			return nil, nil, err
		}
		rowCount := result.RowCount
		affected := result.AffectedRows
		return result.Data, &Meta{RowCount: &rowCount, AffectedRows: &affected}, nil
	})
}

// Paginate implements the paginate operation.
func (o *Operator) Paginate(ctx context.Context, req PageRequest) Envelope {
	return o.run(func() (interface{}, *Meta, error) {
		page, err := o.session.Paginate(ctx, req.Normalize())
		if err != nil {
			return nil, nil, err
		}
		return page, countMeta(len(page.Rows)), nil
	})
}

// ExportAll implements the exportAll operation.
func (o *Operator) ExportAll(ctx context.Context, schema, table string, format ExportFormat) Envelope {
	return o.run(func() (interface{}, *Meta, error) {
		if err := format.Validate(); err != nil {
			return nil, nil, err
		}
		out, err := o.session.ExportAll(ctx, schema, table, format)
		return out, nil, err
	})
}
