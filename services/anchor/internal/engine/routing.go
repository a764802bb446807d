package engine

import (
	"context"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/logger"
)

// session returns the live session of a data source, connecting it first
// when it has none or its registry entry is gone.
func (e *Engine) session(ctx context.Context, name string) (adapter.Session, error) {
	def, err := e.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	if def.IsConnected() {
		s, err := e.registry.Session(*def.ConnectionID)
		if err == nil {
			return s, nil
		}
		e.logger.Debugf("Connection of %s is no longer registered, reconnecting", name)
	}

	id, err := e.catalog.ConnectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.registry.Session(id)
}

// Connect opens the live connection of a data source and returns its id.
func (e *Engine) Connect(ctx context.Context, name string) (string, error) {
	if _, err := e.session(ctx, name); err != nil {
		return "", err
	}
	return e.catalog.ConnectionID(name)
}

// Disconnect closes the live connection of a data source.
func (e *Engine) Disconnect(name string) error {
	e.health.Remove(name)
	return e.catalog.DisconnectByName(name)
}

// do runs op against the session of name. A failure that reports a lost
// connection marks the data source disconnected.
func (e *Engine) do(ctx context.Context, name, operation string, op func(context.Context, *adapter.Operator) adapter.Envelope) adapter.Envelope {
	e.TrackOperation()
	defer e.UntrackOperation()

	if e.config.Query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Query.Timeout)
		defer cancel()
	}

	s, err := e.session(ctx, name)
	if err != nil {
		e.IncrementErrors()
		return adapter.Fail(err)
	}

	env := op(ctx, adapter.NewOperator(s))
	if !env.Success {
		e.IncrementErrors()
		e.logger.Debugf("%s on %s failed: %s", operation, name, logger.SanitizeError(env.Err))
		if e.catalog.Reconcile(name, env.Err) {
			e.health.Remove(name)
		}
	}
	return env
}

// ListSchemas lists the schemas, databases or logical databases of name.
func (e *Engine) ListSchemas(ctx context.Context, name string) adapter.Envelope {
	return e.do(ctx, name, "listSchemas", func(ctx context.Context, o *adapter.Operator) adapter.Envelope {
		return o.ListSchemas(ctx)
	})
}

// ListTables lists the tables, collections or keys of schema.
func (e *Engine) ListTables(ctx context.Context, name, schema string) adapter.Envelope {
	return e.do(ctx, name, "listTables", func(ctx context.Context, o *adapter.Operator) adapter.Envelope {
		return o.ListTables(ctx, schema)
	})
}

// Structure describes one table or collection.
func (e *Engine) Structure(ctx context.Context, name, schema, table string) adapter.Envelope {
	return e.do(ctx, name, "getStructure", func(ctx context.Context, o *adapter.Operator) adapter.Envelope {
		return o.GetStructure(ctx, schema, table)
	})
}

// Execute runs a statement, script or command batch.
func (e *Engine) Execute(ctx context.Context, name, statement string, params []interface{}) adapter.Envelope {
	return e.do(ctx, name, "execute", func(ctx context.Context, o *adapter.Operator) adapter.Envelope {
		return o.Execute(ctx, statement, params)
	})
}

// Paginate returns one page of rows. Page sizes follow the paginate
// configuration.
func (e *Engine) Paginate(ctx context.Context, name string, req adapter.PageRequest) adapter.Envelope {
	p := e.config.Paginate
	if req.PageSize < 1 {
		req.PageSize = p.DefaultPageSize
	}
	if p.MaxPageSize > 0 && req.PageSize > p.MaxPageSize {
		req.PageSize = p.MaxPageSize
	}
	return e.do(ctx, name, "paginate", func(ctx context.Context, o *adapter.Operator) adapter.Envelope {
		return o.Paginate(ctx, req)
	})
}

// Export renders a whole table as JSON or CSV.
func (e *Engine) Export(ctx context.Context, name, schema, table string, format adapter.ExportFormat) adapter.Envelope {
	return e.do(ctx, name, "exportAll", func(ctx context.Context, o *adapter.Operator) adapter.Envelope {
		return o.ExportAll(ctx, schema, table, format)
	})
}
