package postgres

import (
	"context"
	"fmt"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

// Paginate returns one page of a table. Filter is a SQL boolean expression.
func (s *Session) Paginate(ctx context.Context, req adapter.PageRequest) (*adapter.Page, error) {
	req = req.Normalize()
	table := qualifiedTable(s.resolveSchema(req.Schema), req.Table)
	where := ""
	if req.Filter != "" {
		where = " WHERE " + req.Filter
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	var total int64
	if err := s.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, mapError("paginate", countQuery, err)
	}

	query := fmt.Sprintf("SELECT * FROM %s%s", table, where)
	if column, desc := req.Order(); column != "" {
		query += " ORDER BY " + QuoteIdentifier(column)
		if desc {
			query += " DESC"
		}
	}
	query += " LIMIT $1 OFFSET $2"

	rows, err := s.pool.Query(ctx, query, req.PageSize, req.Offset())
	if err != nil {
		return nil, mapError("paginate", query, err)
	}
	columns, data, err := collectRows(rows)
	if err != nil {
		return nil, mapError("paginate", query, err)
	}
	return adapter.NewPage(req, columns, data, total), nil
}

// ExportAll renders every row of a table as JSON or CSV.
func (s *Session) ExportAll(ctx context.Context, schema, table string, format adapter.ExportFormat) (string, error) {
	query := "SELECT * FROM " + qualifiedTable(s.resolveSchema(schema), table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return "", mapError("export", query, err)
	}
	columns, data, err := collectRows(rows)
	if err != nil {
		return "", mapError("export", query, err)
	}
	return adapter.EncodeRows(columns, data, format)
}
