package mysql

import (
	"context"
	"fmt"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

// whereClause renders the caller supplied filter expression.
func whereClause(filter string) string {
	if filter == "" {
		return ""
	}
	return " WHERE " + filter
}

// Paginate returns one page of a table. Filter is a SQL boolean expression.
func (s *Session) Paginate(ctx context.Context, req adapter.PageRequest) (*adapter.Page, error) {
	req = req.Normalize()
	schema, err := s.resolveSchema(req.Schema, "")
	if err != nil {
		return nil, err
	}
	table := qualifiedTable(schema, req.Table)
	where := whereClause(req.Filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, mapError("paginate", countQuery, err)
	}

	query := fmt.Sprintf("SELECT * FROM %s%s", table, where)
	if column, desc := req.Order(); column != "" {
		query += " ORDER BY " + QuoteIdentifier(column)
		if desc {
			query += " DESC"
		}
	}
	query += " LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, req.PageSize, req.Offset())
	if err != nil {
		return nil, mapError("paginate", query, err)
	}
	defer rows.Close()

	columns, data, err := scanRows(rows)
	if err != nil {
		return nil, mapError("paginate", query, err)
	}
	return adapter.NewPage(req, columns, data, total), nil
}

// ExportAll renders every row of a table as JSON or CSV.
func (s *Session) ExportAll(ctx context.Context, schema, table string, format adapter.ExportFormat) (string, error) {
	schema, err := s.resolveSchema(schema, "")
	if err != nil {
		return "", err
	}

	query := "SELECT * FROM " + qualifiedTable(schema, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return "", mapError("export", query, err)
	}
	defer rows.Close()

	columns, data, err := scanRows(rows)
	if err != nil {
		return "", mapError("export", query, err)
	}
	return adapter.EncodeRows(columns, data, format)
}
