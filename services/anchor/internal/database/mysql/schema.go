package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// ListSchemas returns the databases visible to the user.
func (s *Session) ListSchemas(ctx context.Context) ([]string, error) {
	const query = "SHOW DATABASES"
	return s.queryStrings(ctx, query)
}

// ListTables returns the base tables and views of schema, or of the active
// database when schema is empty.
func (s *Session) ListTables(ctx context.Context, schema string) ([]string, error) {
	const query = `SELECT TABLE_NAME FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME`

	schema, err := s.resolveSchema(schema, query)
	if err != nil {
		return nil, err
	}
	return s.queryStrings(ctx, query, schema)
}

func (s *Session) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("query", query, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError("query", query, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("query", query, err)
	}
	return names, nil
}

// GetStructure describes columns, indexes and foreign keys of a table.
func (s *Session) GetStructure(ctx context.Context, schema, table string) (*adapter.Structure, error) {
	schema, err := s.resolveSchema(schema, "")
	if err != nil {
		return nil, err
	}

	columns, err := s.columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, adapter.NewNotFoundError(dbcapabilities.MySQL, "table", schema+"."+table)
	}

	indexes, err := s.indexes(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	foreignKeys, err := s.foreignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	return &adapter.Structure{
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: foreignKeys,
	}, nil
}

func (s *Session) columns(ctx context.Context, schema, table string) ([]adapter.Column, error) {
	const query = `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY, EXTRA, COLUMN_COMMENT
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

	rows, err := s.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, mapError("structure", query, err)
	}
	defer rows.Close()

	var columns []adapter.Column
	for rows.Next() {
		var (
			name, columnType, nullable, key, extra, comment string
			defaultValue                                    sql.NullString
		)
		if err := rows.Scan(&name, &columnType, &nullable, &defaultValue, &key, &extra, &comment); err != nil {
			return nil, mapError("structure", query, err)
		}

		col := adapter.NewColumn(name, columnType)
		col.Nullable = nullable == "YES"
		col.PrimaryKey = key == "PRI"
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		col.Comment = comment
		if defaultValue.Valid {
			col.Default = adapter.GetStringPtr(defaultValue.String)
		}
		columns = append(columns, col)
	}
	return columns, mapError("structure", query, rows.Err())
}

func (s *Session) indexes(ctx context.Context, schema, table string) ([]adapter.Index, error) {
	const query = `SELECT INDEX_NAME, COLUMN_NAME, NON_UNIQUE
FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY INDEX_NAME, SEQ_IN_INDEX`

	rows, err := s.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, mapError("structure", query, err)
	}
	defer rows.Close()

	var indexes []adapter.Index
	byName := make(map[string]int)
	for rows.Next() {
		var (
			name      string
			column    sql.NullString
			nonUnique int
		)
		if err := rows.Scan(&name, &column, &nonUnique); err != nil {
			return nil, mapError("structure", query, err)
		}

		i, ok := byName[name]
		if !ok {
			indexes = append(indexes, adapter.Index{
				Name:    name,
				Unique:  nonUnique == 0,
				Primary: name == "PRIMARY",
			})
			i = len(indexes) - 1
			byName[name] = i
		}
		// functional index parts have no column name
		if column.Valid {
			indexes[i].Columns = append(indexes[i].Columns, column.String)
		}
	}
	return indexes, mapError("structure", query, rows.Err())
}

func (s *Session) foreignKeys(ctx context.Context, schema, table string) ([]adapter.ForeignKey, error) {
	const query = `SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME, k.REFERENCED_TABLE_SCHEMA, k.REFERENCED_TABLE_NAME,
       k.REFERENCED_COLUMN_NAME, r.UPDATE_RULE, r.DELETE_RULE
FROM information_schema.KEY_COLUMN_USAGE k
JOIN information_schema.REFERENTIAL_CONSTRAINTS r
  ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME
WHERE k.TABLE_SCHEMA = ? AND k.TABLE_NAME = ? AND k.REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY k.CONSTRAINT_NAME, k.ORDINAL_POSITION`

	rows, err := s.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, mapError("structure", query, err)
	}
	defer rows.Close()

	var fks []adapter.ForeignKey
	byName := make(map[string]int)
	for rows.Next() {
		var name, column, refSchema, refTable, refColumn, onUpdate, onDelete string
		if err := rows.Scan(&name, &column, &refSchema, &refTable, &refColumn, &onUpdate, &onDelete); err != nil {
			return nil, mapError("structure", query, err)
		}

		i, ok := byName[name]
		if !ok {
			fks = append(fks, adapter.ForeignKey{
				Name:             name,
				ReferencedSchema: refSchema,
				ReferencedTable:  refTable,
				OnUpdate:         onUpdate,
				OnDelete:         onDelete,
			})
			i = len(fks) - 1
			byName[name] = i
		}
		fks[i].Columns = append(fks[i].Columns, column)
		fks[i].ReferencedColumns = append(fks[i].ReferencedColumns, refColumn)
	}
	return fks, mapError("structure", query, rows.Err())
}
