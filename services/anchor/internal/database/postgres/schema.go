package postgres

import (
	"context"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// ListSchemas returns the schemas of the connected database, excluding the
// catalog and toast schemas.
func (s *Session) ListSchemas(ctx context.Context) ([]string, error) {
	const query = `SELECT nspname FROM pg_catalog.pg_namespace
WHERE nspname NOT LIKE 'pg_toast%' AND nspname NOT LIKE 'pg_temp_%'
ORDER BY nspname`
	return s.queryStrings(ctx, query)
}

// ListTables returns tables, views and materialized views of schema.
func (s *Session) ListTables(ctx context.Context, schema string) ([]string, error) {
	const query = `SELECT c.relname FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm', 'f')
ORDER BY c.relname`
	return s.queryStrings(ctx, query, s.resolveSchema(schema))
}

func (s *Session) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
	return names, mapError("query", query, rows.Err())
}

// GetStructure describes columns, indexes and foreign keys of a table.
func (s *Session) GetStructure(ctx context.Context, schema, table string) (*adapter.Structure, error) {
	schema = s.resolveSchema(schema)

	columns, err := s.columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, adapter.NewNotFoundError(dbcapabilities.PostgreSQL, "table", schema+"."+table)
	}

	indexes, err := s.indexes(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	foreignKeys, err := s.foreignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	pk := make(map[string]bool)
	for _, idx := range indexes {
		if idx.Primary {
			for _, c := range idx.Columns {
				pk[c] = true
			}
		}
	}
	for i := range columns {
		columns[i].PrimaryKey = pk[columns[i].Name]
	}

	return &adapter.Structure{
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: foreignKeys,
	}, nil
}

func (s *Session) columns(ctx context.Context, schema, table string) ([]adapter.Column, error) {
	const query = `SELECT a.attname,
       pg_catalog.format_type(a.atttypid, a.atttypmod),
       NOT a.attnotnull,
       pg_catalog.pg_get_expr(d.adbin, d.adrelid),
       COALESCE(pg_catalog.col_description(a.attrelid, a.attnum), ''),
       a.attidentity <> '' OR COALESCE(pg_catalog.pg_get_expr(d.adbin, d.adrelid), '') LIKE 'nextval(%'
FROM pg_catalog.pg_attribute a
JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`

	rows, err := s.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, mapError("structure", query, err)
	}
	defer rows.Close()

	var columns []adapter.Column
	for rows.Next() {
		var (
			name, declared, comment string
			nullable, autoIncrement bool
			defaultValue            *string
		)
		if err := rows.Scan(&name, &declared, &nullable, &defaultValue, &comment, &autoIncrement); err != nil {
			return nil, mapError("structure", query, err)
		}
		col := adapter.NewColumn(name, declared)
		col.Nullable = nullable
		col.Default = defaultValue
		col.AutoIncrement = autoIncrement
		col.Comment = comment
		columns = append(columns, col)
	}
	return columns, mapError("structure", query, rows.Err())
}

func (s *Session) indexes(ctx context.Context, schema, table string) ([]adapter.Index, error) {
	const query = `SELECT i.relname, a.attname, ix.indisunique, ix.indisprimary
FROM pg_catalog.pg_index ix
JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
LEFT JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND t.relname = $2
ORDER BY i.relname, k.ord`

	rows, err := s.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, mapError("structure", query, err)
	}
	defer rows.Close()

	var indexes []adapter.Index
	byName := make(map[string]int)
	for rows.Next() {
		var (
			name            string
			column          *string
			unique, primary bool
		)
		if err := rows.Scan(&name, &column, &unique, &primary); err != nil {
			return nil, mapError("structure", query, err)
		}
		i, ok := byName[name]
		if !ok {
			indexes = append(indexes, adapter.Index{Name: name, Unique: unique, Primary: primary})
			i = len(indexes) - 1
			byName[name] = i
		}
		// expression index parts have no column name
		if column != nil {
			indexes[i].Columns = append(indexes[i].Columns, *column)
		}
	}
	return indexes, mapError("structure", query, rows.Err())
}

func (s *Session) foreignKeys(ctx context.Context, schema, table string) ([]adapter.ForeignKey, error) {
	const query = `SELECT con.conname, a.attname, fn.nspname, ft.relname, fa.attname,
       con.confupdtype::text, con.confdeltype::text
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class t ON t.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
JOIN pg_catalog.pg_class ft ON ft.oid = con.confrelid
JOIN pg_catalog.pg_namespace fn ON fn.oid = ft.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
JOIN pg_catalog.pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = k.fattnum
WHERE con.contype = 'f' AND n.nspname = $1 AND t.relname = $2
ORDER BY con.conname, k.ord`

	rows, err := s.pool.Query(ctx, query, schema, table)
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
				OnUpdate:         fkAction(onUpdate),
				OnDelete:         fkAction(onDelete),
			})
			i = len(fks) - 1
			byName[name] = i
		}
		fks[i].Columns = append(fks[i].Columns, column)
		fks[i].ReferencedColumns = append(fks[i].ReferencedColumns, refColumn)
	}
	return fks, mapError("structure", query, rows.Err())
}
