package postgres

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

// QuoteIdentifier quotes a PostgreSQL identifier using double quotes
func QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// qualifiedTable returns "schema"."table".
func qualifiedTable(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

var searchPathPattern = regexp.MustCompile(`(?is)^\s*set\s+(?:session\s+)?search_path\s*(?:to|=)\s*(.+?)\s*$`)

// parseSearchPath recognizes "SET search_path TO a, b" and returns the
// value list and its first schema. SET LOCAL is transaction scoped and is
// not treated as a schema switch.
func parseSearchPath(statement string) (value string, first string, ok bool) {
	m := searchPathPattern.FindStringSubmatch(statement)
	if m == nil {
		return "", "", false
	}
	value = m[1]
	first = strings.TrimSpace(strings.Split(value, ",")[0])
	first = adapter.UnquoteIdentifier(first)
	return value, first, true
}

// fkAction expands the single letter codes of pg_constraint.
func fkAction(code string) string {
	switch code {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return ""
	}
}
