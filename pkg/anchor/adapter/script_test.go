package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	mysqlRules := SplitOptions{BackslashEscapes: true}
	postgresRules := SplitOptions{DollarQuotes: true}

	tests := []struct {
		name   string
		opts   SplitOptions
		script string
		want   []string
	}{
		{
			name:   "single statement without terminator",
			script: "SELECT 1",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "use then select",
			script: "USE shop;\nSELECT * FROM orders;",
			want:   []string{"USE shop", "SELECT * FROM orders"},
		},
		{
			name:   "semicolon inside string literal",
			script: "INSERT INTO t VALUES ('a;b'); SELECT 2",
			want:   []string{"INSERT INTO t VALUES ('a;b')", "SELECT 2"},
		},
		{
			name:   "doubled quotes",
			script: `SELECT 'it''s;', "x"";y"; SELECT 3`,
			want:   []string{`SELECT 'it''s;', "x"";y"`, "SELECT 3"},
		},
		{
			name:   "mysql backslash escapes in both quote styles",
			opts:   mysqlRules,
			script: `SELECT 'it\'s;', "x\";y"; SELECT 3`,
			want:   []string{`SELECT 'it\'s;', "x\";y"`, "SELECT 3"},
		},
		{
			name:   "postgres backslash is literal in standard strings",
			opts:   postgresRules,
			script: `INSERT INTO paths VALUES ('C:\'); SELECT count(*) FROM paths`,
			want:   []string{`INSERT INTO paths VALUES ('C:\')`, "SELECT count(*) FROM paths"},
		},
		{
			name:   "postgres escape string honours backslash",
			opts:   postgresRules,
			script: `SELECT E'it\'s; ok'; SELECT 2`,
			want:   []string{`SELECT E'it\'s; ok'`, "SELECT 2"},
		},
		{
			name:   "type name ending in e is not an escape prefix",
			opts:   postgresRules,
			script: `SELECT line'C:\'; SELECT 2`,
			want:   []string{`SELECT line'C:\'`, "SELECT 2"},
		},
		{
			name:   "postgres double quotes are identifiers",
			opts:   postgresRules,
			script: `SELECT "dir\"; SELECT 2`,
			want:   []string{`SELECT "dir\"`, "SELECT 2"},
		},
		{
			name:   "backtick identifier",
			opts:   mysqlRules,
			script: "SELECT `a;b` FROM t;",
			want:   []string{"SELECT `a;b` FROM t"},
		},
		{
			name:   "comments dropped",
			script: "-- leading; comment\nSELECT 1; /* block; */ SELECT 2;",
			want:   []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:   "dollar quoted body",
			opts:   postgresRules,
			script: "CREATE FUNCTION f() RETURNS int AS $$ BEGIN RETURN 1; END; $$ LANGUAGE plpgsql; SELECT f()",
			want: []string{
				"CREATE FUNCTION f() RETURNS int AS $$ BEGIN RETURN 1; END; $$ LANGUAGE plpgsql",
				"SELECT f()",
			},
		},
		{
			name:   "dollar signs are plain characters without dollar quoting",
			opts:   mysqlRules,
			script: "SELECT $a$; SELECT 2",
			want:   []string{"SELECT $a$", "SELECT 2"},
		},
		{
			name:   "positional placeholders are not dollar quotes",
			opts:   postgresRules,
			script: "SELECT $1; SELECT $2",
			want:   []string{"SELECT $1", "SELECT $2"},
		},
		{
			name:   "blank statements skipped",
			script: " ; ;\n ;",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.script, tt.opts))
		})
	}
}

func TestIsRowProducing(t *testing.T) {
	tests := []struct {
		stmt string
		want bool
	}{
		{"SELECT * FROM t", true},
		{"  (select 1)", true},
		{"show tables", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"INSERT INTO t (a) VALUES (1)", false},
		{"INSERT INTO t (a) VALUES (1) RETURNING id", true},
		{"UPDATE t SET returning_flag = 1", false},
		{"USE shop", false},
		{"DELETE FROM t", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRowProducing(tt.stmt), tt.stmt)
	}
}

func TestParseUse(t *testing.T) {
	tests := []struct {
		stmt   string
		want   string
		wantOK bool
	}{
		{"USE shop", "shop", true},
		{"use `my shop`", "my shop", true},
		{`USE "analytics"`, "analytics", true},
		{"USE", "", false},
		{"USER_DEFINED()", "", false},
		{"SELECT 1", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseUse(tt.stmt)
		assert.Equal(t, tt.wantOK, ok, tt.stmt)
		assert.Equal(t, tt.want, got, tt.stmt)
	}
}
