package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// invalidSchemaName is SQLSTATE 3F000, raised when no schema of the
// search_path exists.
const invalidSchemaName = "3F000"

// isConnectionLost reports whether err means the pool can no longer reach
// the server.
func isConnectionLost(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if adapter.IsNetworkError(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "closed pool") || strings.Contains(msg, "conn closed")
}

// mapError converts a driver error raised while running statement.
func mapError(operation, statement string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionLost(err) {
		return adapter.NewConnectionLostError(dbcapabilities.PostgreSQL, operation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidSchemaName {
		return adapter.NewNoDatabaseSelectedError(dbcapabilities.PostgreSQL, statement, err)
	}

	qe := adapter.NewQueryError(dbcapabilities.PostgreSQL, statement, err)
	qe.Operation = operation
	if pgErr != nil {
		qe = qe.WithContext("sqlstate", pgErr.Code)
		if pgErr.Hint != "" {
			qe = qe.WithSuggestion(pgErr.Hint)
		}
	}
	return qe
}
