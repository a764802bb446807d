package mysql

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// errNoDatabaseSelected is ER_NO_DB_ERROR.
const errNoDatabaseSelected = 1046

// errUnknownDatabase is ER_BAD_DB_ERROR.
const errUnknownDatabase = 1049

func isUnknownDatabase(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errUnknownDatabase
}

// isConnectionLost reports whether err means the pool can no longer reach
// the server.
func isConnectionLost(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if adapter.IsNetworkError(err) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}

// mapError converts a driver error raised while running statement.
func mapError(operation, statement string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionLost(err) {
		return adapter.NewConnectionLostError(dbcapabilities.MySQL, operation, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errNoDatabaseSelected {
		return adapter.NewNoDatabaseSelectedError(dbcapabilities.MySQL, statement, err)
	}

	qe := adapter.NewQueryError(dbcapabilities.MySQL, statement, err)
	qe.Operation = operation
	if myErr != nil {
		qe = qe.WithContext("code", myErr.Number)
	}
	return qe
}
