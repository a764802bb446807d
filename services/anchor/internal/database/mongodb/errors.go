package mongodb

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// isConnectionLost reports whether err means the client can no longer reach
// the deployment.
func isConnectionLost(err error) bool {
	if errors.Is(err, mongo.ErrClientDisconnected) || mongo.IsNetworkError(err) || adapter.IsNetworkError(err) {
		return true
	}
	return strings.Contains(err.Error(), "server selection error")
}

// mapError converts a driver error raised while running statement.
func mapError(operation, statement string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionLost(err) {
		return adapter.NewConnectionLostError(dbcapabilities.MongoDB, operation, err)
	}
	qe := adapter.NewQueryError(dbcapabilities.MongoDB, statement, err)
	qe.Operation = operation
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		qe = qe.WithContext("code", cmdErr.Code)
	}
	return qe
}
