package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// isConnectionLost reports whether err means the client can no longer talk
// to the server. Command errors (WRONGTYPE, ERR ...) are not.
func isConnectionLost(err error) bool {
	return errors.Is(err, redis.ErrClosed) || adapter.IsNetworkError(err)
}

// mapError converts a driver error raised while running command.
func mapError(operation, command string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionLost(err) {
		return adapter.NewConnectionLostError(dbcapabilities.Redis, operation, err)
	}
	qe := adapter.NewQueryError(dbcapabilities.Redis, command, err)
	qe.Operation = operation
	return qe
}
