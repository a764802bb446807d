package database

import (
	"fmt"

	"github.com/redbco/redb-anchor/pkg/logger"
)

// DatabaseLogContext provides structured context for database logging
type DatabaseLogContext struct {
	DatabaseType string
	ConnectionID string
	Host         string
	Port         int
	Target       string
	Operation    string
}

// DatabaseLogger provides unified logging for connection lifecycle events.
// Every error passes through the sanitizer before it is written.
type DatabaseLogger struct {
	logger *logger.Logger
}

// NewDatabaseLogger creates a new database logger
func NewDatabaseLogger(logger *logger.Logger) *DatabaseLogger {
	return &DatabaseLogger{
		logger: logger,
	}
}

// LogConnectionAttempt logs when a connection attempt is starting
func (dl *DatabaseLogger) LogConnectionAttempt(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}
	dl.logger.Debug("%s", dl.formatConnectionMessage("Attempting connection", ctx))
}

// LogConnectionSuccess logs successful database connections
func (dl *DatabaseLogger) LogConnectionSuccess(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}
	dl.logger.Info("%s", dl.formatConnectionMessage("Connection established", ctx))
}

// LogConnectionFailure logs connection failures. Unreachable client
// databases are expected, so they are warnings.
func (dl *DatabaseLogger) LogConnectionFailure(ctx DatabaseLogContext, err error) {
	if dl.logger == nil {
		return
	}
	message := dl.formatConnectionMessage("Connection failed", ctx)
	dl.logger.Warn("%s: %s", message, logger.SanitizeError(err))
}

// LogDisconnection logs the outcome of closing a session
func (dl *DatabaseLogger) LogDisconnection(ctx DatabaseLogContext, err error) {
	if dl.logger == nil {
		return
	}
	if err != nil {
		message := dl.formatConnectionMessage("Disconnection failed", ctx)
		dl.logger.Warn("%s: %s", message, logger.SanitizeError(err))
		return
	}
	dl.logger.Info("%s", dl.formatConnectionMessage("Disconnection completed", ctx))
}

// LogHealthCheck logs database health check results
func (dl *DatabaseLogger) LogHealthCheck(ctx DatabaseLogContext, err error) {
	if dl.logger == nil {
		return
	}
	if err == nil {
		dl.logger.Debug("%s", dl.formatConnectionMessage("Health check passed", ctx))
		return
	}
	message := dl.formatConnectionMessage("Health check failed", ctx)
	dl.logger.Warn("%s: %s", message, logger.SanitizeError(err))
}

// LogCleanupFailure logs an error swallowed on a teardown path
func (dl *DatabaseLogger) LogCleanupFailure(ctx DatabaseLogContext, err error) {
	if dl.logger == nil || err == nil {
		return
	}
	message := dl.formatOperationMessage("Cleanup failed", ctx)
	dl.logger.Warn("%s: %s", message, logger.SanitizeError(err))
}

func (dl *DatabaseLogger) formatConnectionMessage(action string, ctx DatabaseLogContext) string {
	base := fmt.Sprintf("[%s] %s", ctx.DatabaseType, action)

	if ctx.ConnectionID != "" {
		base = fmt.Sprintf("%s connection_id=%s", base, ctx.ConnectionID)
	}
	if ctx.Host != "" {
		if ctx.Port > 0 {
			base = fmt.Sprintf("%s host=%s:%d", base, ctx.Host, ctx.Port)
		} else {
			base = fmt.Sprintf("%s host=%s", base, ctx.Host)
		}
	}
	if ctx.Target != "" {
		base = fmt.Sprintf("%s target=%s", base, ctx.Target)
	}
	return base
}

func (dl *DatabaseLogger) formatOperationMessage(action string, ctx DatabaseLogContext) string {
	base := fmt.Sprintf("[%s] %s", ctx.DatabaseType, action)

	if ctx.Operation != "" {
		base = fmt.Sprintf("%s operation=%s", base, ctx.Operation)
	}
	if ctx.ConnectionID != "" {
		base = fmt.Sprintf("%s connection_id=%s", base, ctx.ConnectionID)
	}
	return base
}
