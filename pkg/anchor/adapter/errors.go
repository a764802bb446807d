package adapter

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Standard adapter errors
var (
	// ErrOperationNotSupported is returned when an operation is not supported by the database
	ErrOperationNotSupported = errors.New("operation not supported by this database")

	// ErrConnectionClosed is returned when attempting to use a closed session
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost is returned when a live session stopped being usable
	// while running an operation. It is distinct from query-level failures.
	ErrConnectionLost = errors.New("connection lost")

	// ErrInvalidConfiguration is returned when the configuration is invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrValidation is returned for rejected input before any I/O happens
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a connection, data source, table or database does not exist
	ErrNotFound = errors.New("not found")

	// ErrTableNotFound is returned when a table/collection is not found
	ErrTableNotFound = errors.New("table not found")

	// ErrDatabaseNotFound is returned when a database is not found
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrAdapterNotFound is returned when an adapter is not registered
	ErrAdapterNotFound = errors.New("adapter not found")

	// ErrInvalidQuery is returned when a statement is malformed before reaching the server
	ErrInvalidQuery = errors.New("invalid query")

	// ErrQueryFailed is returned when the server rejected a statement
	ErrQueryFailed = errors.New("query failed")

	// ErrNoDatabaseSelected is returned when a relational statement needs an
	// active schema and none is selected.
	ErrNoDatabaseSelected = errors.New("no database selected")
)

// NoDatabaseSelectedSuggestion is the guided message attached to ErrNoDatabaseSelected.
const NoDatabaseSelectedSuggestion = "Select a database first, e.g. run `USE <database>;` " +
	"before your statement or set a default database on the data source."

// DatabaseError wraps database-specific errors with additional context.
// Kind is the sentinel the error matches with errors.Is besides its Cause.
// SQL and Suggestion are surfaced as diagnostic fields of failed envelopes.
type DatabaseError struct {
	DatabaseType dbcapabilities.DatabaseType
	Operation    string
	Cause        error
	Kind         error
	SQL          string
	Suggestion   string
	Context      map[string]interface{}
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("[%s] %s: %v (context: %v)", e.DatabaseType, e.Operation, e.Cause, e.Context)
	}
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s: %v", e.DatabaseType, e.Operation, e.Kind)
	}
	if e.Kind != nil && !errors.Is(e.Cause, e.Kind) {
		return fmt.Sprintf("[%s] %s: %v: %v", e.DatabaseType, e.Operation, e.Kind, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %v", e.DatabaseType, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// Is matches the error's Kind.
func (e *DatabaseError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Message returns the text shown to callers: the engine-native message for
// query failures, the guided text for a missing active schema.
func (e *DatabaseError) Message() string {
	switch {
	case e.Kind == ErrNoDatabaseSelected:
		return "No database selected. " + NoDatabaseSelectedSuggestion
	case e.Cause != nil && e.Kind != ErrConnectionLost:
		return e.Cause.Error()
	case e.Cause != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	case e.Kind != nil:
		return e.Kind.Error()
	}
	return e.Error()
}

// NewDatabaseError creates a new DatabaseError.
func NewDatabaseError(dbType dbcapabilities.DatabaseType, operation string, cause error) *DatabaseError {
	return &DatabaseError{
		DatabaseType: dbType,
		Operation:    operation,
		Cause:        cause,
	}
}

// WithContext adds context to a DatabaseError.
func (e *DatabaseError) WithContext(key string, value interface{}) *DatabaseError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSQL records the statement that failed.
func (e *DatabaseError) WithSQL(sql string) *DatabaseError {
	e.SQL = sql
	return e
}

// WithSuggestion records a hint for the caller.
func (e *DatabaseError) WithSuggestion(s string) *DatabaseError {
	e.Suggestion = s
	return e
}

// NewQueryError wraps a server-side statement failure.
func NewQueryError(dbType dbcapabilities.DatabaseType, sql string, cause error) *DatabaseError {
	return &DatabaseError{
		DatabaseType: dbType,
		Operation:    "execute",
		Cause:        cause,
		Kind:         ErrQueryFailed,
		SQL:          sql,
	}
}

// NewNoDatabaseSelectedError builds the guided error for statements run
// without an active schema. cause is the driver error, if any.
func NewNoDatabaseSelectedError(dbType dbcapabilities.DatabaseType, sql string, cause error) *DatabaseError {
	return &DatabaseError{
		DatabaseType: dbType,
		Operation:    "execute",
		Cause:        cause,
		Kind:         ErrNoDatabaseSelected,
		SQL:          sql,
		Suggestion:   NoDatabaseSelectedSuggestion,
	}
}

// NewConnectionLostError marks cause as a dropped session.
func NewConnectionLostError(dbType dbcapabilities.DatabaseType, operation string, cause error) *DatabaseError {
	return &DatabaseError{
		DatabaseType: dbType,
		Operation:    operation,
		Cause:        cause,
		Kind:         ErrConnectionLost,
	}
}

// UnsupportedOperationError is returned when an operation is not supported.
type UnsupportedOperationError struct {
	DatabaseType dbcapabilities.DatabaseType
	Operation    string
	Reason       string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.DatabaseType, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.DatabaseType, e.Operation)
}

// Is checks if the error is ErrOperationNotSupported.
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrOperationNotSupported
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError.
func NewUnsupportedOperationError(dbType dbcapabilities.DatabaseType, operation string, reason string) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		DatabaseType: dbType,
		Operation:    operation,
		Reason:       reason,
	}
}

// ConnectionError is returned when opening a session fails.
type ConnectionError struct {
	DatabaseType dbcapabilities.DatabaseType
	Host         string
	Port         int
	Cause        error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Port == 0 {
		return fmt.Sprintf("failed to connect to %s at %s: %v", e.DatabaseType, e.Host, e.Cause)
	}
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.DatabaseType, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(dbType dbcapabilities.DatabaseType, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		DatabaseType: dbType,
		Host:         host,
		Port:         port,
		Cause:        cause,
	}
}

// ConfigurationError is returned when a configuration is rejected. It is a
// validation error: it never reaches the network.
type ConfigurationError struct {
	DatabaseType dbcapabilities.DatabaseType
	Field        string
	Reason       string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %s: field '%s': %s", e.DatabaseType, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.DatabaseType, e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration or ErrValidation.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration || target == ErrValidation
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(dbType dbcapabilities.DatabaseType, field string, reason string) *ConfigurationError {
	return &ConfigurationError{
		DatabaseType: dbType,
		Field:        field,
		Reason:       reason,
	}
}

// ValidationError is returned for rejected input that is not an engine configuration.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
	}
	return "validation failed: " + e.Reason
}

// Is checks if the error is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError is returned when a resource is not found.
type NotFoundError struct {
	DatabaseType dbcapabilities.DatabaseType
	ResourceType string
	ResourceName string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.DatabaseType == "" {
		return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceName)
	}
	return fmt.Sprintf("%s not found in %s: %s", e.ResourceType, e.DatabaseType, e.ResourceName)
}

// Is matches ErrNotFound, and ErrTableNotFound or ErrDatabaseNotFound by resource type.
func (e *NotFoundError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return true
	case ErrTableNotFound:
		return e.ResourceType == "table" || e.ResourceType == "collection"
	case ErrDatabaseNotFound:
		return e.ResourceType == "database"
	}
	return false
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(dbType dbcapabilities.DatabaseType, resourceType string, resourceName string) *NotFoundError {
	return &NotFoundError{
		DatabaseType: dbType,
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// WrapError wraps an error with database context.
// If the error is already a DatabaseError, it returns it as-is.
func WrapError(dbType dbcapabilities.DatabaseType, operation string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}

	return NewDatabaseError(dbType, operation, err)
}

// ErrorKind is the coarse category of an error as seen by callers.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindValidation         ErrorKind = "validation"
	KindConnection         ErrorKind = "connection"
	KindConnectionLost     ErrorKind = "connection_lost"
	KindNotFound           ErrorKind = "not_found"
	KindNoDatabaseSelected ErrorKind = "no_database_selected"
	KindUnsupported        ErrorKind = "unsupported"
	KindQuery              ErrorKind = "query"
)

// Classify maps an error onto its ErrorKind. Unknown errors are query errors.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConnectionLost), errors.Is(err, ErrConnectionClosed):
		return KindConnectionLost
	case errors.Is(err, ErrNoDatabaseSelected):
		return KindNoDatabaseSelected
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidConfiguration), errors.Is(err, ErrInvalidQuery):
		return KindValidation
	case errors.Is(err, ErrConnectionFailed):
		return KindConnection
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAdapterNotFound):
		return KindNotFound
	case errors.Is(err, ErrOperationNotSupported):
		return KindUnsupported
	default:
		return KindQuery
	}
}

// IsUnsupported checks if an error indicates an unsupported operation.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrOperationNotSupported)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsConnectionLost checks if a live session was dropped.
func IsConnectionLost(err error) bool {
	return errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrConnectionClosed)
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "REDACTED")
	}
	return u.String()
}
