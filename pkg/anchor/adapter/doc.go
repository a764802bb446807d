// Package adapter provides the uniform contract every database engine of the
// anchor service implements.
//
// # Architecture
//
//   - Adapter: opens native sessions for one database type
//   - Session: a live native session exposing listSchemas, listTables,
//     getStructure, execute, paginate and exportAll
//   - Operator: renders Session calls as Envelopes ({success, data, meta} or
//     {success, error, sql, suggestion})
//   - Registry: the factory that maps a database type to its Adapter
//
// # Usage
//
// Engine packages register themselves from init:
//
//	func init() {
//	    adapter.Register(NewAdapter())
//	}
//
// Services receive a registry and open sessions through it:
//
//	session, err := registry.Connect(ctx, dbcapabilities.PostgreSQL, adapter.ConnectionConfig{
//	    Host:     "localhost",
//	    User:     "app",
//	    Password: "secret",
//	    Database: "app",
//	})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	env := adapter.NewOperator(session).Execute(ctx, "SELECT 1", nil)
//
// # Error Handling
//
// Sessions return typed errors that unwrap to sentinels, so callers use
// errors.Is:
//
//   - ErrConnectionFailed: the session could not be opened
//   - ErrConnectionLost: an open session stopped working mid-operation
//   - ErrNoDatabaseSelected: a relational statement ran without an active schema
//   - ErrValidation / ErrInvalidConfiguration: rejected before any I/O
//   - ErrNotFound: unknown connection, data source, table or database
//   - ErrQueryFailed: the server rejected the statement
//
// Classify maps any error onto an ErrorKind.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Sessions wrap driver pools and may be
// used concurrently; ordering of concurrent operations on one session is
// whatever the driver provides.
package adapter
