package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
	"github.com/redbco/redb-anchor/pkg/logger"
)

// ConnectionInfo describes a live registry entry. Config has its secrets
// redacted.
type ConnectionInfo struct {
	ID        string                      `json:"id" yaml:"id"`
	Type      dbcapabilities.DatabaseType `json:"type" yaml:"type"`
	Config    adapter.ConnectionConfig    `json:"config" yaml:"config"`
	CreatedAt time.Time                   `json:"createdAt" yaml:"createdAt"`
}

type entry struct {
	id        string
	dbType    dbcapabilities.DatabaseType
	session   adapter.Session
	config    adapter.ConnectionConfig
	createdAt time.Time
}

func (e *entry) info() ConnectionInfo {
	return ConnectionInfo{
		ID:        e.id,
		Type:      e.dbType,
		Config:    e.config.Redacted(),
		CreatedAt: e.createdAt,
	}
}

func (e *entry) logContext() DatabaseLogContext {
	return DatabaseLogContext{
		DatabaseType: string(e.dbType),
		ConnectionID: e.id,
		Host:         e.config.HostOrURLHost(),
		Port:         e.config.Port,
		Target:       e.config.Target(),
	}
}

// Registry owns every live backend session of the process, keyed by a
// generated connection id. It never removes an entry on its own: a dead
// session stays registered until a caller disconnects it.
type Registry struct {
	adapters       *adapter.Registry
	logger         *logger.Logger
	dbLogger       *DatabaseLogger
	connectTimeout time.Duration
	now            func() time.Time

	mu          sync.RWMutex
	connections map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithConnectTimeout bounds the time spent opening a session. Zero means
// no bound beyond the driver's own.
func WithConnectTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.connectTimeout = d
	}
}

// NewRegistry creates a registry that opens sessions through adapters.
func NewRegistry(adapters *adapter.Registry, logger *logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		adapters:    adapters,
		logger:      logger,
		dbLogger:    NewDatabaseLogger(logger),
		now:         time.Now,
		connections: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// safeLog safely logs a message if logger is available
func (r *Registry) safeLog(level string, format string, args ...interface{}) {
	if r.logger == nil {
		return
	}
	switch level {
	case "info":
		r.logger.Info(format, args...)
	case "error":
		r.logger.Error(format, args...)
	case "warn":
		r.logger.Warn(format, args...)
	case "debug":
		r.logger.Debug(format, args...)
	}
}

// Name implements service.Service.
func (r *Registry) Name() string {
	return "connection-registry"
}

// Initialize implements service.Service.
func (r *Registry) Initialize(ctx context.Context) error {
	if r.adapters == nil {
		return fmt.Errorf("connection registry has no adapter registry")
	}
	types := r.adapters.ListRegistered()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	r.safeLog("debug", "Connection registry ready with adapters: %s", strings.Join(names, ", "))
	return nil
}

// newConnectionID builds <type>_<host>_<target>_<unixmillis>_<suffix>. The
// random suffix keeps ids unique for rapid connects to the same target.
func (r *Registry) newConnectionID(dbType dbcapabilities.DatabaseType, cfg adapter.ConnectionConfig) string {
	host := cfg.HostOrURLHost()
	if host == "" {
		host = "unknown"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s_%d_%s", dbType, host, cfg.Target(), r.now().UnixMilli(), suffix)
}

func (r *Registry) open(ctx context.Context, dbType dbcapabilities.DatabaseType, cfg adapter.ConnectionConfig) (adapter.Session, error) {
	if r.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.connectTimeout)
		defer cancel()
	}
	return r.adapters.Connect(ctx, dbType, cfg)
}

// Connect opens a session and registers it. The returned id identifies the
// session in every later call.
func (r *Registry) Connect(ctx context.Context, dbType dbcapabilities.DatabaseType, cfg adapter.ConnectionConfig) (string, error) {
	e := &entry{
		id:     r.newConnectionID(dbType, cfg),
		dbType: dbType,
		config: cfg,
	}
	logCtx := e.logContext()
	r.dbLogger.LogConnectionAttempt(logCtx)

	session, err := r.open(ctx, dbType, cfg)
	if err != nil {
		r.dbLogger.LogConnectionFailure(logCtx, err)
		return "", err
	}
	e.session = session
	e.createdAt = r.now()

	r.mu.Lock()
	r.connections[e.id] = e
	r.mu.Unlock()

	r.dbLogger.LogConnectionSuccess(logCtx)
	return e.id, nil
}

// Disconnect closes and removes a session. A second call for the same id
// returns a not-found error. The entry is removed even when closing fails.
func (r *Registry) Disconnect(id string) error {
	r.mu.Lock()
	e, ok := r.connections[id]
	if ok {
		delete(r.connections, id)
	}
	r.mu.Unlock()

	if !ok {
		return adapter.NewNotFoundError("", "connection", id)
	}

	err := e.session.Close()
	r.dbLogger.LogDisconnection(e.logContext(), err)
	if err != nil {
		return adapter.WrapError(e.dbType, "disconnect", err)
	}
	return nil
}

// Session returns the live session registered under id.
func (r *Registry) Session(id string) (adapter.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.connections[id]
	if !ok {
		return nil, adapter.NewNotFoundError("", "connection", id)
	}
	return e.session, nil
}

// Get returns the description of the entry registered under id.
func (r *Registry) Get(id string) (ConnectionInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.connections[id]
	if !ok {
		return ConnectionInfo{}, adapter.NewNotFoundError("", "connection", id)
	}
	return e.info(), nil
}

// List returns every live entry, oldest first.
func (r *Registry) List() []ConnectionInfo {
	r.mu.RLock()
	infos := make([]ConnectionInfo, 0, len(r.connections))
	for _, e := range r.connections {
		infos = append(infos, e.info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Count returns the number of live entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// TestConnection pings a registered session and returns the round-trip
// time. A failed ping leaves the entry in place.
func (r *Registry) TestConnection(ctx context.Context, id string) (time.Duration, error) {
	r.mu.RLock()
	e, ok := r.connections[id]
	r.mu.RUnlock()
	if !ok {
		return 0, adapter.NewNotFoundError("", "connection", id)
	}

	start := time.Now()
	err := e.session.Ping(ctx)
	elapsed := time.Since(start)
	r.dbLogger.LogHealthCheck(e.logContext(), err)
	if err != nil {
		return elapsed, adapter.WrapError(e.dbType, "ping", err)
	}
	return elapsed, nil
}

// TestNewConnection opens a throwaway session to check reachability and
// closes it again. Close errors are logged and never replace the result.
func (r *Registry) TestNewConnection(ctx context.Context, dbType dbcapabilities.DatabaseType, cfg adapter.ConnectionConfig) (time.Duration, error) {
	logCtx := DatabaseLogContext{
		DatabaseType: string(dbType),
		Host:         cfg.HostOrURLHost(),
		Port:         cfg.Port,
		Target:       cfg.Target(),
		Operation:    "test",
	}

	start := time.Now()
	session, err := r.open(ctx, dbType, cfg)
	if err != nil {
		r.dbLogger.LogConnectionFailure(logCtx, err)
		return time.Since(start), err
	}
	defer func() {
		r.dbLogger.LogCleanupFailure(logCtx, session.Close())
	}()

	if err := session.Ping(ctx); err != nil {
		return time.Since(start), adapter.WrapError(dbType, "ping", err)
	}
	return time.Since(start), nil
}

// Shutdown implements service.Service. Every session is closed in parallel
// and the table is emptied.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.connections))
	for _, e := range r.connections {
		entries = append(entries, e)
	}
	r.connections = make(map[string]*entry)
	r.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}
	r.safeLog("info", "Closing %d connection(s)", len(entries))

	g, _ := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			err := e.session.Close()
			r.dbLogger.LogDisconnection(e.logContext(), err)
			if err != nil {
				return fmt.Errorf("failed to close %s: %w", e.id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
