package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/health"
	"github.com/redbco/redb-anchor/pkg/keyring"
	"github.com/redbco/redb-anchor/pkg/logger"
	"github.com/redbco/redb-anchor/pkg/service"
	"github.com/redbco/redb-anchor/services/anchor/internal/catalog"
	"github.com/redbco/redb-anchor/services/anchor/internal/config"
	"github.com/redbco/redb-anchor/services/anchor/internal/database"
)

// Engine owns the connection registry and the data source catalog and
// routes data operations to live sessions by data source name.
type Engine struct {
	config   *config.Config
	logger   *logger.Logger
	registry *database.Registry
	catalog  *catalog.Catalog
	secrets  keyring.Store
	group    *service.Group
	health   *health.Checker

	state struct {
		sync.Mutex
		isRunning         bool
		ongoingOperations int32
	}
	metrics struct {
		requestsProcessed int64
		errors            int64
	}
}

type options struct {
	adapters *adapter.Registry
	store    catalog.Store
	secrets  keyring.Store
}

// Option overrides a default dependency.
type Option func(*options)

// WithAdapters replaces the default adapter registry.
func WithAdapters(r *adapter.Registry) Option {
	return func(o *options) {
		o.adapters = r
	}
}

// WithStore replaces the catalog file store.
func WithStore(s catalog.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithSecrets replaces the keyring.
func WithSecrets(s keyring.Store) Option {
	return func(o *options) {
		o.secrets = s
	}
}

// New wires the engine. Nothing is opened until Start.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.adapters == nil {
		o.adapters = adapter.DefaultRegistry()
	}
	if o.store == nil {
		o.store = catalog.NewFileStore(cfg.Catalog.Path)
	}
	if o.secrets == nil {
		o.secrets = newLazySecrets(cfg)
	}

	e := &Engine{
		config:  cfg,
		logger:  log,
		secrets: o.secrets,
		health:  health.NewChecker(),
	}
	e.registry = database.NewRegistry(o.adapters, log, database.WithConnectTimeout(cfg.Connect.Timeout))
	e.catalog = catalog.New(o.store, e.registry, log, catalog.WithSecrets(o.secrets))
	// The catalog disconnects through the registry, so it stops first.
	e.group = service.NewGroup(log, e.registry, e.catalog)
	return e
}

// Start initializes the registry and loads the catalog.
func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if e.state.isRunning {
		return fmt.Errorf("engine is already running")
	}
	if err := e.group.Start(ctx); err != nil {
		return err
	}
	e.state.isRunning = true
	return nil
}

// Stop disconnects every data source, persists the catalog and closes any
// remaining session.
func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return nil
	}
	e.state.isRunning = false

	if n := atomic.LoadInt32(&e.state.ongoingOperations); n > 0 {
		e.logger.Warnf("Stopping with %d operation(s) in flight", n)
	}
	return e.group.Stop(ctx)
}

// Catalog returns the data source catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Registry returns the connection registry.
func (e *Engine) Registry() *database.Registry {
	return e.registry
}

// Secrets returns the keyring data source passwords are stored in.
func (e *Engine) Secrets() keyring.Store {
	return e.secrets
}

func (e *Engine) Logger() *logger.Logger {
	return e.logger
}

// TrackOperation marks an operation in flight.
func (e *Engine) TrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, 1)
	atomic.AddInt64(&e.metrics.requestsProcessed, 1)
}

// UntrackOperation ends an operation started with TrackOperation.
func (e *Engine) UntrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, -1)
}

func (e *Engine) IncrementErrors() {
	atomic.AddInt64(&e.metrics.errors, 1)
}

func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"requests_processed": atomic.LoadInt64(&e.metrics.requestsProcessed),
		"errors":             atomic.LoadInt64(&e.metrics.errors),
		"live_connections":   int64(e.registry.Count()),
	}
}

func (e *Engine) CheckHealth() error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return fmt.Errorf("engine not started")
	}
	return nil
}
