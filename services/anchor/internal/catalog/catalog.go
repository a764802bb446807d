package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
	"github.com/redbco/redb-anchor/pkg/keyring"
	"github.com/redbco/redb-anchor/pkg/logger"
)

// Connector opens and closes live sessions. *database.Registry implements it.
type Connector interface {
	Connect(ctx context.Context, dbType dbcapabilities.DatabaseType, cfg adapter.ConnectionConfig) (string, error)
	Disconnect(id string) error
	TestNewConnection(ctx context.Context, dbType dbcapabilities.DatabaseType, cfg adapter.ConnectionConfig) (time.Duration, error)
}

// Catalog is the persistent set of named data source definitions. Every
// mutating call persists the whole catalog before it returns.
type Catalog struct {
	store     Store
	connector Connector
	secrets   keyring.Store
	logger    *logger.Logger
	now       func() time.Time

	mu    sync.Mutex
	defs  map[string]*Definition
	order []string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithSecrets resolves "keyring:<key>" passwords through store.
func WithSecrets(store keyring.Store) Option {
	return func(c *Catalog) {
		c.secrets = store
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// New creates a catalog. Call Initialize to load the persisted state.
func New(store Store, connector Connector, logger *logger.Logger, opts ...Option) *Catalog {
	c := &Catalog{
		store:     store,
		connector: connector,
		logger:    logger,
		now:       time.Now,
		defs:      make(map[string]*Definition),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements service.Service.
func (c *Catalog) Name() string {
	return "datasource-catalog"
}

// Initialize implements service.Service. It loads the store; definitions
// persisted as connected are reset since live sessions never survive a
// restart.
func (c *Catalog) Initialize(ctx context.Context) error {
	defs, err := c.store.Load()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.defs = make(map[string]*Definition, len(defs))
	c.order = c.order[:0]
	reset := 0
	for _, d := range defs {
		if _, dup := c.defs[d.Name]; dup {
			c.logger.Warnf("Catalog holds %q twice, keeping the first entry", d.Name)
			continue
		}
		if d.Status == StatusConnected || d.ConnectionID != nil {
			d.Status = StatusDisconnected
			d.ConnectionID = nil
			reset++
		}
		if d.Status == "" {
			d.Status = StatusDisconnected
		}
		if d.Tags == nil {
			d.Tags = []string{}
		}
		if err := validateConfig(d.Type, d.Config); err != nil {
			c.logger.Warnf("Data source %s cannot connect until updated: %s", d.Name, err)
		}
		c.defs[d.Name] = d
		c.order = append(c.order, d.Name)
	}
	c.logger.Infof("Loaded %d data source(s)", len(c.order))

	if reset > 0 {
		c.logger.Debugf("Reset %d stale connected data source(s)", reset)
		return c.persistLocked()
	}
	return nil
}

// Shutdown implements service.Service. Connected definitions are
// disconnected; failures are logged and ignored.
func (c *Catalog) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	for _, name := range c.order {
		d := c.defs[name]
		if !d.IsConnected() {
			continue
		}
		c.closeQuietly(name, *d.ConnectionID)
		d.Status = StatusDisconnected
		d.ConnectionID = nil
		changed = true
	}
	if !changed {
		return nil
	}
	return c.persistLocked()
}

func notFound(name string) error {
	return adapter.NewNotFoundError("", "data source", name)
}

// persistLocked writes the catalog. c.mu must be held.
func (c *Catalog) persistLocked() error {
	defs := make([]*Definition, 0, len(c.order))
	for _, name := range c.order {
		defs = append(defs, c.defs[name])
	}
	if err := c.store.Save(defs); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	return nil
}

// prepare trims and resolves user supplied fields and validates the result.
func prepare(d *Definition) error {
	d.Name = strings.TrimSpace(d.Name)
	id, err := resolveType(d.Type)
	if err != nil {
		return err
	}
	d.Type = id
	d.Tags = normalizeTags(d.Tags)
	return validateDefinition(d)
}

// Create validates and stores a new definition. The id, timestamps, status
// and statistics are assigned by the catalog.
func (c *Catalog) Create(def Definition) (*Definition, error) {
	d := def.Clone()
	if err := prepare(d); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.defs[d.Name]; exists {
		return nil, adapter.NewValidationError("name", fmt.Sprintf("data source %q already exists", d.Name))
	}

	now := c.now().UTC()
	d.ID = uuid.NewString()
	d.Status = StatusDisconnected
	d.ConnectionID = nil
	d.CreatedAt = now
	d.UpdatedAt = now
	d.LastConnected = nil
	d.ConnectionStats = ConnectionStats{}

	c.defs[d.Name] = d
	c.order = append(c.order, d.Name)
	if err := c.persistLocked(); err != nil {
		delete(c.defs, d.Name)
		c.order = c.order[:len(c.order)-1]
		return nil, err
	}

	c.logger.Infof("Created data source %s (%s)", d.Name, d.Type)
	return d.Clone(), nil
}

// Get returns a copy of the named definition.
func (c *Catalog) Get(name string) (*Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.defs[name]
	if !ok {
		return nil, notFound(name)
	}
	return d.Clone(), nil
}

// List returns copies of every definition in creation order.
func (c *Catalog) List() []*Definition {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Definition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.defs[name].Clone())
	}
	return out
}

// Update applies patch. The connection settings are validated again when
// the type or config changes; UpdatedAt always moves.
func (c *Catalog) Update(name string, patch Patch) (*Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.defs[name]
	if !ok {
		return nil, notFound(name)
	}

	d := current.Clone()
	if patch.Type != nil {
		id, err := resolveType(*patch.Type)
		if err != nil {
			return nil, err
		}
		d.Type = id
	}
	if patch.Config != nil {
		d.Config = cloneConfig(*patch.Config)
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.Tags != nil {
		d.Tags = normalizeTags(patch.Tags)
	}
	if patch.changesConnection() {
		if err := validateConfig(d.Type, d.Config); err != nil {
			return nil, err
		}
	}
	d.UpdatedAt = c.now().UTC()

	c.defs[name] = d
	if err := c.persistLocked(); err != nil {
		c.defs[name] = current
		return nil, err
	}
	return d.Clone(), nil
}

// Delete removes a definition, disconnecting it first when it is live.
func (c *Catalog) Delete(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.defs[name]
	if !ok {
		return notFound(name)
	}
	if d.IsConnected() {
		c.closeQuietly(name, *d.ConnectionID)
		d.Status = StatusDisconnected
		d.ConnectionID = nil
	}

	previous := c.order
	order := make([]string, 0, len(previous))
	for _, n := range previous {
		if n != name {
			order = append(order, n)
		}
	}
	delete(c.defs, name)
	c.order = order

	if err := c.persistLocked(); err != nil {
		c.defs[name] = d
		c.order = previous
		return err
	}
	c.logger.Infof("Deleted data source %s", name)
	return nil
}

// resolveConfig replaces a keyring reference password with the secret.
func (c *Catalog) resolveConfig(cfg adapter.ConnectionConfig) (adapter.ConnectionConfig, error) {
	password, err := keyring.Resolve(c.secrets, cfg.Password)
	if err != nil {
		return cfg, adapter.NewValidationError("config.password", err.Error())
	}
	out := cloneConfig(cfg)
	out.Password = password
	return out, nil
}

// ConnectByName opens a live connection for the named definition and
// returns its connection id. Success and failure both update the
// statistics and persist. Reconnecting a connected definition replaces its
// connection only once the new one is open.
func (c *Catalog) ConnectByName(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	d, ok := c.defs[name]
	if !ok {
		c.mu.Unlock()
		return "", notFound(name)
	}
	snapshot := d.Clone()
	c.mu.Unlock()

	if err := validateConfig(snapshot.Type, snapshot.Config); err != nil {
		return "", err
	}
	cfg, err := c.resolveConfig(snapshot.Config)
	if err != nil {
		return "", err
	}

	start := c.now()
	id, connectErr := c.connector.Connect(ctx, snapshot.Type, cfg)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok = c.defs[name]
	if !ok || d.ID != snapshot.ID {
		if connectErr == nil {
			c.closeQuietly(name, id)
		}
		return "", notFound(name)
	}

	if connectErr != nil {
		d.ConnectionStats.FailedConnections++
		if err := c.persistLocked(); err != nil {
			c.logger.Warnf("Failed to persist statistics of %s: %s", name, err)
		}
		return "", connectErr
	}

	if d.IsConnected() {
		c.closeQuietly(name, *d.ConnectionID)
	}

	now := c.now().UTC()
	d.ConnectionStats.record(elapsed)
	d.Status = StatusConnected
	d.ConnectionID = &id
	d.LastConnected = &now

	if err := c.persistLocked(); err != nil {
		return id, err
	}
	c.logger.Infof("Connected data source %s", name)
	return id, nil
}

// closeQuietly disconnects id, logging and ignoring failures.
func (c *Catalog) closeQuietly(name, id string) {
	if err := c.connector.Disconnect(id); err != nil && !adapter.IsNotFound(err) {
		c.logger.Warnf("Failed to close connection %s of %s: %s", id, name, logger.SanitizeError(err))
	}
}

// DisconnectByName closes the live connection of a definition. A
// connection id the registry no longer knows is cleared without error.
func (c *Catalog) DisconnectByName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.defs[name]
	if !ok {
		return notFound(name)
	}
	if !d.IsConnected() {
		return adapter.NewNotFoundError(d.Type, "connection", name)
	}

	err := c.connector.Disconnect(*d.ConnectionID)
	if err != nil && adapter.IsNotFound(err) {
		err = nil
	}
	d.Status = StatusDisconnected
	d.ConnectionID = nil

	if perr := c.persistLocked(); perr != nil && err == nil {
		err = perr
	}
	return err
}

// ConnectionID returns the live connection id of a definition.
func (c *Catalog) ConnectionID(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.defs[name]
	if !ok {
		return "", notFound(name)
	}
	if !d.IsConnected() {
		return "", adapter.NewNotFoundError(d.Type, "connection", name)
	}
	return *d.ConnectionID, nil
}

// TestDefinition validates def and opens a throwaway connection to it,
// returning the time it took. The catalog is not changed.
func (c *Catalog) TestDefinition(ctx context.Context, def Definition) (time.Duration, error) {
	d := def.Clone()
	if err := prepare(d); err != nil {
		return 0, err
	}
	cfg, err := c.resolveConfig(d.Config)
	if err != nil {
		return 0, err
	}
	return c.connector.TestNewConnection(ctx, d.Type, cfg)
}

// TestByName runs TestDefinition for a stored definition.
func (c *Catalog) TestByName(ctx context.Context, name string) (time.Duration, error) {
	d, err := c.Get(name)
	if err != nil {
		return 0, err
	}
	return c.TestDefinition(ctx, *d)
}

// Reconcile marks a definition disconnected when err reports a lost
// connection, and drops its registry entry. It returns whether anything
// changed.
func (c *Catalog) Reconcile(name string, err error) bool {
	if !adapter.IsConnectionLost(err) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.defs[name]
	if !ok || !d.IsConnected() {
		return false
	}
	c.closeQuietly(name, *d.ConnectionID)
	d.Status = StatusDisconnected
	d.ConnectionID = nil
	c.logger.Warnf("Data source %s lost its connection", name)

	if perr := c.persistLocked(); perr != nil {
		c.logger.Warnf("Failed to persist catalog: %s", perr)
	}
	return true
}
