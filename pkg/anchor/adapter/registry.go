package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Registry maps database types to the adapters that open their sessions.
type Registry struct {
	adapters map[dbcapabilities.DatabaseType]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[dbcapabilities.DatabaseType]Adapter),
	}
}

// Register registers a database adapter.
// If an adapter for the same database type is already registered, it will be replaced.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[adapter.Type()] = adapter
}

// Get retrieves a registered adapter by database type.
// Returns ErrAdapterNotFound if the adapter is not registered.
func (r *Registry) Get(dbType dbcapabilities.DatabaseType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[dbType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, dbType)
	}

	return adapter, nil
}

// ListRegistered returns all registered database types, sorted.
func (r *Registry) ListRegistered() []dbcapabilities.DatabaseType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]dbcapabilities.DatabaseType, 0, len(r.adapters))
	for dbType := range r.adapters {
		types = append(types, dbType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Connect opens a session using the adapter registered for dbType.
func (r *Registry) Connect(ctx context.Context, dbType dbcapabilities.DatabaseType, config ConnectionConfig) (Session, error) {
	adapter, err := r.Get(dbType)
	if err != nil {
		return nil, err
	}

	session, err := adapter.Connect(ctx, config)
	if err != nil {
		return nil, WrapError(dbType, "connect", err)
	}

	return session, nil
}

// defaultRegistry is filled by the engine packages from their init functions.
var defaultRegistry = NewRegistry()

// Register registers an adapter in the default registry.
func Register(adapter Adapter) {
	defaultRegistry.Register(adapter)
}

// DefaultRegistry returns the registry engine packages register into.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
