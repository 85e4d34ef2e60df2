package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// ConnectionFactory opens a connection for a decoded configuration.
type ConnectionFactory func(cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// BaseProvider caches the connections of one backend type by name.
// Backends embed it and only supply a ConnectionFactory.
type BaseProvider struct {
	cfg          *coreConfig.Config
	providerType string
	factory      ConnectionFactory
	connections  map[string]StorageConnection
	mu           sync.RWMutex
}

// NewBaseProvider creates a BaseProvider for providerType.
func NewBaseProvider(cfg *coreConfig.Config, providerType string, factory ConnectionFactory) *BaseProvider {
	return &BaseProvider{
		cfg:          cfg,
		providerType: providerType,
		factory:      factory,
		connections:  make(map[string]StorageConnection),
	}
}

// Type returns the backend type handled by this provider.
func (p *BaseProvider) Type() string {
	return p.providerType
}

// GetConnection returns the cached connection or opens it from the "storage" configuration.
func (p *BaseProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	raw, ok := p.cfg.Etl.StorageConfigs[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	sc, err := storageConfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage '%s': %w", name, err)
	}
	if sc.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, sc.Type)
	}

	conn, err = p.factory(sc, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage '%s': %w", p.providerType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Opened %s storage connection '%s'.", p.providerType, name)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s storage '%s': %w", p.providerType, name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// ConnectionResolver selects the provider by the "type" of a named configuration.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// NewConnectionResolver indexes the registered providers by type.
func NewConnectionResolver(providers []StorageProvider, cfg *coreConfig.Config) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, cfg: cfg}
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	raw, ok := r.cfg.Etl.StorageConfigs[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}
	sc, err := storageConfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage '%s': %w", name, err)
	}
	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider registered for type '%s' (connection '%s')", sc.Type, name)
	}
	return provider.GetConnection(name)
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)
