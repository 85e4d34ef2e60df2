package storage

import (
	"context"

	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
)

// resolverParams collects every provider registered in the "storage_providers" group.
type resolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Config    *coreConfig.Config
}

func newResolver(lc fx.Lifecycle, p resolverParams) *ConnectionResolver {
	r := NewConnectionResolver(p.Providers, p.Config)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
	return r
}

// NewDefaultConnection resolves the connection named by layout.storage_ref.
func NewDefaultConnection(r StorageConnectionResolver, cfg *coreConfig.Config) (StorageConnection, error) {
	return r.ResolveStorageConnection(context.Background(), cfg.Etl.Layout.StorageRef)
}

// Module provides the resolver and the pipeline's default connection.
// Backends contribute providers through their own modules.
var Module = fx.Options(
	fx.Provide(newResolver),
	fx.Provide(func(r *ConnectionResolver) StorageConnectionResolver { return r }),
	fx.Provide(NewDefaultConnection),
)
