package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
)

func newResolver(lc fx.Lifecycle, p ResolverParams) *GormDBConnectionResolver {
	r := NewGormDBConnectionResolver(p)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
	return r
}

// Module provides the connection resolver. Dialects contribute providers through their own modules.
var Module = fx.Options(
	fx.Provide(newResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
)
