package migration

import "go.uber.org/fx"

// Module provides the MigratorProvider.
var Module = fx.Options(
	fx.Provide(NewMigratorProvider),
)
