// Package repository selects the run ledger implementation from the configuration.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/component/migration"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	domainRepository "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/infrastructure/repository/inmemory"
	sqlRepository "github.com/tigerroll/chicago-taxi-etl/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// RunRepositoryParams defines the dependencies of NewRunRepository.
type RunRepositoryParams struct {
	fx.In
	Config     *coreConfig.Config
	DBResolver database.DBConnectionResolver
	Migrators  migration.MigratorProvider
}

// NewRunRepository returns the SQL ledger when ledger.database_ref names a database and the
// in-memory ledger otherwise. With ledger.auto_migrate the schema is brought up to date first.
func NewRunRepository(ctx context.Context, p RunRepositoryParams) (domainRepository.RunRepository, error) {
	ledger := p.Config.Etl.Ledger
	if ledger.DatabaseRef == "" {
		logger.Debugf("No ledger database configured, keeping the run ledger in memory.")
		return inmemory.NewInMemoryRunRepository(), nil
	}

	if ledger.AutoMigrate {
		conn, err := p.DBResolver.ResolveDBConnection(ctx, ledger.DatabaseRef)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve ledger database '%s': %w", ledger.DatabaseRef, err)
		}
		if err := migration.ApplyLedgerMigrations(ctx, p.Migrators, conn); err != nil {
			return nil, fmt.Errorf("failed to migrate ledger database '%s': %w", ledger.DatabaseRef, err)
		}
	}
	return sqlRepository.NewSQLRunRepository(p.DBResolver, ledger.DatabaseRef), nil
}

// Module provides the configured repository.RunRepository.
var Module = fx.Options(
	fx.Provide(func(p RunRepositoryParams) (domainRepository.RunRepository, error) {
		return NewRunRepository(context.Background(), p)
	}),
)
