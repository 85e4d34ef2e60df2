// Package migration applies the embedded run ledger schema with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// migratorImpl implements Migrator
type migratorImpl struct {
	dbConn database.DBConnection
	dbType string
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(dbConn database.DBConnection) Migrator {
	return &migratorImpl{
		dbConn: dbConn,
		dbType: dbConn.Type(),
	}
}

// getDatabaseDriver retrieves a migrate/v4 Driver based on the database type.
func (m *migratorImpl) getDatabaseDriver(sqlDB *sql.DB, tableName string) (migratedb.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

// getMigrateInstance builds a migrate instance over the connection's pool.
// The returned source driver must be closed by the caller. The migrate instance itself is
// never closed because its database driver would close the pool owned by the provider.
func (m *migratorImpl) getMigrateInstance(migrationFS fs.FS, path string, tableName string) (*migrate.Migrate, source.Driver, error) {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}

	dbDriver, err := m.getDatabaseDriver(sqlDB, tableName)
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, sourceDriver, nil
}

// Up implements Migrator.
func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	logger.Infof("Executing migration 'up' (DB: %s, Path: %s, Table: %s)", m.dbConn.Name(), path, tableName)

	mInstance, sourceDriver, err := m.getMigrateInstance(migrationFS, path, tableName)
	if err != nil {
		return fmt.Errorf("failed to get migrate instance: %w", err)
	}
	defer sourceDriver.Close()

	if err := mInstance.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("Ledger schema is up to date.")
			return nil
		}
		if _, dirty, versionErr := mInstance.Version(); versionErr == nil && dirty {
			logger.Errorf("Migration left the schema dirty; fix it manually before retrying.")
		}
		return fmt.Errorf("migration failed (DB: %s, Path: %s): %w", m.dbType, path, err)
	}

	logger.Infof("Migration 'up' completed successfully.")
	return nil
}

// Version implements Migrator.
func (m *migratorImpl) Version(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, bool, error) {
	mInstance, sourceDriver, err := m.getMigrateInstance(migrationFS, path, tableName)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migrate instance: %w", err)
	}
	defer sourceDriver.Close()

	version, dirty, err := mInstance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

// migratorProviderImpl implements MigratorProvider
type migratorProviderImpl struct{}

// NewMigratorProvider creates a new MigratorProvider.
func NewMigratorProvider() MigratorProvider {
	return &migratorProviderImpl{}
}

// NewMigrator implements MigratorProvider.
func (p *migratorProviderImpl) NewMigrator(dbConn database.DBConnection) Migrator {
	return NewMigrator(dbConn)
}
