package migration

import (
	"context"
	"io/fs"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
)

// LedgerMigrationsTable is the table golang-migrate records the applied ledger versions in.
const LedgerMigrationsTable = "etl_schema_migrations"

// Migrator handles database schema migrations.
type Migrator interface {
	// Up applies all pending migrations found under path in migrationFS.
	// tableName is the table used to track migration history.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Version reports the applied version and whether the last migration left the schema dirty.
	// A database without migrations reports version 0.
	Version(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, bool, error)
}

// MigratorProvider is a factory for creating Migrator instances.
type MigratorProvider interface {
	NewMigrator(dbConn database.DBConnection) Migrator
}
