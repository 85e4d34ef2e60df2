package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
)

//go:embed resource
var rawLedgerMigrationFS embed.FS

// LedgerMigrationsFS returns the embedded ledger migrations. Each dialect has its own
// directory ("sqlite", "postgres", "mysql") named after the database type.
func LedgerMigrationsFS() fs.FS {
	subFS, err := fs.Sub(rawLedgerMigrationFS, "resource")
	if err != nil {
		// Unreachable while the resource directory is embedded.
		panic(fmt.Sprintf("ledger migrations are not embedded: %v", err))
	}
	return subFS
}

// ApplyLedgerMigrations brings the ledger schema of dbConn up to date.
func ApplyLedgerMigrations(ctx context.Context, provider MigratorProvider, dbConn database.DBConnection) error {
	return provider.NewMigrator(dbConn).Up(ctx, LedgerMigrationsFS(), dbConn.Type(), LedgerMigrationsTable)
}
