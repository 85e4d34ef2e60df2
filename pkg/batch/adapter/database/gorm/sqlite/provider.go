// Package sqlite provides a GORM DBProvider implementation for SQLite databases.
package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
)

// ProviderType is the "type" of SQLite database configurations.
const ProviderType = "sqlite"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		if cfg.Database != ":memory:" && !strings.HasPrefix(cfg.Database, "file:") {
			if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory for SQLite database '%s': %w", cfg.Database, err)
			}
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the DSN for SQLite, which is the file path (or ":memory:").
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}

// NewProvider creates a new DBProvider for SQLite.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}

// Module registers the SQLite provider in the "db_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	)),
)
