// Package mysql provides a GORM DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
)

// ProviderType is the "type" of MySQL database configurations.
const ProviderType = "mysql"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the DSN with the driver's own formatter so credentials are escaped.
// Times are parsed into time.Time in UTC.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dc := mysqldriver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.MultiStatements = true // golang-migrate applies each file as one statement batch.
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// NewProvider creates a new DBProvider for MySQL.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}

// Module registers the MySQL provider in the "db_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	)),
)
