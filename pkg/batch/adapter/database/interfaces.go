// Package database defines the contract of the run ledger database connections.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/adapter"
)

// Operations accepted by DBExecutor.ExecuteUpdate.
const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

// DBExecutor defines the read and write operations the repositories need.
type DBExecutor interface {
	// ExecuteUpdate performs a write operation (CREATE, UPDATE, DELETE) on tableName.
	// For UPDATE, query narrows the rows in addition to the model's primary key.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteQuery executes a SELECT with query as the WHERE clause.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced executes a SELECT with optional sorting and limiting.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()
	DBExecutor

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBProvider provides database connections of one dialect based on configuration.
type DBProvider interface {
	coreAdapter.ResourceProvider[DBConnection]
	// ForceReconnect closes and re-establishes the connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
}

// DBConnectionResolver resolves a named database connection, reconnecting if necessary.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProviderGroup is the Fx group all DBProvider implementations are collected in.
const DBProviderGroup = "db_providers"
