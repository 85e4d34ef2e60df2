// Package sql implements the run ledger on a relational database through gorm.
package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

// SQLRunRepository implements repository.RunRepository.
type SQLRunRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the name of the database connection holding the ledger (e.g., "ledger").
	dbName string
}

// NewSQLRunRepository creates a new instance of SQLRunRepository.
func NewSQLRunRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLRunRepository {
	return &SQLRunRepository{
		dbResolver: dbResolver,
		dbName:     dbName,
	}
}

var _ repository.RunRepository = (*SQLRunRepository)(nil)

// getDBConnection resolves the ledger connection, reconnecting if the resolver finds it stale.
func (r *SQLRunRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError("SQLRunRepository", fmt.Sprintf("failed to resolve DB connection '%s'", r.dbName), err, false, true)
	}
	return conn, nil
}

// wrapError adds a migration hint when the ledger tables are missing.
func wrapError(conn database.DBConnection, op, message string, err error) error {
	if conn.IsTableNotExistError(err) {
		message += " (ledger tables are missing, run 'taxietl migrate')"
	}
	return exception.NewBatchError(op, message, err, false, false)
}

// --- RunExecution implementation ---

func (r *SQLRunRepository) SaveRunExecution(ctx context.Context, runExecution *model.RunExecution) error {
	const op = "SQLRunRepository.SaveRunExecution"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	entity := fromDomainRunExecution(runExecution)
	if _, err := conn.ExecuteUpdate(ctx, entity, database.OperationCreate, entity.TableName(), nil); err != nil {
		return wrapError(conn, op, fmt.Sprintf("failed to save RunExecution (ID: %s)", runExecution.ID), err)
	}
	return nil
}

func (r *SQLRunRepository) UpdateRunExecution(ctx context.Context, runExecution *model.RunExecution) error {
	const op = "SQLRunRepository.UpdateRunExecution"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	entity := fromDomainRunExecution(runExecution)
	rowsAffected, err := conn.ExecuteUpdate(ctx, entity, database.OperationUpdate, entity.TableName(), nil)
	if err != nil {
		return wrapError(conn, op, fmt.Sprintf("failed to update RunExecution (ID: %s)", runExecution.ID), err)
	}
	if rowsAffected == 0 {
		return r.checkExists(ctx, conn, &RunExecutionEntity{}, runExecution.ID, repository.ErrRunExecutionNotFound)
	}
	return nil
}

func (r *SQLRunRepository) FindRunExecutionByID(ctx context.Context, executionID string) (*model.RunExecution, error) {
	const op = "SQLRunRepository.FindRunExecutionByID"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []RunExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": executionID}, "", 1); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrRunExecutionNotFound
		}
		return nil, wrapError(conn, op, fmt.Sprintf("failed to find RunExecution by ID: %s", executionID), err)
	}
	if len(entities) == 0 {
		return nil, repository.ErrRunExecutionNotFound
	}

	re := toDomainRunExecution(&entities[0])
	files, err := r.FindFileExecutionsByRunID(ctx, re.ID)
	if err != nil {
		return nil, err
	}
	for _, fe := range files {
		fe.RunExecution = re
	}
	re.FileExecutions = files
	return re, nil
}

func (r *SQLRunRepository) FindRecentRunExecutions(ctx context.Context, limit int) ([]*model.RunExecution, error) {
	const op = "SQLRunRepository.FindRecentRunExecutions"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []RunExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, nil, "start_time DESC, id DESC", limit); err != nil {
		return nil, wrapError(conn, op, "failed to list recent RunExecutions", err)
	}
	runs := make([]*model.RunExecution, 0, len(entities))
	for i := range entities {
		runs = append(runs, toDomainRunExecution(&entities[i]))
	}
	return runs, nil
}

// --- FileExecution implementation ---

func (r *SQLRunRepository) SaveFileExecution(ctx context.Context, fileExecution *model.FileExecution) error {
	const op = "SQLRunRepository.SaveFileExecution"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	entity := fromDomainFileExecution(fileExecution)
	if _, err := conn.ExecuteUpdate(ctx, entity, database.OperationCreate, entity.TableName(), nil); err != nil {
		return wrapError(conn, op, fmt.Sprintf("failed to save FileExecution (ID: %s, key: %s)", fileExecution.ID, fileExecution.Key), err)
	}
	return nil
}

func (r *SQLRunRepository) UpdateFileExecution(ctx context.Context, fileExecution *model.FileExecution) error {
	const op = "SQLRunRepository.UpdateFileExecution"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	entity := fromDomainFileExecution(fileExecution)
	rowsAffected, err := conn.ExecuteUpdate(ctx, entity, database.OperationUpdate, entity.TableName(), nil)
	if err != nil {
		return wrapError(conn, op, fmt.Sprintf("failed to update FileExecution (ID: %s)", fileExecution.ID), err)
	}
	if rowsAffected == 0 {
		return r.checkExists(ctx, conn, &FileExecutionEntity{}, fileExecution.ID, repository.ErrFileExecutionNotFound)
	}
	return nil
}

func (r *SQLRunRepository) FindFileExecutionsByRunID(ctx context.Context, runExecutionID string) ([]*model.FileExecution, error) {
	const op = "SQLRunRepository.FindFileExecutionsByRunID"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []FileExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"run_execution_id": runExecutionID}, "seq ASC", 0); err != nil {
		return nil, wrapError(conn, op, fmt.Sprintf("failed to find FileExecutions of run %s", runExecutionID), err)
	}
	files := make([]*model.FileExecution, 0, len(entities))
	for i := range entities {
		files = append(files, toDomainFileExecution(&entities[i]))
	}
	return files, nil
}

// checkExists tells an update that matched no row apart from one that changed nothing.
// MySQL reports 0 affected rows when every value is unchanged.
func (r *SQLRunRepository) checkExists(ctx context.Context, conn database.DBConnection, entity interface{}, id string, notFound error) error {
	count, err := conn.Count(ctx, entity, map[string]interface{}{"id": id})
	if err != nil {
		return exception.NewBatchError("SQLRunRepository", fmt.Sprintf("failed to check existence of %s", id), err, false, false)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", id, notFound)
	}
	return nil
}

// Close is a no-op. The connection belongs to its provider, which closes it on shutdown.
func (r *SQLRunRepository) Close() error {
	return nil
}
