package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// ErrRunExecutionNotFound is the error returned when a RunExecution is not found.
var ErrRunExecutionNotFound = errors.New("run execution not found")

// RunExecution persists the run-level rows of the ledger.
type RunExecution interface {
	// SaveRunExecution persists a new RunExecution.
	SaveRunExecution(ctx context.Context, runExecution *model.RunExecution) error

	// UpdateRunExecution updates the status and counters of an existing RunExecution.
	UpdateRunExecution(ctx context.Context, runExecution *model.RunExecution) error

	// FindRunExecutionByID finds a RunExecution by its ID.
	// It is expected to load the associated FileExecutions as well.
	FindRunExecutionByID(ctx context.Context, executionID string) (*model.RunExecution, error)

	// FindRecentRunExecutions returns at most limit runs, newest first, without their files.
	FindRecentRunExecutions(ctx context.Context, limit int) ([]*model.RunExecution, error)
}
