package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// ErrFileExecutionNotFound is the error returned when a FileExecution is not found.
var ErrFileExecutionNotFound = errors.New("file execution not found")

// FileExecution persists the per-file rows of the ledger.
type FileExecution interface {
	// SaveFileExecution persists a new FileExecution.
	SaveFileExecution(ctx context.Context, fileExecution *model.FileExecution) error

	// UpdateFileExecution records the current state of an existing FileExecution.
	UpdateFileExecution(ctx context.Context, fileExecution *model.FileExecution) error

	// FindFileExecutionsByRunID returns the files of a run in processing order.
	FindFileExecutionsByRunID(ctx context.Context, runExecutionID string) ([]*model.FileExecution, error)
}
