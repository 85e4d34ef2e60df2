// Package port defines the interfaces through which the transform pipeline reports its progress.
package port

import (
	"context"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// RunExecutionListener is notified around a whole transform run.
type RunExecutionListener interface {
	// BeforeRun is called once the pending files are listed and before the first file is processed.
	// run.FileExecutions is already populated with every file in PENDING state.
	BeforeRun(ctx context.Context, run *model.RunExecution)
	// AfterRun is called after run.Finish, with the final status and counters.
	AfterRun(ctx context.Context, run *model.RunExecution)
}

// FileExecutionListener is notified about every raw file processed by a run.
type FileExecutionListener interface {
	// BeforeFile is called before the file is read.
	BeforeFile(ctx context.Context, file *model.FileExecution)
	// OnTransition is called after each successful state change; from is the previous state.
	OnTransition(ctx context.Context, file *model.FileExecution, from model.FileState)
	// AfterFile is called once the file is archived or failed.
	AfterFile(ctx context.Context, file *model.FileExecution)
}
