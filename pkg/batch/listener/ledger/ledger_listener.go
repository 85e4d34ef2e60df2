// Package ledger records every run and file transition in the run ledger.
// Ledger failures are logged and never fail the pipeline.
package ledger

import (
	"context"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
	logger "github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// LedgerListener writes runs and files through a RunRepository.
type LedgerListener struct {
	repo repository.RunRepository
}

// NewLedgerListener creates a LedgerListener.
func NewLedgerListener(repo repository.RunRepository) *LedgerListener {
	return &LedgerListener{repo: repo}
}

// BeforeRun saves the run and its pending files.
func (l *LedgerListener) BeforeRun(ctx context.Context, run *model.RunExecution) {
	if err := l.repo.SaveRunExecution(ctx, run); err != nil {
		logger.Errorf("Ledger: failed to save run '%s': %v", run.ID, err)
		return
	}
	for _, fe := range run.FileExecutions {
		if err := l.repo.SaveFileExecution(ctx, fe); err != nil {
			logger.Errorf("Ledger: failed to save file '%s' of run '%s': %v", fe.Key, run.ID, err)
		}
	}
}

// AfterRun records the final status and counters.
func (l *LedgerListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	if err := l.repo.UpdateRunExecution(ctx, run); err != nil {
		logger.Errorf("Ledger: failed to update run '%s': %v", run.ID, err)
	}
}

func (l *LedgerListener) BeforeFile(ctx context.Context, file *model.FileExecution) {}

// OnTransition records the new state.
func (l *LedgerListener) OnTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	l.update(ctx, file)
}

// AfterFile records the outcome, including failures.
func (l *LedgerListener) AfterFile(ctx context.Context, file *model.FileExecution) {
	l.update(ctx, file)
}

func (l *LedgerListener) update(ctx context.Context, file *model.FileExecution) {
	if err := l.repo.UpdateFileExecution(ctx, file); err != nil {
		logger.Errorf("Ledger: failed to update file '%s' (%s): %v", file.Key, file.State, err)
	}
}

var (
	_ port.RunExecutionListener  = (*LedgerListener)(nil)
	_ port.FileExecutionListener = (*LedgerListener)(nil)
)
