package logging

import (
	"context"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// --- Run Execution Listener ---

type LoggingRunListener struct{}

func NewLoggingRunListener() *LoggingRunListener {
	return &LoggingRunListener{}
}

func (l *LoggingRunListener) BeforeRun(ctx context.Context, run *model.RunExecution) {
	logger.Infof("RunExecutionListener: BeforeRun - ID: %s, Trigger: %s, PendingFiles: %d", run.ID, run.Trigger, run.FilesTotal)
}

func (l *LoggingRunListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	msg := "RunExecutionListener: AfterRun - ID: %s, Status: %s, Archived: %d/%d, Failed: %d, NewCompanies: %d, NewPaymentTypes: %d, Duration: %s"
	args := []interface{}{run.ID, run.Status, run.FilesArchived, run.FilesTotal, run.FilesFailed, run.NewCompanies, run.NewPaymentTypes, run.Duration()}
	if run.Status == model.RunStatusCompleted {
		logger.Infof(msg, args...)
		return
	}
	logger.Warnf(msg, args...)
	for _, f := range run.Failures {
		logger.Warnf("RunExecutionListener: failure - %s", f)
	}
}

var _ port.RunExecutionListener = (*LoggingRunListener)(nil)

// --- File Execution Listener ---

type LoggingFileListener struct{}

func NewLoggingFileListener() *LoggingFileListener {
	return &LoggingFileListener{}
}

func (l *LoggingFileListener) BeforeFile(ctx context.Context, file *model.FileExecution) {
	logger.Infof("FileExecutionListener: BeforeFile - Key: %s, Type: %s", file.Key, file.BatchType)
}

func (l *LoggingFileListener) OnTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	logger.Debugf("FileExecutionListener: OnTransition - Key: %s, %s -> %s", file.Key, from, file.State)
}

func (l *LoggingFileListener) AfterFile(ctx context.Context, file *model.FileExecution) {
	if file.Failed {
		logger.Errorf("FileExecutionListener: AfterFile - Key: %s failed in state %s (%s): %s", file.Key, file.State, file.ErrorKind, file.ErrorMessage)
		return
	}
	logger.Infof("FileExecutionListener: AfterFile - Key: %s, State: %s, Rows: %d, Curated: %s, Archive: %s",
		file.Key, file.State, file.Rows, file.CuratedKey, file.ArchiveKey)
}

var _ port.FileExecutionListener = (*LoggingFileListener)(nil)
