package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics of transform runs.
//
// This interface provides a standardized way to record metrics for runs, per-file lifecycle
// transitions and feed calls, so that different metrics backends can be plugged in.
type MetricRecorder interface {
	// RecordRunStart records the start of a RunExecution.
	//
	// ctx: The context for the operation.
	// run: Details of the started RunExecution.
	RecordRunStart(ctx context.Context, run *model.RunExecution)

	// RecordRunEnd records the end of a RunExecution, including its duration and final status.
	//
	// ctx: The context for the operation.
	// run: Details of the finished RunExecution.
	RecordRunEnd(ctx context.Context, run *model.RunExecution)

	// RecordFileTransition records one lifecycle transition of a raw file.
	//
	// ctx: The context for the operation.
	// file: The FileExecution after the transition.
	// from: The state the file left.
	RecordFileTransition(ctx context.Context, file *model.FileExecution, from model.FileState)

	// RecordFileEnd records the outcome of a raw file: archived or failed, rows written
	// and master rows added.
	//
	// ctx: The context for the operation.
	// file: The finished FileExecution.
	RecordFileEnd(ctx context.Context, file *model.FileExecution)

	// RecordFeedRequest records one HTTP call to a source feed.
	//
	// ctx: The context for the operation.
	// feed: The feed name ("taxi", "weather").
	// outcome: "success", "error" or "breaker_open".
	// duration: The time spent including retries.
	RecordFeedRequest(ctx context.Context, feed, outcome string, duration time.Duration)

	// RecordDuration records the execution time of a specific operation.
	//
	// ctx: The context for the operation.
	// name: The name of the duration to record (e.g., "master_save", "curated_write").
	// duration: The length of the duration to record.
	// tags: Additional labels. Only the "batch_type" tag is exported.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
