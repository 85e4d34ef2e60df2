package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	infraMetrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

func TestPrometheusRecorder_RunAndFiles(t *testing.T) {
	r := infraMetrics.NewPrometheusRecorder()
	ctx := context.Background()

	run := model.NewRunExecution("cli")
	r.RecordRunStart(ctx, run)

	ok := run.NewFileExecution("taxi", "raw_data/to_processed/taxi_data/taxi_raw_2024-01-01.json")
	require.NoError(t, ok.TransitionTo(model.FileStateRead))
	r.RecordFileTransition(ctx, ok, model.FileStatePending)
	ok.Rows, ok.NewCompanies, ok.NewPaymentTypes = 3, 2, 1
	ok.State = model.FileStateArchived
	r.RecordFileEnd(ctx, ok)

	bad := run.NewFileExecution("weather", "raw_data/to_processed/weather_data/weather_raw_2024-01-01.json")
	bad.MarkAsFailed(exception.NewMalformedInputError("normalize", "bad json", errors.New("eof")))
	r.RecordFileEnd(ctx, bad)

	run.Finish(nil)
	r.RecordRunEnd(ctx, run)
	r.RecordFeedRequest(ctx, "taxi", "success", 20*time.Millisecond)

	reg := r.GetRegistry()
	count, err := testutil.GatherAndCount(reg, "etl_run_status_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "STARTED and COMPLETED_WITH_ERRORS series")

	expected := `
# HELP etl_master_rows_added_total Total rows appended to master tables.
# TYPE etl_master_rows_added_total counter
etl_master_rows_added_total{master="company"} 2
etl_master_rows_added_total{master="payment_type"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "etl_master_rows_added_total"))

	count, err = testutil.GatherAndCount(reg, "etl_files_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "etl_feed_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
