package schedule_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tigerroll/chicago-taxi-etl/internal/extract"
	"github.com/tigerroll/chicago-taxi-etl/internal/schedule"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

type stubExtractor struct {
	date time.Time
	err  error
}

func (e *stubExtractor) Extract(_ context.Context, date time.Time) ([]extract.Result, error) {
	e.date = date
	return nil, e.err
}

type stubTransformer struct {
	calls int32
}

func (t *stubTransformer) Run(_ context.Context, trigger string) (*model.RunExecution, error) {
	atomic.AddInt32(&t.calls, 1)
	run := model.NewRunExecution(trigger)
	run.Finish(nil)
	return run, nil
}

func newConfig(t *testing.T) *coreConfig.Config {
	cfg := coreConfig.NewConfig()
	cfg.Etl.Schedule.LockFile = filepath.Join(t.TempDir(), "taxietl.lock")
	return cfg
}

func TestRunExtract_UsesLaggedDate(t *testing.T) {
	ex := &stubExtractor{}
	cfg := newConfig(t)
	s := schedule.NewScheduler(ex, &stubTransformer{}, cfg, zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC) })

	require.NoError(t, s.RunExtract(context.Background()))
	assert.Equal(t, "2024-03-20", ex.date.Format("2006-01-02"))
	assert.Equal(t, 1, s.Status().Extract.Runs)
}

func TestRunExtract_RecordsError(t *testing.T) {
	ex := &stubExtractor{err: errors.New("taxi feed request failed")}
	s := schedule.NewScheduler(ex, &stubTransformer{}, newConfig(t), zap.NewNop())

	assert.Error(t, s.RunExtract(context.Background()))
	assert.Equal(t, "taxi feed request failed", s.Status().Extract.LastError)
}

func TestRunTransform_SkipsWhileLocked(t *testing.T) {
	cfg := newConfig(t)
	tr := &stubTransformer{}
	s := schedule.NewScheduler(&stubExtractor{}, tr, cfg, zap.NewNop())

	held := flock.New(cfg.Etl.Schedule.LockFile)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	err = s.RunTransform(context.Background())
	assert.ErrorIs(t, err, schedule.ErrLocked)
	assert.Equal(t, int32(0), atomic.LoadInt32(&tr.calls))

	require.NoError(t, held.Unlock())
	require.NoError(t, s.RunTransform(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))
	assert.Empty(t, s.Status().Transform.LastError)
}

func TestWithLock_ReleasesAfterRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	require.NoError(t, schedule.WithLock(path, func() error { return nil }))

	inner := errors.New("boom")
	assert.ErrorIs(t, schedule.WithLock(path, func() error { return inner }), inner)
}

func TestStart_RejectsInvalidCron(t *testing.T) {
	cfg := newConfig(t)
	cfg.Etl.Schedule.TransformCron = "every day"
	s := schedule.NewScheduler(&stubExtractor{}, &stubTransformer{}, cfg, zap.NewNop())

	assert.Error(t, s.Start())
	assert.False(t, s.Status().Running)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	cfg := newConfig(t)
	s := schedule.NewScheduler(&stubExtractor{}, &stubTransformer{}, cfg, zap.NewNop())
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	app := schedule.NewServer(registry, s, zap.NewNop())

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode, "not started yet")

	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	resp, err = app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var st schedule.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Running)
	assert.Equal(t, "0 5 * * *", st.ExtractCron)
	assert.False(t, st.NextTransform.IsZero())

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "etl_test_total 1")
}
