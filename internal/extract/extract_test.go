package extract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chicago-taxi-etl/internal/extract"
	"github.com/tigerroll/chicago-taxi-etl/internal/feed"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

type stubFeed struct {
	name string
	body string
	err  error
	got  time.Time
}

func (f *stubFeed) Name() string { return f.name }

func (f *stubFeed) Fetch(_ context.Context, date time.Time) ([]byte, error) {
	f.got = date
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func newExtractor(t *testing.T, feeds ...feed.Feed) (*extract.Extractor, storageAdapter.StorageConnection, *coreConfig.Config) {
	t.Helper()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "test")
	require.NoError(t, err)
	cfg := coreConfig.NewConfig()
	return extract.NewExtractor(extract.Params{Storage: conn, Config: cfg, Feeds: feeds}), conn, cfg
}

func TestExtract_UploadsBodiesUnchanged(t *testing.T) {
	taxi := &stubFeed{name: "taxi", body: `[{"trip_id":"a", "fare": "1.5"}]`}
	weather := &stubFeed{name: "weather", body: `{"hourly":{"time":[]}}`}
	e, conn, cfg := newExtractor(t, taxi, weather)
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	results, err := e.Extract(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, date, taxi.got)

	body, err := storageAdapter.ReadAll(context.Background(), conn, cfg.Etl.Layout.Bucket,
		"raw_data/to_processed/taxi_data/taxi_raw_2024-01-15.json")
	require.NoError(t, err)
	assert.Equal(t, taxi.body, string(body))

	body, err = storageAdapter.ReadAll(context.Background(), conn, cfg.Etl.Layout.Bucket,
		"raw_data/to_processed/weather_data/weather_raw_2024-01-15.json")
	require.NoError(t, err)
	assert.Equal(t, weather.body, string(body))
	assert.Equal(t, len(weather.body), results[1].Bytes)
}

func TestExtract_OneFailingFeedDoesNotBlockTheOther(t *testing.T) {
	taxi := &stubFeed{name: "taxi", err: exception.NewSourceError("feed", "taxi feed request failed", errors.New("HTTP 503"))}
	weather := &stubFeed{name: "weather", body: `{}`}
	e, conn, cfg := newExtractor(t, taxi, weather)
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	results, err := e.Extract(context.Background(), date)
	require.Error(t, err)
	assert.Equal(t, exception.KindSource, exception.KindOf(err))
	require.Len(t, results, 1)
	assert.Equal(t, "weather", results[0].Feed)

	ok, err := storageAdapter.Exists(context.Background(), conn, cfg.Etl.Layout.Bucket,
		"raw_data/to_processed/taxi_data/taxi_raw_2024-01-15.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKey_UnknownFeed(t *testing.T) {
	_, err := extract.Key(coreConfig.NewConfig().Etl.Layout, "bikes", time.Now())
	require.Error(t, err)
	assert.True(t, exception.IsFatal(err))
}

func TestDefaultDate(t *testing.T) {
	now := time.Date(2024, 10, 31, 23, 30, 0, 0, time.UTC)

	d, err := extract.DefaultDate(now, 8, "UTC")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", d.Format(feed.DateLayout), "Feb 31 normalizes into March")

	d, err = extract.DefaultDate(now, 8, "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.Format(feed.DateLayout))

	_, err = extract.DefaultDate(now, 8, "Mars/Olympus")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := extract.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	_, err = extract.ParseDate("29/02/2024")
	assert.Error(t, err)
}
