package curated_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chicago-taxi-etl/internal/curated"
	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

func weather(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New(
		[]string{"datetime", "temperature", "wind_speed", "precipitation", "rain"},
		[][]string{
			{"2024-01-01 00:00:00", "-3.1", "12.4", "0.0", "0.0"},
			{"2024-01-01 01:00:00", "-3.4", "11.9", "0.2", ""},
		},
	)
	require.NoError(t, err)
	return tb
}

func setup(t *testing.T, parquet bool) (*curated.Writer, storageAdapter.StorageConnection, *coreConfig.Config) {
	t.Helper()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "test")
	require.NoError(t, err)
	cfg := coreConfig.NewConfig()
	cfg.Etl.Layout.Bucket = "lake"
	cfg.Etl.Output.Parquet = parquet
	return curated.NewWriter(conn, cfg), conn, cfg
}

func TestFileName(t *testing.T) {
	name, err := curated.FileName("weather", weather(t), "datetime")
	require.NoError(t, err)
	assert.Equal(t, "weather_2024-01-01.csv", name)

	empty, err := table.New([]string{"datetime"}, nil)
	require.NoError(t, err)
	_, err = curated.FileName("weather", empty, "datetime")
	assert.ErrorIs(t, err, exception.ErrMalformedInput)

	_, err = curated.FileName("taxi", weather(t), "datetime_for_weather")
	assert.ErrorIs(t, err, exception.ErrMalformedInput)
}

func TestWriter_RoundTrip(t *testing.T) {
	w, conn, cfg := setup(t, false)
	ctx := context.Background()
	tb := weather(t)

	res, err := w.Write(ctx, storageAdapter.BatchTypeWeather, tb)
	require.NoError(t, err)
	assert.Equal(t, "transformed_data/weather/weather_2024-01-01.csv", res.Key)
	assert.Equal(t, 2, res.Rows)
	assert.Empty(t, res.ParquetKey)

	back, err := curated.Read(ctx, conn, cfg.Etl.Layout.Bucket, res.Key)
	require.NoError(t, err)
	assert.Equal(t, tb.Names(), back.Names())
	assert.Equal(t, tb.Rows(), back.Rows())

	raw, err := storageAdapter.ReadAll(ctx, conn, cfg.Etl.Layout.Bucket, res.Key)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("datetime,temperature,wind_speed,precipitation,rain\n")), "header without index column")
}

func TestWriter_ParquetSidecar(t *testing.T) {
	w, conn, cfg := setup(t, true)
	ctx := context.Background()

	res, err := w.Write(ctx, storageAdapter.BatchTypeWeather, weather(t))
	require.NoError(t, err)
	assert.Equal(t, "transformed_data/weather/weather_2024-01-01.parquet", res.ParquetKey)

	data, err := storageAdapter.ReadAll(ctx, conn, cfg.Etl.Layout.Bucket, res.ParquetKey)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestWriter_UnknownType(t *testing.T) {
	w, _, _ := setup(t, false)
	_, err := w.Write(context.Background(), storageAdapter.BatchType("bikes"), weather(t))
	assert.Error(t, err)
}
