package storage_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/local"
)

func TestIsBatchKey(t *testing.T) {
	prefix := "raw_data/to_processed/taxi_data/"
	cases := map[string]bool{
		prefix + "taxi_raw_2024-01-01.json": true,
		prefix + "TAXI_RAW.JSON":            false,
		prefix + "taxi_raw.Json":            false,
		prefix:                              false,
		prefix + " ":                        false,
		prefix + ".json":                    false,
		prefix + "notes.txt":                false,
		prefix + "taxi_raw_2024-01-01":      false,
		prefix + "nested/taxi.json":         false,
		"raw_data/processed/taxi.json":      false,
	}
	for key, want := range cases {
		assert.Equal(t, want, storageAdapter.IsBatchKey(prefix, key), key)
	}
}

func TestListBatches_TypedAndOrdered(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "test")
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{
		"raw_data/to_processed/weather_data/weather_raw_2024-01-01.json",
		"raw_data/to_processed/taxi_data/taxi_raw_2024-01-02.json",
		"raw_data/to_processed/taxi_data/taxi_raw_2024-01-01.json",
		"raw_data/to_processed/taxi_data/README.md",
	} {
		require.NoError(t, conn.Upload(ctx, "b", key, strings.NewReader("[]"), "application/json"))
	}

	batches, err := storageAdapter.ListBatches(ctx, conn, "b",
		storageAdapter.PendingSource{Type: storageAdapter.BatchTypeTaxi, Prefix: "raw_data/to_processed/taxi_data/"},
		storageAdapter.PendingSource{Type: storageAdapter.BatchTypeWeather, Prefix: "raw_data/to_processed/weather_data/"},
	)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, storageAdapter.BatchTypeTaxi, batches[0].Type)
	assert.Equal(t, "taxi_raw_2024-01-01.json", batches[0].FileName())
	assert.Equal(t, "taxi_raw_2024-01-02.json", batches[1].FileName())
	assert.Equal(t, storageAdapter.BatchTypeWeather, batches[2].Type)
	assert.Equal(t, "raw_data/to_processed/weather_data/", batches[2].Prefix)
}
