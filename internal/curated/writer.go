// Package curated writes transformed tables to the curated area of the blob store.
package curated

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/chicago-taxi-etl/internal/normalize"
	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

const module = "curated"

// Result describes the objects written for one table.
type Result struct {
	Key        string
	ParquetKey string
	Rows       int
}

// Writer uploads curated CSV files and, when enabled, a Parquet sidecar with the same base name.
type Writer struct {
	storage storageAdapter.StorageExecutor
	bucket  string
	layout  coreConfig.LayoutConfig
	parquet *ParquetEncoder
}

// NewWriter creates a Writer. The Parquet sidecar follows output.parquet.
func NewWriter(s storageAdapter.StorageExecutor, cfg *coreConfig.Config) *Writer {
	w := &Writer{storage: s, bucket: cfg.Etl.Layout.Bucket, layout: cfg.Etl.Layout}
	if cfg.Etl.Output.Parquet {
		w.parquet = NewParquetEncoder(cfg.Etl.Output.ParquetCompression)
	}
	return w
}

// target returns the label, prefix and date column of a batch type.
func (w *Writer) target(t storageAdapter.BatchType) (label, prefix, dateColumn string, err error) {
	switch t {
	case storageAdapter.BatchTypeTaxi:
		return "taxi", w.layout.TaxiCuratedPrefix, normalize.ColDatetimeForWeather, nil
	case storageAdapter.BatchTypeWeather:
		return "weather", w.layout.WeatherCuratedPrefix, normalize.ColDatetime, nil
	}
	return "", "", "", fmt.Errorf("unknown batch type '%s'", t)
}

// FileName derives "{label}_{YYYY-MM-DD}.csv" from the first row of dateColumn.
func FileName(label string, tb *table.Table, dateColumn string) (string, error) {
	if tb.Nrow() == 0 {
		return "", exception.NewMalformedInputError(module, "cannot name a curated file for an empty table", nil)
	}
	first, err := tb.Value(0, dateColumn)
	if err != nil {
		return "", exception.NewMalformedInputError(module, fmt.Sprintf("table has no '%s' column", dateColumn), err)
	}
	at, err := time.Parse(normalize.TimestampLayout, first)
	if err != nil {
		return "", exception.NewMalformedInputError(module, fmt.Sprintf("unparseable %s '%s'", dateColumn, first), err)
	}
	return fmt.Sprintf("%s_%s.csv", label, at.Format("2006-01-02")), nil
}

// Key returns the curated object key the table of type t would be written to.
func (w *Writer) Key(t storageAdapter.BatchType, tb *table.Table) (string, error) {
	label, prefix, dateColumn, err := w.target(t)
	if err != nil {
		return "", err
	}
	name, err := FileName(label, tb, dateColumn)
	if err != nil {
		return "", err
	}
	return prefix + name, nil
}

// Write uploads the table as CSV with a header and no index column, replacing any existing object.
func (w *Writer) Write(ctx context.Context, t storageAdapter.BatchType, tb *table.Table) (*Result, error) {
	key, err := w.Key(t, tb)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tb.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode curated csv '%s': %w", key, err)
	}
	if err := w.storage.Upload(ctx, w.bucket, key, &buf, "text/csv"); err != nil {
		return nil, fmt.Errorf("failed to upload curated csv '%s': %w", key, err)
	}
	res := &Result{Key: key, Rows: tb.Nrow()}
	logger.Infof("Curated %s table written to '%s' (%d rows).", t, key, res.Rows)

	if w.parquet != nil {
		pqKey := strings.TrimSuffix(key, ".csv") + ".parquet"
		data, err := w.parquet.Encode(tb)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parquet sidecar '%s': %w", pqKey, err)
		}
		if err := w.storage.Upload(ctx, w.bucket, pqKey, bytes.NewReader(data), "application/vnd.apache.parquet"); err != nil {
			return nil, fmt.Errorf("failed to upload parquet sidecar '%s': %w", pqKey, err)
		}
		res.ParquetKey = pqKey
		logger.Debugf("Parquet sidecar written to '%s' (%d bytes).", pqKey, len(data))
	}
	return res, nil
}

// Read downloads a curated CSV back into a table.
func Read(ctx context.Context, s storageAdapter.StorageExecutor, bucket, key string) (*table.Table, error) {
	rc, err := s.Download(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return table.ReadCSV(rc)
}
