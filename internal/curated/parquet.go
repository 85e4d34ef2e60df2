package curated

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// ParquetEncoder encodes a table as a Parquet file of optional UTF8 columns.
// An empty cell is written as null.
type ParquetEncoder struct {
	compression parquet.CompressionCodec
}

// NewParquetEncoder creates an encoder. Unknown codecs fall back to SNAPPY.
func NewParquetEncoder(compression string) *ParquetEncoder {
	codec, err := parquet.CompressionCodecFromString(strings.ToUpper(compression))
	if err != nil {
		logger.Warnf("Unknown parquet compression '%s'; using SNAPPY.", compression)
		codec = parquet.CompressionCodec_SNAPPY
	}
	return &ParquetEncoder{compression: codec}
}

// Encode returns the Parquet bytes of tb.
func (e *ParquetEncoder) Encode(tb *table.Table) (data []byte, err error) {
	names := tb.Names()
	md := make([]string, len(names))
	for i, n := range names {
		md[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", n)
	}

	buf := new(bytes.Buffer)
	pw, err := writer.NewCSVWriterFromWriter(md, buf, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = e.compression

	for _, row := range tb.Rows() {
		rec := make([]*string, len(row))
		for j := range row {
			if row[j] != "" {
				v := row[j]
				rec[j] = &v
			}
		}
		if err := pw.WriteString(rec); err != nil {
			return nil, fmt.Errorf("failed to write parquet row: %w", err)
		}
	}

	// WriteStop can panic on inconsistent schemas.
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf.Bytes(), nil
}
