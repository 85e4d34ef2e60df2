// Package table holds the in-memory tabular form of a batch.
// Every column is a gota string series so values keep their source text.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrNoColumn is returned when a named column is absent.
var ErrNoColumn = errors.New("table: no such column")

// Table is an ordered set of named string columns of equal length.
type Table struct {
	df dataframe.DataFrame
}

// New builds a table from a header and row-major values. Every row must have len(columns) cells.
func New(columns []string, rows [][]string) (*Table, error) {
	if len(columns) == 0 {
		return nil, errors.New("table: at least one column is required")
	}
	seen := make(map[string]struct{}, len(columns))
	cols := make([][]string, len(columns))
	for j, name := range columns {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("table: duplicate column '%s'", name)
		}
		seen[name] = struct{}{}
		cols[j] = make([]string, 0, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("table: row %d has %d cells, want %d", i, len(row), len(columns))
		}
		for j, v := range row {
			cols[j] = append(cols[j], v)
		}
	}

	ss := make([]series.Series, len(columns))
	for j, name := range columns {
		ss[j] = series.New(cols[j], series.String, name)
	}
	return FromFrame(dataframe.New(ss...))
}

// FromFrame wraps a gota frame, surfacing its deferred error.
func FromFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	return &Table{df: df}, nil
}

// Frame exposes the underlying dataframe.
func (t *Table) Frame() dataframe.DataFrame {
	return t.df
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	return t.df.Names()
}

// Nrow returns the number of rows.
func (t *Table) Nrow() int {
	return t.df.Nrow()
}

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	for _, n := range t.df.Names() {
		if n == column {
			return true
		}
	}
	return false
}

// Column returns a copy of the named column's values.
func (t *Table) Column(column string) ([]string, error) {
	if !t.Has(column) {
		return nil, fmt.Errorf("%w '%s'", ErrNoColumn, column)
	}
	return t.df.Col(column).Records(), nil
}

// Value returns one cell.
func (t *Table) Value(row int, column string) (string, error) {
	vals, err := t.Column(column)
	if err != nil {
		return "", err
	}
	if row < 0 || row >= len(vals) {
		return "", fmt.Errorf("table: row %d out of range (%d rows)", row, len(vals))
	}
	return vals[row], nil
}

// Rows returns the values row-major, without the header.
func (t *Table) Rows() [][]string {
	records := t.df.Records()
	if len(records) == 0 {
		return nil
	}
	return records[1:]
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	for _, c := range columns {
		if !t.Has(c) {
			return nil, fmt.Errorf("%w '%s'", ErrNoColumn, c)
		}
	}
	return FromFrame(t.df.Select(columns))
}

// Drop removes the named columns. Absent columns are ignored.
func (t *Table) Drop(columns ...string) (*Table, error) {
	var present []string
	for _, c := range columns {
		if t.Has(c) {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return t, nil
	}
	return FromFrame(t.df.Drop(present))
}

// Rename renames a column in place of its position.
func (t *Table) Rename(from, to string) (*Table, error) {
	if !t.Has(from) {
		return nil, fmt.Errorf("%w '%s'", ErrNoColumn, from)
	}
	return FromFrame(t.df.Rename(to, from))
}

// WithColumn appends a column, or replaces it when the name exists.
func (t *Table) WithColumn(column string, values []string) (*Table, error) {
	if len(values) != t.Nrow() {
		return nil, fmt.Errorf("table: column '%s' has %d values, want %d", column, len(values), t.Nrow())
	}
	return FromFrame(t.df.Mutate(series.New(values, series.String, column)))
}

// Equal reports whether both tables have the same columns and cells.
func (t *Table) Equal(other *Table) bool {
	a, b := t.df.Records(), other.df.Records()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// WriteCSV writes a header line then one line per row, without an index column.
func (t *Table) WriteCSV(w io.Writer) error {
	return t.df.WriteCSV(w)
}

// ReadCSV reads a CSV with a header line. Cells are kept verbatim, with no type detection.
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("table: failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("table: csv has no header")
	}
	return New(records[0], records[1:])
}
