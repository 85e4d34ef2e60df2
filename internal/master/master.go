// Package master maintains the append-only reference tables that give every
// free-text company and payment type a stable surrogate id.
package master

import (
	"fmt"
	"strconv"

	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

const module = "master"

// Names of the master tables. Each name doubles as the value column.
const (
	Company     = "company"
	PaymentType = "payment_type"
)

// Row is one id -> value mapping.
type Row struct {
	ID    int
	Value string
}

// Table is an immutable master table. Ids and values are both unique.
type Table struct {
	Name        string
	IDColumn    string
	ValueColumn string
	rows        []Row
}

// NewTable creates the table called name with the given rows. The id column is name + "_id".
func NewTable(name string, rows ...Row) *Table {
	return &Table{
		Name:        name,
		IDColumn:    name + "_id",
		ValueColumn: name,
		rows:        append([]Row(nil), rows...),
	}
}

// Rows returns a copy of the rows in stored order.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// MaxID returns the largest id, or 0 for an empty table.
func (t *Table) MaxID() int {
	maxID := 0
	for _, r := range t.rows {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID
}

// Lookup returns the id of an exactly matching value.
func (t *Table) Lookup(value string) (int, bool) {
	for _, r := range t.rows {
		if MatchExact(r.Value, value) {
			return r.ID, true
		}
	}
	return 0, false
}

// Equal reports whether both tables hold the same rows in the same order.
func (t *Table) Equal(other *Table) bool {
	if t.Name != other.Name || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		if t.rows[i] != other.rows[i] {
			return false
		}
	}
	return true
}

// MatchExact is the value comparison used everywhere: case-sensitive, no trimming.
func MatchExact(a, b string) bool {
	return a == b
}

// ToTable converts the master table to its two-column tabular form.
func (t *Table) ToTable() (*table.Table, error) {
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rows[i] = []string{strconv.Itoa(r.ID), r.Value}
	}
	return table.New([]string{t.IDColumn, t.ValueColumn}, rows)
}

// FromTable parses the tabular form of the master table called name.
func FromTable(name string, tb *table.Table) (*Table, error) {
	m := NewTable(name)
	ids, err := tb.Column(m.IDColumn)
	if err != nil {
		return nil, exception.NewMalformedInputError(module, fmt.Sprintf("%s master has no '%s' column", name, m.IDColumn), err)
	}
	values, err := tb.Column(m.ValueColumn)
	if err != nil {
		return nil, exception.NewMalformedInputError(module, fmt.Sprintf("%s master has no '%s' column", name, m.ValueColumn), err)
	}

	seenIDs := make(map[int]struct{}, len(ids))
	seenValues := make(map[string]struct{}, len(values))
	for i := range ids {
		id, err := strconv.Atoi(ids[i])
		if err != nil {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("%s master row %d has a non-integer id '%s'", name, i, ids[i]), err)
		}
		if _, dup := seenIDs[id]; dup {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("%s master has duplicate id %d", name, id), nil)
		}
		if _, dup := seenValues[values[i]]; dup {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("%s master has duplicate value '%s'", name, values[i]), nil)
		}
		seenIDs[id] = struct{}{}
		seenValues[values[i]] = struct{}{}
		m.rows = append(m.rows, Row{ID: id, Value: values[i]})
	}
	return m, nil
}

// Reconcile appends every distinct batch value that m does not hold yet, in order of
// first appearance, with ids continuing from the current maximum. It returns a new table
// and the number of rows added; m itself is never modified.
func Reconcile(batch *table.Table, m *Table) (*Table, int, error) {
	values, err := batch.Column(m.ValueColumn)
	if err != nil {
		return nil, 0, exception.NewMalformedInputError(module, fmt.Sprintf("batch has no '%s' column", m.ValueColumn), err)
	}

	known := make(map[string]struct{}, len(m.rows))
	for _, r := range m.rows {
		known[r.Value] = struct{}{}
	}

	updated := NewTable(m.Name, m.rows...)
	next := m.MaxID() + 1
	added := 0
	for _, v := range values {
		if _, ok := known[v]; ok {
			continue
		}
		known[v] = struct{}{}
		updated.rows = append(updated.rows, Row{ID: next, Value: v})
		next++
		added++
	}
	return updated, added, nil
}
