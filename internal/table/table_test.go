package table_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chicago-taxi-etl/internal/table"
)

func sample(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New(
		[]string{"trip_id", "company", "fare"},
		[][]string{{"a", "Flash Cab", "12.50"}, {"b", "Yellow, Inc", "7"}},
	)
	require.NoError(t, err)
	return tb
}

func TestNew_Validates(t *testing.T) {
	_, err := table.New(nil, nil)
	assert.Error(t, err)

	_, err = table.New([]string{"a", "a"}, nil)
	assert.Error(t, err)

	_, err = table.New([]string{"a", "b"}, [][]string{{"1"}})
	assert.Error(t, err)

	empty, err := table.New([]string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Nrow())
}

func TestColumnOps(t *testing.T) {
	tb := sample(t)

	col, err := tb.Column("company")
	require.NoError(t, err)
	assert.Equal(t, []string{"Flash Cab", "Yellow, Inc"}, col)

	_, err = tb.Column("missing")
	assert.ErrorIs(t, err, table.ErrNoColumn)

	renamed, err := tb.Rename("company", "company_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"trip_id", "company_name", "fare"}, renamed.Names())

	dropped, err := tb.Drop("fare", "not_there")
	require.NoError(t, err)
	assert.Equal(t, []string{"trip_id", "company"}, dropped.Names())

	added, err := tb.WithColumn("hour", []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"trip_id", "company", "fare", "hour"}, added.Names())
	v, err := added.Value(1, "hour")
	require.NoError(t, err)
	assert.Equal(t, "y", v)

	_, err = tb.WithColumn("hour", []string{"x"})
	assert.Error(t, err)

	selected, err := tb.Select("fare", "trip_id")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"12.50", "a"}, {"7", "b"}}, selected.Rows())
}

func TestCSVRoundTrip(t *testing.T) {
	tb := sample(t)

	var buf bytes.Buffer
	require.NoError(t, tb.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "trip_id,company,fare\n"))
	assert.Contains(t, buf.String(), `"Yellow, Inc"`)

	back, err := table.ReadCSV(&buf)
	require.NoError(t, err)
	assert.True(t, tb.Equal(back))
	assert.Equal(t, tb.Rows(), back.Rows())
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := table.ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	tb, err := table.ReadCSV(strings.NewReader("company_id,company\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Nrow())
	assert.Empty(t, tb.Rows())
}
