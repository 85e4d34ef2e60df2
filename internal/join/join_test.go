package join_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chicago-taxi-etl/internal/join"
	"github.com/tigerroll/chicago-taxi-etl/internal/master"
	"github.com/tigerroll/chicago-taxi-etl/internal/table"
)

func trips(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New(
		[]string{"trip_id", "company", "payment_type", "fare", "datetime_for_weather"},
		[][]string{
			{"t1", "Yellow Cab", "Cash", "10", "2024-03-05 14:00:00"},
			{"t2", "Blue Cab", "Credit Card", "11", "2024-03-05 14:00:00"},
			{"t3", "Blue Cab", "Cash", "12", "2024-03-05 15:00:00"},
		},
	)
	require.NoError(t, err)
	return tb
}

func TestJoin_ReplacesTextWithIDs(t *testing.T) {
	batch := trips(t)
	companies, _, err := master.Reconcile(batch,
		master.NewTable(master.Company, master.Row{ID: 1, Value: "Yellow Cab"}, master.Row{ID: 2, Value: "Flash Cab"}))
	require.NoError(t, err)
	payments, _, err := master.Reconcile(batch, master.NewTable(master.PaymentType))
	require.NoError(t, err)

	out, err := join.Join(batch, payments, companies)
	require.NoError(t, err)

	assert.Equal(t, []string{"trip_id", "fare", "datetime_for_weather", "payment_type_id", "company_id"}, out.Names())
	assert.Equal(t, [][]string{
		{"t1", "10", "2024-03-05 14:00:00", "1", "1"},
		{"t2", "11", "2024-03-05 14:00:00", "2", "3"},
		{"t3", "12", "2024-03-05 15:00:00", "1", "3"},
	}, out.Rows())
}

func TestJoin_UnknownValue(t *testing.T) {
	batch := trips(t)
	payments := master.NewTable(master.PaymentType, master.Row{ID: 1, Value: "Cash"}, master.Row{ID: 2, Value: "Credit Card"})
	companies := master.NewTable(master.Company, master.Row{ID: 1, Value: "Yellow Cab"})

	_, err := join.Join(batch, payments, companies)
	require.Error(t, err)
	assert.ErrorIs(t, err, join.ErrUnknownMasterValue)
	assert.Contains(t, err.Error(), "Blue Cab")
}

func TestJoin_NaNTextJoinsLikeAnyOtherValue(t *testing.T) {
	batch, err := table.New(
		[]string{"trip_id", "company", "payment_type"},
		[][]string{{"t1", "NaN", "Cash"}, {"t2", "", "Cash"}},
	)
	require.NoError(t, err)
	companies, _, err := master.Reconcile(batch, master.NewTable(master.Company))
	require.NoError(t, err)
	payments, _, err := master.Reconcile(batch, master.NewTable(master.PaymentType))
	require.NoError(t, err)

	out, err := join.Join(batch, payments, companies)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"t1", "1", "1"}, {"t2", "1", "2"}}, out.Rows())
}
