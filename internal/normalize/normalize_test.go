package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chicago-taxi-etl/internal/normalize"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

const tripBatch = `[
  {"trip_id":"t1","trip_start_timestamp":"2024-03-05T14:37:22.000","trip_seconds":"600","fare":12.5,
   "pickup_census_tract":"17031081500","dropoff_census_tract":null,
   "pickup_community_area":"8","dropoff_community_area":"32",
   "pickup_centroid_location":{"type":"Point","coordinates":[-87.6,41.8]},
   "company":"Flash Cab","payment_type":"Cash"},
  {"trip_id":"t2","trip_start_timestamp":"2024-03-05T15:00:00.000","trip_seconds":null,"fare":7,
   "pickup_community_area":"8","dropoff_community_area":"8","company":"Yellow Cab","payment_type":"Credit Card"},
  {"trip_id":"t3","trip_start_timestamp":"2024-03-05T15:59:59.000","trip_seconds":"60","fare":3.25,
   "pickup_community_area":"76","dropoff_community_area":"8","company":"Blue Cab","payment_type":"Cash"},
  {"trip_id":"t4","trip_start_timestamp":"2024-03-05T16:10:00.000","trip_seconds":"60","fare":4,
   "pickup_community_area":"76","company":"Blue Cab","payment_type":"Cash"}
]`

func TestNormalizeTrips(t *testing.T) {
	tb, err := normalize.NormalizeTrips([]byte(tripBatch))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"trip_id", "trip_start_timestamp", "trip_seconds", "fare",
		"pickup_community_area_id", "dropoff_community_area_id",
		"company", "payment_type", "datetime_for_weather",
	}, tb.Names())

	// t2 has a null trip_seconds and t4 has no dropoff area.
	ids, err := tb.Column("trip_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, ids)

	hours, err := tb.Column("datetime_for_weather")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-05 14:00:00", "2024-03-05 15:00:00"}, hours)

	fares, err := tb.Column("fare")
	require.NoError(t, err)
	assert.Equal(t, []string{"12.5", "3.25"}, fares, "numbers keep their source text")

	for _, dropped := range normalize.DroppedTripColumns {
		assert.False(t, tb.Has(dropped), dropped)
	}
}

func TestNormalizeTrips_RemovesExactlyTheNullRows(t *testing.T) {
	raw := `[
	  {"trip_start_timestamp":"2024-01-01T00:10:00","company":"A","payment_type":"Cash","fare":"1"},
	  {"trip_start_timestamp":"2024-01-01T00:20:00","company":null,"payment_type":"Cash","fare":"2"},
	  {"trip_start_timestamp":"2024-01-01T00:30:00","company":"B","payment_type":"Cash","fare":"3"},
	  {"trip_start_timestamp":"2024-01-01T00:40:00","company":"C","payment_type":"Cash"}
	]`
	tb, err := normalize.NormalizeTrips([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2024-01-01T00:10:00", "A", "Cash", "1", "2024-01-01 00:00:00"},
		{"2024-01-01T00:30:00", "B", "Cash", "3", "2024-01-01 00:00:00"},
	}, tb.Rows())
}

func TestNormalizeTrips_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind error
	}{
		{"syntax", `[{"company":`, exception.ErrMalformedInput},
		{"empty body", ``, exception.ErrMalformedInput},
		{"object at top level", `{"company":"A"}`, exception.ErrTypeContract},
		{"array of scalars", `[1,2]`, exception.ErrTypeContract},
		{"missing company column", `[{"trip_start_timestamp":"2024-01-01T00:00:00","payment_type":"Cash"}]`, exception.ErrMalformedInput},
		{"all rows null", `[{"trip_start_timestamp":"2024-01-01T00:00:00","company":null,"payment_type":"Cash"}]`, exception.ErrMalformedInput},
		{"empty array", `[]`, exception.ErrMalformedInput},
		{"bad timestamp", `[{"trip_start_timestamp":"yesterday","company":"A","payment_type":"Cash"}]`, exception.ErrMalformedInput},
		{"trailing data", `[] []`, exception.ErrMalformedInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalize.NormalizeTrips([]byte(tc.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestHourOf(t *testing.T) {
	h, err := normalize.HourOf("2024-03-05T14:37:22")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05 14:00:00", h)

	h, err = normalize.HourOf("2024-03-05T14:37:22.000")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05 14:00:00", h)

	_, err = normalize.HourOf("14:37")
	assert.Error(t, err)
}

func TestNormalizeWeather_TwoHours(t *testing.T) {
	raw := `{"latitude":41.85,"longitude":-87.65,"hourly":{
	  "time":["2024-03-05T00:00","2024-03-05T01:00"],
	  "temperature_2m":[1.2,0.8],
	  "wind_speed_10m":[10.5,9.0],
	  "precipitation":[0.0,0.1],
	  "rain":[0.0,null]}}`

	tb, err := normalize.NormalizeWeather([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"datetime", "temperature", "wind_speed", "precipitation", "rain"}, tb.Names())
	assert.Equal(t, [][]string{
		{"2024-03-05 00:00:00", "1.2", "10.5", "0.0", "0.0"},
		{"2024-03-05 01:00:00", "0.8", "9.0", "0.1", ""},
	}, tb.Rows())
}

func TestNormalizeWeather_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind error
	}{
		{"syntax", `{"hourly":`, exception.ErrMalformedInput},
		{"no hourly", `{"latitude":41.85}`, exception.ErrMalformedInput},
		{"missing series", `{"hourly":{"time":["2024-03-05T00:00"],"temperature_2m":[1],"wind_speed_10m":[1],"precipitation":[0]}}`, exception.ErrMalformedInput},
		{"unequal series", `{"hourly":{"time":["2024-03-05T00:00"],"temperature_2m":[1,2],"wind_speed_10m":[1],"precipitation":[0],"rain":[0]}}`, exception.ErrMalformedInput},
		{"bad time", `{"hourly":{"time":["05/03/2024"],"temperature_2m":[1],"wind_speed_10m":[1],"precipitation":[0],"rain":[0]}}`, exception.ErrMalformedInput},
		{"array at top level", `[]`, exception.ErrTypeContract},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalize.NormalizeWeather([]byte(tc.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}
