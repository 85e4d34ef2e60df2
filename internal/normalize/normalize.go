// Package normalize turns raw feed payloads into clean tables.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

const module = "normalize"

// Trip columns.
const (
	ColTripStart            = "trip_start_timestamp"
	ColCompany              = "company"
	ColPaymentType          = "payment_type"
	ColPickupCommunityArea  = "pickup_community_area"
	ColDropoffCommunityArea = "dropoff_community_area"
	ColPickupAreaID         = "pickup_community_area_id"
	ColDropoffAreaID        = "dropoff_community_area_id"
	ColDatetimeForWeather   = "datetime_for_weather"
)

// Weather columns.
const (
	ColDatetime      = "datetime"
	ColTemperature   = "temperature"
	ColWindSpeed     = "wind_speed"
	ColPrecipitation = "precipitation"
	ColRain          = "rain"
)

// TimestampLayout is the text form of every normalized timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// DroppedTripColumns are never persisted downstream.
var DroppedTripColumns = []string{
	"pickup_census_tract",
	"dropoff_census_tract",
	"pickup_centroid_location",
	"dropoff_centroid_location",
}

var requiredTripColumns = []string{ColTripStart, ColCompany, ColPaymentType}

var tripTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// NormalizeTrips decodes a trip batch, drops the geographic columns and every row
// holding a null, renames the community areas and appends the hour used to join weather.
func NormalizeTrips(raw []byte) (*table.Table, error) {
	recs, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}

	dropped := make(map[string]struct{}, len(DroppedTripColumns))
	for _, c := range DroppedTripColumns {
		dropped[c] = struct{}{}
	}
	var columns []string
	for _, c := range recs.columns {
		if _, ok := dropped[c]; !ok {
			columns = append(columns, c)
		}
	}
	for _, c := range requiredTripColumns {
		if !contains(columns, c) {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("trip batch has no '%s' column", c), nil)
		}
	}

	rows := make([][]string, 0, len(recs.rows))
	hours := make([]string, 0, len(recs.rows))
rowLoop:
	for _, rec := range recs.rows {
		row := make([]string, len(columns))
		for j, c := range columns {
			v := rec[c]
			if v == nil {
				continue rowLoop
			}
			row[j] = *v
		}
		start, err := parseTripTimestamp(*rec[ColTripStart])
		if err != nil {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("unparseable %s '%s'", ColTripStart, *rec[ColTripStart]), err)
		}
		rows = append(rows, row)
		hours = append(hours, floorHour(start).Format(TimestampLayout))
	}
	if len(rows) == 0 {
		return nil, exception.NewMalformedInputError(module, fmt.Sprintf("trip batch is empty after removing null rows (%d raw records)", len(recs.rows)), nil)
	}

	t, err := table.New(columns, rows)
	if err != nil {
		return nil, exception.NewMalformedInputError(module, "failed to build trip table", err)
	}
	if t.Has(ColPickupCommunityArea) {
		if t, err = t.Rename(ColPickupCommunityArea, ColPickupAreaID); err != nil {
			return nil, err
		}
	}
	if t.Has(ColDropoffCommunityArea) {
		if t, err = t.Rename(ColDropoffCommunityArea, ColDropoffAreaID); err != nil {
			return nil, err
		}
	}
	return t.WithColumn(ColDatetimeForWeather, hours)
}

// weatherResponse is the subset of an Open-Meteo hourly response the pipeline keeps.
type weatherResponse struct {
	Hourly *struct {
		Time          []*string      `json:"time"`
		Temperature2m []*json.Number `json:"temperature_2m"`
		WindSpeed10m  []*json.Number `json:"wind_speed_10m"`
		Precipitation []*json.Number `json:"precipitation"`
		Rain          []*json.Number `json:"rain"`
	} `json:"hourly"`
}

// NormalizeWeather extracts the hourly series into one row per hour.
// No rows are dropped; a null measurement becomes an empty cell.
func NormalizeWeather(raw []byte) (*table.Table, error) {
	var resp weatherResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, exception.NewTypeContractError(module, "weather payload has an unexpected shape", err)
		}
		return nil, exception.NewMalformedInputError(module, "invalid weather JSON", err)
	}
	h := resp.Hourly
	if h == nil {
		return nil, exception.NewMalformedInputError(module, "weather payload has no 'hourly' object", nil)
	}

	series := map[string][]*json.Number{
		"temperature_2m": h.Temperature2m,
		"wind_speed_10m": h.WindSpeed10m,
		"precipitation":  h.Precipitation,
		"rain":           h.Rain,
	}
	if h.Time == nil {
		return nil, exception.NewMalformedInputError(module, "weather payload has no 'hourly.time' series", nil)
	}
	for name, s := range series {
		if s == nil {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("weather payload has no 'hourly.%s' series", name), nil)
		}
		if len(s) != len(h.Time) {
			return nil, exception.NewMalformedInputError(module,
				fmt.Sprintf("series 'hourly.%s' has %d values, 'hourly.time' has %d", name, len(s), len(h.Time)), nil)
		}
	}

	rows := make([][]string, len(h.Time))
	for i, ts := range h.Time {
		if ts == nil {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("null timestamp at hour %d", i), nil)
		}
		at, err := time.Parse("2006-01-02T15:04", *ts)
		if err != nil {
			return nil, exception.NewMalformedInputError(module, fmt.Sprintf("unparseable weather time '%s'", *ts), err)
		}
		rows[i] = []string{
			at.Format(TimestampLayout),
			number(h.Temperature2m[i]),
			number(h.WindSpeed10m[i]),
			number(h.Precipitation[i]),
			number(h.Rain[i]),
		}
	}

	t, err := table.New([]string{ColDatetime, ColTemperature, ColWindSpeed, ColPrecipitation, ColRain}, rows)
	if err != nil {
		return nil, exception.NewMalformedInputError(module, "failed to build weather table", err)
	}
	return t, nil
}

// HourOf floors a trip timestamp to the hour and formats it like datetime_for_weather.
func HourOf(ts string) (string, error) {
	t, err := parseTripTimestamp(ts)
	if err != nil {
		return "", err
	}
	return floorHour(t).Format(TimestampLayout), nil
}

func parseTripTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	var firstErr error
	for _, layout := range tripTimestampLayouts {
		t, err := time.Parse(layout, ts)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// floorHour truncates to the hour on the wall clock of the timestamp's own zone.
func floorHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func number(n *json.Number) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
