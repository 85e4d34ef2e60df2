package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucket = "cubix-chicago-taxi"

const trips = `[
 {"trip_id":"t1","trip_start_timestamp":"2024-01-01T10:15:00.000","fare":"10.5","pickup_community_area":"8","dropoff_community_area":"32","company":"Yellow Cab","payment_type":"Cash"},
 {"trip_id":"t2","trip_start_timestamp":"2024-01-01T11:40:00.000","fare":"7","pickup_community_area":"8","dropoff_community_area":"8","company":"Blue Cab","payment_type":"Credit Card"}
]`

const weather = `{"latitude":41.85,"longitude":-87.65,"hourly":{
 "time":["2024-01-01T00:00"],
 "temperature_2m":[-3.1],"wind_speed_10m":[12.2],"precipitation":[0],"rain":[0]}}`

type env struct {
	t       *testing.T
	dir     string
	cfgPath string
}

func newEnv(t *testing.T, taxiEndpoint, weatherEndpoint string) *env {
	t.Helper()
	dir := t.TempDir()
	doc := fmt.Sprintf(`etl:
  layout:
    bucket: %q
  feeds:
    http:
      max_retries: 0
      retry_delay_millis: 1
    taxi:
      endpoint: %q
    weather:
      endpoint: %q
  storage:
    default:
      type: "local"
      base_dir: %q
  ledger:
    database_ref: "ledger"
    auto_migrate: true
  database:
    ledger:
      type: "sqlite"
      database: %q
  schedule:
    lock_file: %q
`, bucket, taxiEndpoint, weatherEndpoint,
		filepath.Join(dir, "blobs"), filepath.Join(dir, "ledger.db"), filepath.Join(dir, "taxietl.lock"))

	cfgPath := filepath.Join(dir, "application.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))
	return &env{t: t, dir: dir, cfgPath: cfgPath}
}

func (e *env) blob(key string) string {
	return filepath.Join(e.dir, "blobs", bucket, filepath.FromSlash(key))
}

func (e *env) put(key, body string) {
	e.t.Helper()
	path := e.blob(key)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.t, os.WriteFile(path, []byte(body), 0o644))
}

func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.cfgPath, "--log-level", "ERROR"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTransformCommand_ProcessesBacklogAndRecordsRun(t *testing.T) {
	e := newEnv(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	e.put("raw_data/to_processed/taxi_data/taxi_raw_2024-01-01.json", trips)
	e.put("raw_data/to_processed/weather_data/weather_raw_2024-01-01.json", weather)

	out, err := e.run("transform")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED: 2 files, 2 archived, 0 failed, 2 new companies, 2 new payment types")

	assert.FileExists(t, e.blob("raw_data/processed/taxi_data/taxi_raw_2024-01-01.json"))
	assert.FileExists(t, e.blob("raw_data/processed/weather_data/weather_raw_2024-01-01.json"))
	assert.NoFileExists(t, e.blob("raw_data/to_processed/taxi_data/taxi_raw_2024-01-01.json"))

	master, err := os.ReadFile(e.blob("transformed_data/company/company_master.csv"))
	require.NoError(t, err)
	assert.Equal(t, "company_id,company\n1,Yellow Cab\n2,Blue Cab\n", string(master))

	out, err = e.run("runs")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "cli")
}

func TestExtractCommand_WritesRawFiles(t *testing.T) {
	taxi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("$where"), "2024-01-01T00:00:00")
		w.Write([]byte(trips))
	}))
	defer taxi.Close()
	meteo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("start_date"))
		w.Write([]byte(weather))
	}))
	defer meteo.Close()

	e := newEnv(t, taxi.URL, meteo.URL)
	out, err := e.run("extract", "--date", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "taxi_raw_2024-01-01.json")

	body, err := os.ReadFile(e.blob("raw_data/to_processed/taxi_data/taxi_raw_2024-01-01.json"))
	require.NoError(t, err)
	assert.Equal(t, trips, string(body))
	assert.FileExists(t, e.blob("raw_data/to_processed/weather_data/weather_raw_2024-01-01.json"))
}

func TestExtractCommand_RejectsBadDate(t *testing.T) {
	e := newEnv(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	_, err := e.run("extract", "--date", "01/01/2024")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	e := newEnv(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	out, err := e.run("migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1 (dirty: false)")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"KEY", "ROWS"}, [][]string{{"taxi_raw_2024-01-01.json", "3"}, {"short"}},
		[]columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "taxi_raw_2024-01-01.json")
	assert.Empty(t, renderTable(nil, nil, nil))
}
