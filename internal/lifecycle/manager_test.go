package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chicago-taxi-etl/internal/curated"
	"github.com/tigerroll/chicago-taxi-etl/internal/lifecycle"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/local"
	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

const (
	bucket         = "cubix-chicago-taxi"
	taxiPending    = "raw_data/to_processed/taxi_data/"
	weatherPending = "raw_data/to_processed/weather_data/"
	companyMaster  = "transformed_data/company/company_master.csv"
	paymentMaster  = "transformed_data/payment_type/payment_type_master.csv"
	companyBackup  = "transformed_data/master_table_previous_version/company_master_previous_version.csv"
)

const blueCabTrips = `[
 {"trip_id":"t1","trip_start_timestamp":"2024-01-01T10:15:00.000","fare":"10.5","pickup_community_area":"8","dropoff_community_area":"32","company":"Yellow Cab","payment_type":"Cash"},
 {"trip_id":"t2","trip_start_timestamp":"2024-01-01T11:40:00.000","fare":"7","pickup_community_area":"8","dropoff_community_area":"8","company":"Blue Cab","payment_type":"Credit Card"},
 {"trip_id":"t3","trip_start_timestamp":"2024-01-01T12:05:00.000","fare":"3.25","pickup_community_area":"76","dropoff_community_area":"8","company":"Blue Cab","payment_type":"Cash"}
]`

const redCabTrips = `[
 {"trip_id":"t4","trip_start_timestamp":"2024-01-02T09:00:00.000","fare":"5","pickup_community_area":"1","dropoff_community_area":"2","company":"Red Cab","payment_type":"Cash"},
 {"trip_id":"t5","trip_start_timestamp":"2024-01-02T09:30:00.000","fare":"6","pickup_community_area":"1","dropoff_community_area":"2","company":"Blue Cab","payment_type":"Cash"}
]`

const twoHourWeather = `{"latitude":41.85,"longitude":-87.65,"hourly":{
 "time":["2024-01-01T00:00","2024-01-01T01:00"],
 "temperature_2m":[-3.1,-3.4],"wind_speed_10m":[12.2,11.9],"precipitation":[0,0.1],"rain":[0,0]}}`

type fixture struct {
	t       *testing.T
	ctx     context.Context
	cfg     *coreConfig.Config
	storage storageAdapter.StorageConnection
	events  *recordingListener
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "test")
	require.NoError(t, err)
	cfg := coreConfig.NewConfig()
	cfg.Etl.Layout.Bucket = bucket
	return &fixture{t: t, ctx: context.Background(), cfg: cfg, storage: conn, events: &recordingListener{}}
}

func (f *fixture) put(key, body string) {
	f.t.Helper()
	require.NoError(f.t, f.storage.Upload(f.ctx, bucket, key, strings.NewReader(body), "application/json"))
}

func (f *fixture) get(key string) string {
	f.t.Helper()
	body, err := storageAdapter.ReadAll(f.ctx, f.storage, bucket, key)
	require.NoError(f.t, err, key)
	return string(body)
}

func (f *fixture) exists(key string) bool {
	f.t.Helper()
	ok, err := storageAdapter.Exists(f.ctx, f.storage, bucket, key)
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) manager(s storageAdapter.StorageConnection) *lifecycle.Manager {
	if s == nil {
		s = f.storage
	}
	return lifecycle.NewManager(lifecycle.Params{
		Storage:       s,
		Config:        f.cfg,
		RunListeners:  []port.RunExecutionListener{f.events},
		FileListeners: []port.FileExecutionListener{f.events},
	})
}

func (f *fixture) column(key, column string) []string {
	f.t.Helper()
	tb, err := curated.Read(f.ctx, f.storage, bucket, key)
	require.NoError(f.t, err)
	values, err := tb.Column(column)
	require.NoError(f.t, err)
	return values
}

type recordingListener struct {
	runsStarted  int
	runsFinished []*model.RunExecution
	transitions  map[string][]model.FileState
	finished     []string
}

func (l *recordingListener) BeforeRun(ctx context.Context, run *model.RunExecution) { l.runsStarted++ }
func (l *recordingListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	l.runsFinished = append(l.runsFinished, run)
}
func (l *recordingListener) BeforeFile(ctx context.Context, file *model.FileExecution) {}
func (l *recordingListener) OnTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	if l.transitions == nil {
		l.transitions = map[string][]model.FileState{}
	}
	l.transitions[file.Key] = append(l.transitions[file.Key], file.State)
}
func (l *recordingListener) AfterFile(ctx context.Context, file *model.FileExecution) {
	l.finished = append(l.finished, file.Key)
}

func TestRun_BlueCabScenario(t *testing.T) {
	f := newFixture(t)
	f.put(companyMaster, "company_id,company\n1,Yellow Cab\n2,Flash Cab\n")
	f.put(paymentMaster, "payment_type_id,payment_type\n1,Cash\n")
	rawKey := taxiPending + "taxi_raw_2024-01-01.json"
	f.put(rawKey, blueCabTrips)

	run, err := f.manager(nil).Run(f.ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.FilesArchived)
	assert.Equal(t, 1, run.NewCompanies)
	assert.Equal(t, 1, run.NewPaymentTypes)

	assert.Equal(t, "company_id,company\n1,Yellow Cab\n2,Flash Cab\n3,Blue Cab\n", f.get(companyMaster))
	assert.Equal(t, "company_id,company\n1,Yellow Cab\n2,Flash Cab\n", f.get(companyBackup))
	assert.Equal(t, "payment_type_id,payment_type\n1,Cash\n2,Credit Card\n", f.get(paymentMaster))

	curatedKey := "transformed_data/taxi_trips/taxi_2024-01-01.csv"
	assert.Equal(t, curatedKey, run.FileExecutions[0].CuratedKey)
	assert.Equal(t, []string{"1", "3", "3"}, f.column(curatedKey, "company_id"))
	assert.Equal(t, []string{"1", "2", "1"}, f.column(curatedKey, "payment_type_id"))

	archiveKey := "raw_data/processed/taxi_data/taxi_raw_2024-01-01.json"
	assert.False(t, f.exists(rawKey))
	assert.Equal(t, blueCabTrips, f.get(archiveKey), "archive holds identical content")

	assert.Equal(t, []model.FileState{
		model.FileStateRead, model.FileStateNormalized, model.FileStateReconciled,
		model.FileStateTransformed, model.FileStateArchived,
	}, f.events.transitions[rawKey])
	assert.Equal(t, 1, f.events.runsStarted)
	require.Len(t, f.events.runsFinished, 1)
}

func TestRun_IdsContinueAcrossFilesAndEmptyMastersStartAtOne(t *testing.T) {
	f := newFixture(t)
	f.put(taxiPending+"taxi_raw_2024-01-01.json", blueCabTrips)
	f.put(taxiPending+"taxi_raw_2024-01-02.json", redCabTrips)

	run, err := f.manager(nil).Run(f.ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, run.FilesArchived)

	assert.Equal(t, "company_id,company\n1,Yellow Cab\n2,Blue Cab\n3,Red Cab\n", f.get(companyMaster))
	assert.Equal(t, "company_id,company\n1,Yellow Cab\n2,Blue Cab\n", f.get(companyBackup),
		"the backup slot holds the version before the last save")
	assert.Equal(t, []string{"3", "2"}, f.column("transformed_data/taxi_trips/taxi_2024-01-02.csv", "company_id"))
}

func TestRun_ReprocessingAddsNoMasterRows(t *testing.T) {
	f := newFixture(t)
	rawKey := taxiPending + "taxi_raw_2024-01-01.json"
	f.put(rawKey, blueCabTrips)
	_, err := f.manager(nil).Run(f.ctx, "test")
	require.NoError(t, err)
	before := f.get(companyMaster)

	f.put(rawKey, blueCabTrips)
	run, err := f.manager(nil).Run(f.ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 0, run.NewCompanies)
	assert.Equal(t, 0, run.NewPaymentTypes)
	assert.Equal(t, before, f.get(companyMaster))
}

func TestRun_WeatherOnly(t *testing.T) {
	f := newFixture(t)
	rawKey := weatherPending + "weather_raw_2024-01-01.json"
	f.put(rawKey, twoHourWeather)
	f.put(weatherPending+"README.md", "not a batch")

	run, err := f.manager(nil).Run(f.ctx, "test")
	require.NoError(t, err)
	require.Len(t, run.FileExecutions, 1, "non-json entries are not batches")

	curatedKey := "transformed_data/weather/weather_2024-01-01.csv"
	assert.Equal(t, []string{"2024-01-01 00:00:00", "2024-01-01 01:00:00"}, f.column(curatedKey, "datetime"))
	assert.Equal(t, twoHourWeather, f.get("raw_data/processed/weather_data/weather_raw_2024-01-01.json"))
	assert.True(t, f.exists(weatherPending+"README.md"))
	assert.False(t, f.exists(companyMaster), "weather never touches master tables")

	assert.Equal(t, []model.FileState{
		model.FileStateRead, model.FileStateNormalized, model.FileStateTransformed, model.FileStateArchived,
	}, f.events.transitions[rawKey])
}

func TestRun_MalformedFileDoesNotBlockTheNext(t *testing.T) {
	f := newFixture(t)
	badKey := taxiPending + "taxi_raw_2024-01-01.json"
	goodKey := taxiPending + "taxi_raw_2024-01-02.json"
	f.put(badKey, `[{"trip_start_timestamp": "2024-01-01T00:00:00"`)
	f.put(goodKey, redCabTrips)
	f.put(weatherPending+"weather_raw_2024-01-01.json", twoHourWeather)

	run, err := f.manager(nil).Run(f.ctx, "test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrMalformedInput))

	assert.Equal(t, model.RunStatusCompletedWithErrors, run.Status)
	assert.Equal(t, 2, run.FilesArchived)
	assert.Equal(t, 1, run.FilesFailed)
	require.Len(t, run.Failures, 1)
	assert.Contains(t, run.Failures[0], badKey)

	bad := run.FileExecutions[0]
	assert.True(t, bad.Failed)
	assert.Equal(t, model.FileStateRead, bad.State)
	assert.Equal(t, exception.KindMalformedInput.String(), bad.ErrorKind)
	assert.True(t, f.exists(badKey), "a failed file stays pending")
	assert.False(t, f.exists(goodKey))
	assert.Equal(t, []string{badKey, goodKey, weatherPending + "weather_raw_2024-01-01.json"}, f.events.finished)
}

// failingCopy refuses every Copy.
type failingCopy struct {
	storageAdapter.StorageConnection
}

func (failingCopy) Copy(ctx context.Context, bucket, src, dst string) error {
	return errors.New("copy refused")
}

func TestRun_FailedArchiveLeavesFilePendingAndMastersUntouched(t *testing.T) {
	f := newFixture(t)
	rawKey := taxiPending + "taxi_raw_2024-01-01.json"
	f.put(rawKey, blueCabTrips)

	run, err := f.manager(failingCopy{f.storage}).Run(f.ctx, "test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrPartialPipeline))

	fe := run.FileExecutions[0]
	assert.True(t, fe.Failed)
	assert.Equal(t, model.FileStateTransformed, fe.State)
	assert.True(t, f.exists(rawKey))
	assert.True(t, f.exists("transformed_data/taxi_trips/taxi_2024-01-01.csv"), "no rollback of the curated write")
	assert.False(t, f.exists(companyMaster))

	// The next run reprocesses the file from scratch.
	run, err = f.manager(nil).Run(f.ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, run.FilesArchived)
	assert.Equal(t, "company_id,company\n1,Yellow Cab\n2,Blue Cab\n", f.get(companyMaster))
}

// refuseUploadOnce fails the first Upload of key and passes everything else through.
type refuseUploadOnce struct {
	storageAdapter.StorageConnection
	key     string
	refused *bool
}

func (r refuseUploadOnce) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	if objectName == r.key && !*r.refused {
		*r.refused = true
		return errors.New("upload refused")
	}
	return r.StorageConnection.Upload(ctx, bucket, objectName, data, contentType)
}

func TestRun_FailedMasterSaveIsRepairedByTheNextTripFile(t *testing.T) {
	f := newFixture(t)
	f.put(companyMaster, "company_id,company\n1,Yellow Cab\n2,Flash Cab\n")
	f.put(paymentMaster, "payment_type_id,payment_type\n1,Cash\n")
	f.put(taxiPending+"taxi_raw_2024-01-01.json", blueCabTrips)
	f.put(taxiPending+"taxi_raw_2024-01-02.json", `[
 {"trip_id":"t9","trip_start_timestamp":"2024-01-02T08:00:00.000","fare":"4","pickup_community_area":"8","dropoff_community_area":"8","company":"Blue Cab","payment_type":"Cash"}
]`)

	refused := false
	run, err := f.manager(refuseUploadOnce{StorageConnection: f.storage, key: companyMaster, refused: &refused}).Run(f.ctx, "test")
	require.Error(t, err)
	assert.True(t, refused)
	assert.True(t, errors.Is(err, exception.ErrPartialPipeline))
	assert.Equal(t, 0, run.FileExecutions[1].NewCompanies, "the second file adds no company of its own")

	assert.Equal(t, []string{"1", "3", "3"}, f.column("transformed_data/taxi_trips/taxi_2024-01-01.csv", "company_id"))
	assert.Equal(t, []string{"3"}, f.column("transformed_data/taxi_trips/taxi_2024-01-02.csv", "company_id"))
	assert.Equal(t, "company_id,company\n1,Yellow Cab\n2,Flash Cab\n3,Blue Cab\n", f.get(companyMaster))
	assert.Equal(t, "payment_type_id,payment_type\n1,Cash\n2,Credit Card\n", f.get(paymentMaster))
	assert.False(t, f.exists(taxiPending+"taxi_raw_2024-01-02.json"))
}

func TestRun_EmptyBacklog(t *testing.T) {
	f := newFixture(t)
	run, err := f.manager(nil).Run(f.ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 0, run.FilesTotal)
	assert.NotNil(t, run.EndTime)
}
