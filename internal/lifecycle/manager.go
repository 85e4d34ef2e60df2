// Package lifecycle moves every pending raw file through
// PENDING -> READ -> NORMALIZED -> RECONCILED -> TRANSFORMED -> ARCHIVED.
//
// Files are processed one at a time in listing order (taxi prefix first, then weather).
// A failure stops only the current file. A file that fails before it is archived stays
// at its pending prefix and is reprocessed from scratch by the next run; this is safe
// because master reconciliation is value based and curated objects are overwritten.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/chicago-taxi-etl/internal/curated"
	"github.com/tigerroll/chicago-taxi-etl/internal/join"
	"github.com/tigerroll/chicago-taxi-etl/internal/master"
	"github.com/tigerroll/chicago-taxi-etl/internal/normalize"
	"github.com/tigerroll/chicago-taxi-etl/internal/table"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

const module = "lifecycle"

// Params holds the dependencies of a Manager.
type Params struct {
	fx.In
	Storage       storageAdapter.StorageConnection
	Config        *coreConfig.Config
	RunListeners  []port.RunExecutionListener  `group:"run_listeners"`
	FileListeners []port.FileExecutionListener `group:"file_listeners"`
	Tracer        metrics.Tracer               `optional:"true"`
	Recorder      metrics.MetricRecorder       `optional:"true"`
}

// Manager runs the transform pipeline over the backlog of pending files.
type Manager struct {
	storage       storageAdapter.StorageExecutor
	layout        coreConfig.LayoutConfig
	writer        *curated.Writer
	masterStore   *master.Store
	runListeners  []port.RunExecutionListener
	fileListeners []port.FileExecutionListener
	tracer        metrics.Tracer
	recorder      metrics.MetricRecorder
}

// NewManager creates a Manager. A missing Tracer or Recorder falls back to a no-op.
func NewManager(p Params) *Manager {
	m := &Manager{
		storage:       p.Storage,
		layout:        p.Config.Etl.Layout,
		writer:        curated.NewWriter(p.Storage, p.Config),
		masterStore:   master.NewStore(p.Storage, &p.Config.Etl.Layout),
		runListeners:  p.RunListeners,
		fileListeners: p.FileListeners,
		tracer:        p.Tracer,
		recorder:      p.Recorder,
	}
	if m.tracer == nil {
		m.tracer = metrics.NewNoOpTracer()
	}
	if m.recorder == nil {
		m.recorder = metrics.NewNoOpMetricRecorder()
	}
	return m
}

// masters holds the master tables of one invocation. They are loaded on the first
// trip file and only advanced after a trip file is archived.
// A dirty table holds rows that no successful Save has persisted yet.
type masters struct {
	company          *master.Table
	paymentType      *master.Table
	companyDirty     bool
	paymentTypeDirty bool
}

// Run processes every pending file once. The returned RunExecution is always non-nil.
// The error aggregates every file failure plus any run-level failure.
func (m *Manager) Run(ctx context.Context, trigger string) (*model.RunExecution, error) {
	run := model.NewRunExecution(trigger)
	ctx, endSpan := m.tracer.StartRunSpan(ctx, run)
	defer endSpan()

	batches, runErr := storageAdapter.ListBatches(ctx, m.storage, m.layout.Bucket,
		storageAdapter.PendingSource{Type: storageAdapter.BatchTypeTaxi, Prefix: m.layout.TaxiPendingPrefix},
		storageAdapter.PendingSource{Type: storageAdapter.BatchTypeWeather, Prefix: m.layout.WeatherPendingPrefix},
	)
	files := make([]*model.FileExecution, len(batches))
	for i, b := range batches {
		files[i] = run.NewFileExecution(b.Type.String(), b.Key)
	}

	for _, l := range m.runListeners {
		l.BeforeRun(ctx, run)
	}

	var errs *multierror.Error
	if runErr != nil {
		runErr = exception.NewBatchError(module, "failed to list pending files", runErr, false, true)
		errs = multierror.Append(errs, runErr)
	} else {
		logger.Infof("Run %s: %d pending file(s).", run.ID, len(batches))
	}

	var state *masters
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			errs = multierror.Append(errs, err)
			break
		}
		if err := m.processFile(ctx, &state, b, files[i]); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", b.Key, err))
			if exception.IsFatal(err) {
				runErr = err
				break
			}
		}
	}

	run.Finish(runErr)
	for _, l := range m.runListeners {
		l.AfterRun(ctx, run)
	}
	return run, errs.ErrorOrNil()
}

// processFile runs one file through the lifecycle and notifies the file listeners.
func (m *Manager) processFile(ctx context.Context, state **masters, b storageAdapter.BatchDescriptor, fe *model.FileExecution) (err error) {
	ctx, endSpan := m.tracer.StartFileSpan(ctx, fe)
	defer endSpan()

	for _, l := range m.fileListeners {
		l.BeforeFile(ctx, fe)
	}
	defer func() {
		if err != nil {
			fe.MarkAsFailed(err)
		}
		for _, l := range m.fileListeners {
			l.AfterFile(ctx, fe)
		}
	}()

	raw, err := storageAdapter.ReadAll(ctx, m.storage, m.layout.Bucket, b.Key)
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("failed to read '%s'", b.Key), err, true, true)
	}
	if err := m.advance(ctx, fe, model.FileStateRead); err != nil {
		return err
	}

	var tb *table.Table
	switch b.Type {
	case storageAdapter.BatchTypeTaxi:
		tb, err = normalize.NormalizeTrips(raw)
	case storageAdapter.BatchTypeWeather:
		tb, err = normalize.NormalizeWeather(raw)
	default:
		err = exception.NewTypeContractError(module, fmt.Sprintf("unknown batch type '%s'", b.Type), nil)
	}
	if err != nil {
		return err
	}
	if err := m.advance(ctx, fe, model.FileStateNormalized); err != nil {
		return err
	}

	var updated *masters
	if b.Type == storageAdapter.BatchTypeTaxi {
		if *state == nil {
			loaded, err := m.loadMasters(ctx)
			if err != nil {
				return err
			}
			*state = loaded
		}
		if updated, tb, err = m.reconcile(*state, tb, fe); err != nil {
			return err
		}
		if err := m.advance(ctx, fe, model.FileStateReconciled); err != nil {
			return err
		}
	}

	start := time.Now()
	res, err := m.writer.Write(ctx, b.Type, tb)
	if err != nil {
		return exception.NewBatchError(module, "failed to write curated output", err, true, true)
	}
	m.recorder.RecordDuration(ctx, "curated_write", time.Since(start), map[string]string{"batch_type": b.Type.String()})
	fe.CuratedKey, fe.Rows = res.Key, res.Rows
	if err := m.advance(ctx, fe, model.FileStateTransformed); err != nil {
		return err
	}

	archiveKey, err := m.archive(ctx, b)
	if err != nil {
		return err
	}
	fe.ArchiveKey = archiveKey
	if err := m.advance(ctx, fe, model.FileStateArchived); err != nil {
		return err
	}

	if updated == nil {
		return nil
	}
	// The file is archived, so its ids are final for the rest of this invocation
	// even if persisting the tables fails below.
	updated.companyDirty = (*state).companyDirty || fe.NewCompanies > 0
	updated.paymentTypeDirty = (*state).paymentTypeDirty || fe.NewPaymentTypes > 0
	*state = updated
	return m.saveMasters(ctx, fe, updated)
}

// advance transitions fe and notifies the listeners.
func (m *Manager) advance(ctx context.Context, fe *model.FileExecution, next model.FileState) error {
	from := fe.State
	if err := fe.TransitionTo(next); err != nil {
		return exception.NewBatchError(module, "lifecycle violation", err, false, false)
	}
	for _, l := range m.fileListeners {
		l.OnTransition(ctx, fe, from)
	}
	return nil
}

func (m *Manager) loadMasters(ctx context.Context) (*masters, error) {
	company, err := m.masterStore.Load(ctx, master.Company)
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to load company master table", err, true, true)
	}
	paymentType, err := m.masterStore.Load(ctx, master.PaymentType)
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to load payment type master table", err, true, true)
	}
	return &masters{company: company, paymentType: paymentType}, nil
}

// reconcile grows both master tables with the batch values and joins their ids into the batch.
// current is left untouched.
func (m *Manager) reconcile(current *masters, trips *table.Table, fe *model.FileExecution) (*masters, *table.Table, error) {
	company, newCompanies, err := master.Reconcile(trips, current.company)
	if err != nil {
		return nil, nil, err
	}
	paymentType, newPaymentTypes, err := master.Reconcile(trips, current.paymentType)
	if err != nil {
		return nil, nil, err
	}
	joined, err := join.Join(trips, paymentType, company)
	if err != nil {
		return nil, nil, err
	}
	fe.NewCompanies, fe.NewPaymentTypes = newCompanies, newPaymentTypes
	return &masters{company: company, paymentType: paymentType}, joined, nil
}

// archive copies the raw file to its archive prefix, then deletes it from the pending prefix.
// The delete is never attempted when the copy failed.
func (m *Manager) archive(ctx context.Context, b storageAdapter.BatchDescriptor) (string, error) {
	prefix := m.layout.TaxiArchivePrefix
	if b.Type == storageAdapter.BatchTypeWeather {
		prefix = m.layout.WeatherArchivePrefix
	}
	archiveKey := prefix + b.FileName()

	if err := m.storage.Copy(ctx, m.layout.Bucket, b.Key, archiveKey); err != nil {
		return "", exception.NewPartialPipelineError(module,
			fmt.Sprintf("failed to copy '%s' to '%s'; the file stays pending", b.Key, archiveKey), err)
	}
	if err := m.storage.DeleteObject(ctx, m.layout.Bucket, b.Key); err != nil {
		return "", exception.NewPartialPipelineError(module,
			fmt.Sprintf("archived '%s' but failed to delete it from the pending prefix", b.Key), err)
	}
	logger.Infof("Archived '%s' to '%s'.", b.Key, archiveKey)
	return archiveKey, nil
}

// saveMasters persists every dirty table. A table stays dirty until its Save succeeds,
// so a later trip file retries a save that failed earlier in the invocation.
func (m *Manager) saveMasters(ctx context.Context, fe *model.FileExecution, state *masters) error {
	var errs *multierror.Error
	start := time.Now()
	for _, c := range []struct {
		table *master.Table
		dirty *bool
	}{
		{state.company, &state.companyDirty},
		{state.paymentType, &state.paymentTypeDirty},
	} {
		if !*c.dirty {
			continue
		}
		if err := m.masterStore.Save(ctx, c.table); err != nil {
			errs = multierror.Append(errs, exception.NewPartialPipelineError(module,
				fmt.Sprintf("failed to persist master table '%s'", c.table.Name), err))
			continue
		}
		*c.dirty = false
	}
	m.recorder.RecordDuration(ctx, "master_save", time.Since(start), map[string]string{"batch_type": fe.BatchType})
	if errs != nil {
		errs.ErrorFormat = joinErrors
	}
	return errs.ErrorOrNil()
}

// joinErrors keeps a multierror on one line so it fits a ledger column.
func joinErrors(es []error) string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
