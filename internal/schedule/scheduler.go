// Package schedule triggers extraction and transformation from cron expressions.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tigerroll/chicago-taxi-etl/internal/extract"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// TriggerSchedule is recorded as the trigger of runs started by the scheduler.
const TriggerSchedule = "schedule"

// Extractor is satisfied by *extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, date time.Time) ([]extract.Result, error)
}

// Transformer is satisfied by *lifecycle.Manager.
type Transformer interface {
	Run(ctx context.Context, trigger string) (*model.RunExecution, error)
}

// JobStatus is the outcome of the latest invocation of one job.
type JobStatus struct {
	LastStart time.Time `json:"last_start"`
	LastEnd   time.Time `json:"last_end"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

// Status is a snapshot reported by /healthz.
type Status struct {
	Running       bool      `json:"running"`
	ExtractCron   string    `json:"extract_cron"`
	TransformCron string    `json:"transform_cron"`
	NextExtract   time.Time `json:"next_extract"`
	NextTransform time.Time `json:"next_transform"`
	Extract       JobStatus `json:"extract"`
	Transform     JobStatus `json:"transform"`
}

// Scheduler runs the extract and transform jobs on their cron schedules.
type Scheduler struct {
	extractor   Extractor
	transformer Transformer
	cfg         *coreConfig.Config
	logger      *zap.Logger
	now         func() time.Time

	cron        *cron.Cron
	extractID   cron.EntryID
	transformID cron.EntryID

	mu        sync.Mutex
	running   bool
	extract   JobStatus
	transform JobStatus
}

// NewScheduler creates a Scheduler. Nothing runs until Start.
func NewScheduler(extractor Extractor, transformer Transformer, cfg *coreConfig.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		extractor:   extractor,
		transformer: transformer,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the clock used to compute the default extraction date.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start registers both jobs and starts the cron loop. Overlapping invocations of a job are skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	loc := time.UTC
	if tz := s.cfg.Etl.System.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("load timezone %s: %w", tz, err)
		}
		loc = l
	}

	cl := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	sc := s.cfg.Etl.Schedule
	var err error
	if s.extractID, err = c.AddFunc(sc.ExtractCron, func() { _ = s.RunExtract(context.Background()) }); err != nil {
		return fmt.Errorf("invalid extract cron '%s': %w", sc.ExtractCron, err)
	}
	if s.transformID, err = c.AddFunc(sc.TransformCron, func() { _ = s.RunTransform(context.Background()) }); err != nil {
		return fmt.Errorf("invalid transform cron '%s': %w", sc.TransformCron, err)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("Scheduler started",
		zap.String("extract_cron", sc.ExtractCron),
		zap.String("transform_cron", sc.TransformCron),
		zap.Time("next_extract", c.Entry(s.extractID).Next),
		zap.Time("next_transform", c.Entry(s.transformID).Next))
	return nil
}

// Stop stops the cron loop and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunExtract extracts the default date of both feeds.
func (s *Scheduler) RunExtract(ctx context.Context) error {
	start := s.begin(&s.extract)
	date, err := extract.DefaultDate(s.now(), s.cfg.Etl.Feeds.LagMonths, s.cfg.Etl.System.Timezone)
	if err == nil {
		var results []extract.Result
		results, err = s.extractor.Extract(ctx, date)
		s.logger.Info("Scheduled extraction finished",
			zap.String("date", date.Format("2006-01-02")),
			zap.Int("files", len(results)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
	s.end(&s.extract, err)
	return err
}

// RunTransform runs the lifecycle over the backlog under the transform lock.
func (s *Scheduler) RunTransform(ctx context.Context) error {
	start := s.begin(&s.transform)
	err := WithLock(s.cfg.Etl.Schedule.LockFile, func() error {
		run, err := s.transformer.Run(ctx, TriggerSchedule)
		if run != nil {
			s.logger.Info("Scheduled transform finished",
				zap.String("run_id", run.ID),
				zap.String("status", run.Status.String()),
				zap.Int("archived", run.FilesArchived),
				zap.Int("failed", run.FilesFailed),
				zap.Duration("duration", time.Since(start)))
		}
		return err
	})
	if errors.Is(err, ErrLocked) {
		s.logger.Warn("Skipping scheduled transform", zap.Error(err))
	} else if err != nil {
		s.logger.Error("Scheduled transform failed", zap.Error(err))
	}
	s.end(&s.transform, err)
	return err
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:       s.running,
		ExtractCron:   s.cfg.Etl.Schedule.ExtractCron,
		TransformCron: s.cfg.Etl.Schedule.TransformCron,
		Extract:       s.extract,
		Transform:     s.transform,
	}
	if s.cron != nil {
		st.NextExtract = s.cron.Entry(s.extractID).Next
		st.NextTransform = s.cron.Entry(s.transformID).Next
	}
	return st
}

func (s *Scheduler) begin(js *JobStatus) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	js.LastStart = time.Now()
	js.Runs++
	return js.LastStart
}

func (s *Scheduler) end(js *JobStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	js.LastEnd = time.Now()
	js.LastError = ""
	if err != nil {
		js.LastError = err.Error()
	}
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
