// Package extract downloads one day of raw records from each feed into the pending prefixes.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/chicago-taxi-etl/internal/feed"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

const module = "extract"

// Params holds the dependencies of an Extractor.
type Params struct {
	fx.In
	Storage  storageAdapter.StorageConnection
	Config   *coreConfig.Config
	Feeds    []feed.Feed
	Recorder metrics.MetricRecorder `optional:"true"`
}

// Extractor writes raw feed bodies to the blob store without touching their content.
type Extractor struct {
	storage  storageAdapter.StorageExecutor
	layout   coreConfig.LayoutConfig
	feeds    []feed.Feed
	recorder metrics.MetricRecorder
}

// Result is one uploaded raw object.
type Result struct {
	Feed  string
	Key   string
	Bytes int
}

// NewExtractor creates an Extractor.
func NewExtractor(p Params) *Extractor {
	recorder := p.Recorder
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &Extractor{
		storage:  p.Storage,
		layout:   p.Config.Etl.Layout,
		feeds:    p.Feeds,
		recorder: recorder,
	}
}

// Key returns the pending object name of feedName's file for date.
func Key(layout coreConfig.LayoutConfig, feedName string, date time.Time) (string, error) {
	d := date.Format(feed.DateLayout)
	switch storageAdapter.BatchType(feedName) {
	case storageAdapter.BatchTypeTaxi:
		return layout.TaxiPendingPrefix + "taxi_raw_" + d + ".json", nil
	case storageAdapter.BatchTypeWeather:
		return layout.WeatherPendingPrefix + "weather_raw_" + d + ".json", nil
	default:
		return "", exception.NewConfigError(module, fmt.Sprintf("no pending prefix for feed '%s'", feedName), nil)
	}
}

// Extract fetches every feed for date. A failing feed does not prevent the others
// from being written; all failures are returned together.
func (e *Extractor) Extract(ctx context.Context, date time.Time) ([]Result, error) {
	var errs *multierror.Error
	results := make([]Result, 0, len(e.feeds))

	for _, f := range e.feeds {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		res, err := e.extractOne(ctx, f, date)
		if err != nil {
			logger.Errorf("Extraction of the %s feed for %s failed: %v", f.Name(), date.Format(feed.DateLayout), err)
			errs = multierror.Append(errs, err)
			continue
		}
		logger.Infof("Extracted %d bytes from the %s feed to '%s'.", res.Bytes, res.Feed, res.Key)
		results = append(results, *res)
	}
	return results, errs.ErrorOrNil()
}

func (e *Extractor) extractOne(ctx context.Context, f feed.Feed, date time.Time) (*Result, error) {
	key, err := Key(e.layout, f.Name(), date)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := f.Fetch(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := e.storage.Upload(ctx, e.layout.Bucket, key, bytes.NewReader(body), "application/json"); err != nil {
		return nil, exception.NewSourceError(module, fmt.Sprintf("failed to upload '%s'", key), err)
	}
	e.recorder.RecordDuration(ctx, "extract", time.Since(start), map[string]string{"batch_type": f.Name()})
	return &Result{Feed: f.Name(), Key: key, Bytes: len(body)}, nil
}

// DefaultDate is now minus lagMonths, as a calendar day in timezone.
func DefaultDate(now time.Time, lagMonths int, timezone string) (time.Time, error) {
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, exception.NewConfigError(module, fmt.Sprintf("unknown timezone '%s'", timezone), err)
		}
		loc = l
	}
	d := now.In(loc).AddDate(0, -lagMonths, 0)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), nil
}

// ParseDate parses a YYYY-MM-DD date given on the command line.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(feed.DateLayout, s)
	if err != nil {
		return time.Time{}, exception.NewConfigError(module, fmt.Sprintf("invalid date '%s', expected YYYY-MM-DD", s), err)
	}
	return d, nil
}
