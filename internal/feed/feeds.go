package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

// DateLayout is the ISO calendar date every feed is queried with.
const DateLayout = "2006-01-02"

// Feed returns the raw JSON of one day.
type Feed interface {
	Name() string
	Fetch(ctx context.Context, date time.Time) ([]byte, error)
}

// TaxiFeed queries the Socrata trips dataset of the City of Chicago.
type TaxiFeed struct {
	client *BaseClient
	cfg    coreConfig.TaxiFeedConfig
}

// NewTaxiFeed creates the trip feed.
func NewTaxiFeed(client *BaseClient, cfg coreConfig.TaxiFeedConfig) *TaxiFeed {
	return &TaxiFeed{client: client, cfg: cfg}
}

// Name returns "taxi".
func (f *TaxiFeed) Name() string { return "taxi" }

// URL returns the query for every trip started on date.
func (f *TaxiFeed) URL(date time.Time) string {
	d := date.Format(DateLayout)
	q := url.Values{}
	q.Set("$where", fmt.Sprintf("trip_start_timestamp >= '%sT00:00:00' AND trip_start_timestamp <= '%sT23:59:59'", d, d))
	q.Set("$limit", strconv.Itoa(f.cfg.Limit))
	return f.cfg.Endpoint + "?" + q.Encode()
}

// Fetch downloads the trips of date. The app token is sent when configured.
func (f *TaxiFeed) Fetch(ctx context.Context, date time.Time) ([]byte, error) {
	header := http.Header{}
	if f.cfg.AppToken != "" {
		header.Set("X-App-Token", f.cfg.AppToken)
	}
	body, err := f.client.GetWithRetry(ctx, f.URL(date), header)
	if err != nil {
		return nil, err
	}
	return body, checkJSON(f.Name(), body)
}

// WeatherFeed queries the Open-Meteo ERA5 archive for one location.
type WeatherFeed struct {
	client *BaseClient
	cfg    coreConfig.WeatherFeedConfig
}

// NewWeatherFeed creates the weather feed.
func NewWeatherFeed(client *BaseClient, cfg coreConfig.WeatherFeedConfig) *WeatherFeed {
	return &WeatherFeed{client: client, cfg: cfg}
}

// Name returns "weather".
func (f *WeatherFeed) Name() string { return "weather" }

// URL returns the hourly series query for date at the configured coordinates.
func (f *WeatherFeed) URL(date time.Time) string {
	d := date.Format(DateLayout)
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(f.cfg.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(f.cfg.Longitude, 'f', -1, 64))
	q.Set("start_date", d)
	q.Set("end_date", d)
	q.Set("hourly", f.cfg.Hourly)
	return f.cfg.Endpoint + "?" + q.Encode()
}

// Fetch downloads the hourly weather of date.
func (f *WeatherFeed) Fetch(ctx context.Context, date time.Time) ([]byte, error) {
	body, err := f.client.GetWithRetry(ctx, f.URL(date), nil)
	if err != nil {
		return nil, err
	}
	return body, checkJSON(f.Name(), body)
}

// checkJSON refuses bodies that would only fail later, at transform time.
func checkJSON(name string, body []byte) error {
	if !json.Valid(body) {
		return exception.NewSourceError(module, fmt.Sprintf("%s feed returned a body that is not JSON", name), nil)
	}
	return nil
}

// NewFeeds builds both feeds, each with its own circuit breaker.
func NewFeeds(cfg *coreConfig.Config, logger *zap.Logger, recorder metrics.MetricRecorder) []Feed {
	feeds := cfg.Etl.Feeds
	return []Feed{
		NewTaxiFeed(NewBaseClient("taxi", feeds.HTTP, logger, recorder), feeds.Taxi),
		NewWeatherFeed(NewBaseClient("weather", feeds.HTTP, logger, recorder), feeds.Weather),
	}
}

var (
	_ Feed = (*TaxiFeed)(nil)
	_ Feed = (*WeatherFeed)(nil)
)
