// Package feed fetches one day of raw trip and weather records from the public APIs.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

const module = "feed"

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// errClientStatus marks 4xx answers other than 429; they are not retried.
var errClientStatus = errors.New("client error status")

// BaseClient performs GET requests with exponential backoff behind a circuit breaker.
type BaseClient struct {
	name           string
	client         HTTPClient
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
	recorder       metrics.MetricRecorder
	maxRetries     int
	retryDelay     time.Duration
	multiplier     float64
}

// NewBaseClient builds a client named after its feed from the feeds.http settings.
func NewBaseClient(name string, cfg coreConfig.HTTPConfig, logger *zap.Logger, recorder metrics.MetricRecorder) *BaseClient {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	breakerSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     time.Duration(cfg.BreakerTimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("feed", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	return &BaseClient{
		name:           name,
		client:         httpClient,
		logger:         logger,
		circuitBreaker: gobreaker.NewCircuitBreaker(breakerSettings),
		recorder:       recorder,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     time.Duration(cfg.RetryDelayMillis) * time.Millisecond,
		multiplier:     multiplier,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *BaseClient) WithHTTPClient(client HTTPClient) *BaseClient {
	c.client = client
	return c
}

// GetWithRetry returns the body of a 2xx answer to a GET of url. Failures are source errors.
func (c *BaseClient) GetWithRetry(ctx context.Context, url string, header http.Header) ([]byte, error) {
	start := time.Now()
	body, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doGetWithRetry(ctx, url, header)
	})

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
	case err != nil:
		outcome = "error"
	}
	c.recorder.RecordFeedRequest(ctx, c.name, outcome, time.Since(start))

	if err != nil {
		return nil, exception.NewSourceError(module, fmt.Sprintf("%s feed request failed", c.name), err)
	}
	return body.([]byte), nil
}

func (c *BaseClient) doGetWithRetry(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retryDelay) * math.Pow(c.multiplier, float64(attempt-1)))
			c.logger.Debug("Retrying request",
				zap.String("feed", c.name),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request failed: %w", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("HTTP request failed",
				zap.String("feed", c.name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = err
				continue
			}
			c.logger.Debug("Request successful",
				zap.String("feed", c.name),
				zap.Int("status", resp.StatusCode),
				zap.Int("body_size", len(body)))
			return body, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)

		// Client errors other than rate limiting will not improve on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", errClientStatus, lastErr)
		}
	}

	return nil, fmt.Errorf("max retries exceeded, last error: %w", lastErr)
}
