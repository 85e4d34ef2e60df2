package metrics

import (
	"context"

	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	metrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// RecorderParams holds the dependencies of NewMetricRecorder.
type RecorderParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Config     *coreConfig.Config
	Prometheus *PrometheusRecorder
}

// NewMetricRecorder returns the Prometheus recorder, fanned out to an OTLP push recorder
// when metrics.otlp.enabled is set.
func NewMetricRecorder(p RecorderParams) (metrics.MetricRecorder, error) {
	cfg := p.Config.Etl.Metrics
	if !cfg.OTLP.Enabled {
		return p.Prometheus, nil
	}
	mp, err := NewMeterProvider(context.Background(), cfg.OTLP, cfg.Tracing.ServiceName)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})
	otelRecorder, err := NewOTelMetricRecorder(mp)
	if err != nil {
		return nil, err
	}
	logger.Infof("Metrics: pushing run metrics to OTLP endpoint '%s' (%s).", cfg.OTLP.Endpoint, cfg.OTLP.Protocol)
	return MultiRecorder{p.Prometheus, otelRecorder}, nil
}

// NewTracer returns an OpenTelemetryTracer when tracing is enabled and a NoOpTracer otherwise.
func NewTracer(lc fx.Lifecycle, cfg *coreConfig.Config) (metrics.Tracer, error) {
	tc := cfg.Etl.Metrics.Tracing
	if !tc.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	tp, err := NewTracerProvider(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	logger.Infof("Tracing: exporting spans to OTLP endpoint '%s' (%s).", tc.OTLPEndpoint, tc.Protocol)
	return NewOpenTelemetryTracer(tp), nil
}

// Module is an Fx module that provides the MetricRecorder, the Tracer and the Prometheus registry owner.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
