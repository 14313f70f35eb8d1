// Package observability wires job and watcher metrics to a Prometheus
// exporter through the OpenTelemetry metric API.
package observability

import (
	"context"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the application meters. All recording helpers are nil-safe
// so tests can pass a nil *Metrics.
type Metrics struct {
	meter metric.Meter

	JobsCreated   metric.Int64Counter
	JobsCompleted metric.Int64Counter
	JobsFailed    metric.Int64Counter
	JobDuration   metric.Float64Histogram
	JobsActive    metric.Int64UpDownCounter

	WatchersActive metric.Int64UpDownCounter
}

// New creates the metrics and returns the handler serving them. A private
// Prometheus registry is used so repeated construction (tests) never
// collides on the default registerer.
func New() (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("proofd")
	m := &Metrics{meter: meter}

	m.JobsCreated, err = meter.Int64Counter(
		"jobs_created_total",
		metric.WithDescription("Total number of proof jobs accepted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsCompleted, err = meter.Int64Counter(
		"jobs_completed_total",
		metric.WithDescription("Total number of jobs that produced a proof"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsFailed, err = meter.Int64Counter(
		"jobs_failed_total",
		metric.WithDescription("Total number of jobs that ended in failure"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobDuration, err = meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Job execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		"jobs_active",
		metric.WithDescription("Number of currently running jobs"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.WatchersActive, err = meter.Int64UpDownCounter(
		"watchers_active",
		metric.WithDescription("Number of open watcher connections"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

func (m *Metrics) JobCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.JobsCreated.Add(ctx, 1)
	m.JobsActive.Add(ctx, 1)
}

func (m *Metrics) JobCompleted(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.JobsCompleted.Add(ctx, 1)
	m.JobsActive.Add(ctx, -1)
	m.JobDuration.Record(ctx, seconds)
}

func (m *Metrics) JobFailed(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.JobsFailed.Add(ctx, 1)
	m.JobsActive.Add(ctx, -1)
	m.JobDuration.Record(ctx, seconds)
}

func (m *Metrics) WatcherOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.WatchersActive.Add(ctx, 1)
}

func (m *Metrics) WatcherClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.WatchersActive.Add(ctx, -1)
}
