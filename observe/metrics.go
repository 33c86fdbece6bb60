package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/rpcquery/response"
)

// Metric names.
const (
	MetricRequestsTotal    = "rpcquery.requests.total"
	MetricRequestsErrors   = "rpcquery.requests.errors"
	MetricRequestsDuration = "rpcquery.requests.duration_ms"
)

// Metrics records operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	Record(ctx context.Context, meta OperationMeta, duration time.Duration, res *response.Result, err error)
}

type metricsImpl struct {
	total    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the operation instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	total, err := meter.Int64Counter(
		MetricRequestsTotal,
		metric.WithDescription("Total number of RPC operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		MetricRequestsErrors,
		metric.WithDescription("Total number of failed RPC operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		MetricRequestsDuration,
		metric.WithDescription("RPC operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{total: total, errors: errs, duration: duration}, nil
}

func (m *metricsImpl) Record(ctx context.Context, meta OperationMeta, duration time.Duration, res *response.Result, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("rpc.method", meta.Method),
		attribute.String("rpc.path", meta.Path),
		attribute.String("rpcquery.kind", meta.Kind),
	}
	if status := statusOf(res, err); status != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}
	opt := metric.WithAttributes(attrs...)

	m.total.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error.type", ErrorType(err)))...))
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func statusOf(res *response.Result, err error) int {
	if re, ok := response.AsResponseError(err); ok {
		return re.Status
	}
	if res != nil {
		return res.Status
	}
	return 0
}

type noopMetrics struct{}

// NewNoopMetrics returns metrics that record nothing.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) Record(context.Context, OperationMeta, time.Duration, *response.Result, error) {}
