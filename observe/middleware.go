package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/rpcquery/response"
)

// ExecuteFunc is one observable operation.
type ExecuteFunc func(ctx context.Context, meta OperationMeta) (*response.Result, error)

// Middleware wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a function safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Wrap returns fn instrumented.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta OperationMeta) (*response.Result, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		res, err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, res, err)
		m.metrics.Record(ctx, meta, duration, res, err)

		log := m.logger.WithOperation(meta)
		fields := []Field{F("duration_ms", float64(duration.Microseconds())/1000)}
		if status := statusOf(res, err); status != 0 {
			fields = append(fields, F("status", status))
		}
		if err != nil {
			fields = append(fields, F("error", err.Error()), F("error_type", ErrorType(err)))
			if response.IsResponseError(err) {
				log.Warn(ctx, meta.Kind+" returned an error response", fields...)
			} else {
				log.Error(ctx, meta.Kind+" failed", fields...)
			}
		} else {
			log.Debug(ctx, meta.Kind+" completed", fields...)
		}

		return res, err
	}
}

// Run executes fn once through the middleware. A nil Middleware runs fn
// directly.
func (m *Middleware) Run(ctx context.Context, meta OperationMeta, fn ExecuteFunc) (*response.Result, error) {
	if m == nil {
		return fn(ctx, meta)
	}
	return m.Wrap(fn)(ctx, meta)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
