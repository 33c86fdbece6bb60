// Package observe instruments RPC requests, query fetches and mutations.
//
// An Observer owns the OpenTelemetry tracer and meter providers and a
// structured logger. Middleware wraps one operation with a span, three
// metrics and a log line, classifying failures as response errors or
// transport errors.
package observe
