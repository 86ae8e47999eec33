// Package observability provides the logging, metrics and tracing used by
// the conversion and evaluation commands.
//
// # Logging
//
// Logger wraps slog with level and format selection, run correlation fields
// taken from the context (run_id, collection, retriever) and redaction of
// credentials that tend to appear in source DSNs and endpoints:
//
//	logger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	ctx = observability.AddRunID(ctx, runID)
//	logger.Info(ctx, "converted rows", "rows", 100000, "shards", 1)
//
// # Metrics
//
// Metrics are Prometheus counters, gauges and histograms kept on a private
// registry. Commands are short-lived, so instead of serving /metrics the
// registry is written once in the textfile format:
//
//	metrics := observability.NewMetrics()
//	metrics.QuestionScored("passages", true)
//	_ = metrics.WriteTextfile("nqbench.prom")
//
// # Tracing
//
// Tracer creates OpenTelemetry spans for conversion passes, evaluation runs
// and individual search requests. Without an OTLP endpoint it is a no-op.
package observability
