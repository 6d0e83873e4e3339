// Package observability provides logging, metrics, and tracing
// for the merchant session relay.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("merchant session relayed",
//	    observability.String("validation_url", url),
//	    observability.Int("upstream_status", 200),
//	)
//
// # Metrics
//
// Prometheus collectors for inbound requests and upstream calls live in
// a dedicated registry exposed by Metrics.Handler.
//
// # Tracing
//
// OpenTelemetry tracing with optional OTLP/gRPC export. A disabled
// Tracer still returns valid no-op spans.
package observability
