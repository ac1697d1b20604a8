// Package telemetry wires OpenTelemetry tracing and metrics for newsd.
//
// Telemetry is disabled by default. When enabled, spans and metrics are
// exported over OTLP (gRPC or HTTP/protobuf) to the configured collector.
// Exporter failures degrade the instance instead of failing startup.
//
//	tel, err := telemetry.New(ctx, telemetry.FromServiceConfig(cfg.Observability, version))
//	defer tel.Shutdown(ctx)
//	tracer := tel.Tracer("newsd.ingest")
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
