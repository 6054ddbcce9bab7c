// Package telemetry manages the OpenTelemetry SDK lifecycle for ragd.
//
// New initializes trace and metric providers with OTLP exporters (gRPC or
// HTTP/protobuf) and registers them globally, so services obtain tracers and
// meters through otel.Tracer / otel.Meter. Exporter failures never crash the
// process; the instance degrades and Health reports it.
//
// Shutdown flushes pending telemetry within the configured timeout and must
// run during process teardown.
//
// For tests, NewTestTelemetry wires in-memory span and metric recorders with
// assertion helpers.
package telemetry
