// Package otel binds Store metrics to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per store counter and an
// Int64ObservableGauge per latency bucket. One callback reads
// [goEventHub.Store.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate store state.
package otel
