// Package otel publishes session store metrics through OpenTelemetry.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. One callback reads
// [goAuthClient.Store.MetricsSnapshot] on each collection cycle.
//
// Callers own the MeterProvider and pass in a Meter.
package otel
