// Package otel publishes authgate counters through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and a
// set of observable gauges per histogram (cumulative buckets, count, sum). A
// single callback reads [authgate.Engine.MetricsSnapshot] on each collection
// cycle. Callers own the MeterProvider.
package otel
