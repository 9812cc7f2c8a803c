// Package prometheus exposes authgate metrics through
// github.com/prometheus/client_golang.
//
// [Collector] implements prometheus.Collector over an [authgate.Engine]
// snapshot. Counter names are authgate_*_total; the single histogram is
// authgate_gate_latency_seconds. [Handler] serves a private registry and
// never touches the global default one.
package prometheus
