// Package prometheus exports passAuth engine metrics through
// prometheus/client_golang.
//
// [Collector] is a prometheus.Collector that reads Engine.MetricsSnapshot on
// every scrape; register it on your own registry, or use [Handler] to get a
// ready /metrics endpoint backed by a private registry. Counter names are
// passauth_*_total and the verification latency histogram is
// passauth_verify_latency_seconds.
//
// The package never touches the global default registry.
package prometheus
