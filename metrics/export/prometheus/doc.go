// Package prometheus exposes Store metrics through client_golang.
//
// [Exporter] is a prometheus.Collector that reads a fresh snapshot on every
// scrape. Counter names are eventhub_*_total; the single histogram is
// eventhub_backend_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry. Callers register the
//     collector or mount Handler.
//   - Mutate store state.
package prometheus
