// Package metric provides Prometheus metrics for RegMesh.
//
// Registry owns a private prometheus.Registry and implements the observer
// interfaces of the fan-out aggregator, the loader executor and the naming
// reconciler, so core packages never import prometheus directly. Collector
// samples live state (connections, repair queue depth, members) on scrape.
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
