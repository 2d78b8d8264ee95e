// Package metrics defines the events recorded about optimization requests
// and the sinks receiving them. Sinks are created from configuration through
// a factory registry; infra/metrics registers the Prometheus, InfluxDB and
// no-op implementations. Several configured sinks are combined in a
// MultiSink.
package metrics
