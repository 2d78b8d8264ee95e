// Package infra holds the adapters behind the core interfaces: the optimizer
// HTTP client, the MQTT state mirror, the metrics sinks and Sentry.
package infra
