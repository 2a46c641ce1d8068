// Package runtime runs a long-lived proxy: periodic heartbeats, periodic configuration
// refresh with backoff retry, and an optional admin HTTP server that exposes the latest
// reconciled configuration, probes and metrics.
package runtime
