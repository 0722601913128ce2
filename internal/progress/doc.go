// Package progress provides the event primitives, non-blocking hub, and emitter
// interfaces that enrichment workers use to report how each candidate fared.
// Events are batched on a background goroutine and fanned out to pluggable
// sinks such as console logging or Prometheus metrics.
package progress
