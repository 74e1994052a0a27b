// Package metrics records pipeline observability data.
//
// Components receive a Recorder. NoopRecorder is the default; the serve
// command swaps in a PrometheusRecorder and exposes it with HTTPHandler.
package metrics
