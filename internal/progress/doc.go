// Package progress carries download progress from the dispatcher to
// pluggable sinks: the terminal progress bar, structured logs, and Prometheus
// collectors. Events are batched on a background goroutine so workers never
// wait on a slow sink.
package progress
