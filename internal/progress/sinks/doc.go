// Package sinks implements concrete progress consumers: a terminal progress
// bar, structured logging, and Prometheus collectors. Each sink satisfies the
// progress.Sink interface.
package sinks
