// Package logging assembles structured slog loggers and formatting helpers used
// across cratewatch.
//
// It owns the console and JSON handlers, routes daemon output to a rotated
// file via lumberjack, and exposes context helpers so sync and drain passes
// tag every line with a correlation ID and the queue entry being built. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
