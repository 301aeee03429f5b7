// Package main hosts the cratewatch CLI entrypoint and command graph.
//
// The Cobra command tree exposes one-shot index syncs and queue drains, the
// long-running daemon, queue maintenance, and configuration scaffolding. It
// centralizes configuration resolution and logger setup so subcommands only
// wire internal packages together.
package main
