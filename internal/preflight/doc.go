// Package preflight provides readiness checks for the paths, index checkout,
// queue store, and build command cratewatch depends on.
//
// The CLI "cratewatch preflight" command prints every check; the daemon runs
// the same checks at startup and logs failures without refusing to start, so
// a missing checkout can still be fixed while the daemon waits.
package preflight
