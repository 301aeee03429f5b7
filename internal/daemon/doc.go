// Package daemon runs the long-lived cratewatch process.
//
// It holds a flock-based lock so only one instance works against a data
// directory, then runs two loops side by side: an index sync loop and a queue
// drain loop. Each loop runs one pass at a time, which keeps the single
// synchronizer and single worker assumptions of the lower packages intact.
//
// Sync failures, new build failures, and productive drain passes are
// forwarded to a notifications.Service; repeats are suppressed until the
// condition clears.
//
// Keep orchestration here; what a pass does belongs in indexsync and worker.
package daemon
