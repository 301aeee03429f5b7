// Package logs tails cratewatch log files with bounded memory.
//
// Tail reads the last N lines or everything after a byte offset; Follow keeps
// polling a file and hands new lines to a callback until its context ends.
// Both tolerate the file not existing yet, which is normal before the daemon
// first writes to it.
package logs
