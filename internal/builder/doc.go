// Package builder runs the external build command for one queued release.
//
// The command and its argument templates come from configuration; {name}
// and {version} are substituted per release. Combined output of every attempt
// is appended to a per-release log under the build log directory so failures
// can be inspected after the drain pass has moved on. Any failure (missing
// binary, non-zero exit, timeout) is reported as ErrBuildFailed; the builder
// never retries on its own.
package builder
