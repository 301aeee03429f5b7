// Package indexsync detects newly published releases and queues them.
//
// One pass captures the checkout's HEAD tree, fetches the remote, hard-resets
// to the tracked branch, and walks the patch between the old and new trees.
// Every added line that opens a JSON object and carries string name and vers
// fields becomes one queue entry, in diff order. The previous HEAD is the
// only cursor, so no extra state is stored between passes.
//
// Malformed lines and enqueue failures are logged and skipped; only
// repository failures abort a pass, and they always do so before the queue
// is touched.
package indexsync
