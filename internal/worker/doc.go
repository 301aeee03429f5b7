// Package worker drains the release queue one entry at a time.
//
// A pass lists every pending entry once and attempts them in ascending id
// order. An entry is removed only after its build succeeds; a failed build
// leaves it queued for the next pass, which is the only retry mechanism.
// There is no claim or lease on rows, so exactly one worker should drain a
// given store at a time.
package worker
