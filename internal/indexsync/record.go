package indexsync

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"cratewatch/internal/queue"
)

var (
	// ErrNotCandidate marks a line that does not open a JSON object.
	ErrNotCandidate = errors.New("not a release line")
	// ErrMalformed marks a candidate line that is not a valid JSON object.
	ErrMalformed = errors.New("malformed release line")
	// ErrIncomplete marks an object without non-empty string name and vers fields.
	ErrIncomplete = errors.New("release line missing name or vers")
)

// ParseRecord extracts the release described by one index line.
func ParseRecord(line string) (queue.Record, error) {
	if !strings.HasPrefix(line, "{") {
		return queue.Record{}, ErrNotCandidate
	}
	if !gjson.Valid(line) {
		return queue.Record{}, ErrMalformed
	}
	doc := gjson.Parse(line)
	if !doc.IsObject() {
		return queue.Record{}, ErrMalformed
	}
	name := doc.Get("name")
	vers := doc.Get("vers")
	if name.Type != gjson.String || vers.Type != gjson.String || name.Str == "" || vers.Str == "" {
		return queue.Record{}, ErrIncomplete
	}
	return queue.Record{Name: name.Str, Version: vers.Str}, nil
}
