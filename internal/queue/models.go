package queue

import "time"

// Record identifies one newly observed release.
type Record struct {
	Name    string
	Version string
}

// Entry is a Record plus queue metadata.
type Entry struct {
	ID        int64
	Name      string
	Version   string
	CreatedAt time.Time
}

// Record returns the release the entry refers to.
func (e Entry) Record() Record {
	return Record{Name: e.Name, Version: e.Version}
}
