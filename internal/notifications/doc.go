// Package notifications delivers daemon events to an ntfy topic.
//
// NewService returns a no-op Service when no topic is configured, so callers
// can notify unconditionally. The daemon reports new build failures, drain
// passes that built something, and transitions of the index sync between
// failing and healthy.
package notifications
