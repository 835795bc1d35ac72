// Package events declares the serialization lifecycle events published on the
// internal event bus.
package events

import "time"

// SerializeStart is emitted when a top-level serialize call begins.
type SerializeStart struct {
	Schema string
	Count  int // number of input records; 1 for a single record
}

// SerializeFinish is emitted when a top-level serialize call returns.
type SerializeFinish struct {
	Schema   string
	Duration time.Duration
	Err      error
}

// RelationshipStart is emitted before one relationship descriptor is
// resolved. ID correlates the matching finish or drop event.
type RelationshipStart struct {
	ID           string
	Schema       string
	Relationship string
	Depth        int
	Concurrent   bool
}

// RelationshipFinish is emitted after one relationship descriptor resolved.
type RelationshipFinish struct {
	ID           string
	Schema       string
	Relationship string
	Duration     time.Duration
	Err          error
}

// RelationshipDropped is emitted when a failed or timed-out relationship is
// removed from the output instead of failing the call.
type RelationshipDropped struct {
	ID           string
	Schema       string
	Relationship string
	Reason       string
	Err          error
}
