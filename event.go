package main

import (
	"fmt"
	"time"
)

// Event is the value identity of a calendar event. Two events are the same
// if and only if start instant, end instant, and summary text match exactly;
// identifiers, descriptions, and origin do not participate. Identical-content
// events from different origins are therefore one logical event.
type Event struct {
	Start   time.Time
	End     time.Time
	Summary string
}

// eventKey is the comparable form of an Event used for hash-index diffing.
// The equality policy lives here and nowhere else.
type eventKey struct {
	start   int64
	end     int64
	summary string
}

// Key returns the equality key over (start, end, summary). Instants compare
// as absolute times, so the same moment expressed in two zones collapses.
func (e Event) Key() eventKey {
	return eventKey{
		start:   e.Start.UnixNano(),
		end:     e.End.UnixNano(),
		summary: e.Summary,
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%q %s/%s",
		e.Summary,
		e.Start.UTC().Format(time.RFC3339),
		e.End.UTC().Format(time.RFC3339))
}

// MirrorEvent is an Event as it exists in the mirror store, together with
// the opaque resource identifier it is addressed by. The identifier is only
// used for deletes and never affects equality, so re-identifying a mirror
// resource is not a content change.
type MirrorEvent struct {
	Event
	MirrorID string
}
