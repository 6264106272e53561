package session

import "github.com/roach88/citesync/internal/engine"

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeEdit is a user edit of one citation marker.
	EventTypeEdit EventType = iota + 1
	// EventTypeOutcome is a decoded formatter response.
	EventTypeOutcome
)

// Edit describes one user edit of a citation marker.
type Edit struct {
	// MarkerID is the identifier carried by the marker under edit,
	// empty for a freshly inserted marker. Insertion vs edit is decided
	// purely by this field, never by item-set comparison.
	MarkerID string
	// Items is the requested reference-item set. Empty means deletion.
	Items []string
	// Position is the document position of the marker under edit.
	Position int
}

// Event wraps edits and formatter outcomes for the session queue.
type Event struct {
	Type    EventType
	Edit    *Edit
	Outcome *engine.Outcome
}
