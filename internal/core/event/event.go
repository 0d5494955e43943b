package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventID is a value object representing a unique event identifier
type EventID struct {
	value string
}

// NewEventID creates a new EventID with validation
func NewEventID(value string) (EventID, error) {
	if value == "" {
		return EventID{}, fmt.Errorf("event ID cannot be empty")
	}
	return EventID{value: value}, nil
}

// GenerateEventID creates a new unique EventID
func GenerateEventID() EventID {
	return EventID{value: uuid.NewString()}
}

// Value returns the string value of the EventID
func (e EventID) Value() string {
	return e.value
}

// String implements the Stringer interface
func (e EventID) String() string {
	return e.value
}

// Kind classifies a debugger event surfaced by a session poll
type Kind string

const (
	// KindTargetStopped - the debuggee halted (breakpoint, signal, step)
	KindTargetStopped Kind = "target_stopped"
	// KindTargetRunning - the debuggee resumed execution
	KindTargetRunning Kind = "target_running"
	// KindTargetExited - the debuggee process ended
	KindTargetExited Kind = "target_exited"
	// KindOutput - a line of debuggee output
	KindOutput Kind = "output"
	// KindLog - a diagnostic line from the backend itself
	KindLog Kind = "log"
)

// NewKind creates a Kind with validation
func NewKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindTargetStopped, KindTargetRunning, KindTargetExited, KindOutput, KindLog:
		return Kind(value), nil
	default:
		return "", fmt.Errorf("invalid event kind: %s", value)
	}
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Event represents one debugger event delivered by a session target.
// Events are immutable after creation.
type Event struct {
	id         EventID
	occurredAt time.Time
	kind       Kind
	detail     string
}

// NewEvent creates a new Event with validation
func NewEvent(id EventID, occurredAt time.Time, kind Kind, detail string) (*Event, error) {
	if id.Value() == "" {
		return nil, fmt.Errorf("event requires a valid ID")
	}
	if _, err := NewKind(kind.String()); err != nil {
		return nil, err
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return &Event{
		id:         id,
		occurredAt: occurredAt,
		kind:       kind,
		detail:     detail,
	}, nil
}

// New creates an Event of the given kind with a generated ID, timestamped now
func New(kind Kind, detail string) *Event {
	return &Event{
		id:         GenerateEventID(),
		occurredAt: time.Now(),
		kind:       kind,
		detail:     detail,
	}
}

// ID returns the event identifier
func (e *Event) ID() EventID {
	return e.id
}

// OccurredAt returns when the event happened
func (e *Event) OccurredAt() time.Time {
	return e.occurredAt
}

// Kind returns the event classification
func (e *Event) Kind() Kind {
	return e.kind
}

// Detail returns the human-readable event payload
func (e *Event) Detail() string {
	return e.detail
}

// IsTerminal returns true if the event means the target is gone
func (e *Event) IsTerminal() bool {
	return e.kind == KindTargetExited
}

// String returns a string representation of the event
func (e *Event) String() string {
	return fmt.Sprintf("Event{ID: %s, Kind: %s, Detail: %q}", e.id.Value(), e.kind, e.detail)
}
