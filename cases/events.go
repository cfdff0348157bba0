package cases

import (
	"context"

	"github.com/linesmerrill/dharma-case-api/models"
)

// EventKind names the mutation that produced an Event
type EventKind string

// Event kinds emitted by the Manager
const (
	EventFiled         EventKind = "filed"
	EventUpdated       EventKind = "updated"
	EventAssigned      EventKind = "assigned"
	EventDocumentAdded EventKind = "document_added"
	EventClosed        EventKind = "closed"
)

// Event describes a committed case mutation
type Event struct {
	Kind  EventKind              `json:"kind"`
	Case  models.CaseFile        `json:"case"`
	Actor models.CaseParticipant `json:"actor"`
	From  models.CaseStatus      `json:"from"`
	To    models.CaseStatus      `json:"to"`
}

// StatusChanged reports whether the mutation moved the case to another stage
func (e Event) StatusChanged() bool {
	return e.From != e.To
}

// Listener is told about every committed mutation. Implementations must not
// block; they run on the caller's goroutine after the store is updated.
type Listener interface {
	CaseChanged(ctx context.Context, event Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(ctx context.Context, event Event)

// CaseChanged calls f
func (f ListenerFunc) CaseChanged(ctx context.Context, event Event) {
	f(ctx, event)
}
