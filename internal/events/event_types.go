package events

import (
	"time"

	"github.com/spec-kit/expert-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketLinked        EventType = "ticket_linked"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Name     string `json:"name"`
	ObjectID string `json:"object_id,omitempty"`
}

// ActorFrom converts a domain actor.
func ActorFrom(actor domain.Actor) Actor {
	return Actor{Name: actor.Name, ObjectID: actor.ObjectID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Title                   string `json:"title"`
	RequesterConversationID string `json:"requester_conversation_id"`
}

// TicketLinkedPayload payload.
type TicketLinkedPayload struct {
	SmeThreadConversationID string `json:"sme_thread_conversation_id"`
	SmeCardActivityID       string `json:"sme_card_activity_id"`
	Reconciled              bool   `json:"reconciled,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Command           string              `json:"command"`
	OldStatus         domain.TicketStatus `json:"old_status"`
	NewStatus         domain.TicketStatus `json:"new_status"`
	OldAssigneeObject *string             `json:"old_assignee_object_id,omitempty"`
	NewAssigneeObject *string             `json:"new_assignee_object_id,omitempty"`
}
