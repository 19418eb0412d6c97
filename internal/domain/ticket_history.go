package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated  TicketChangeType = "CREATED"
	ChangeTypeLinked   TicketChangeType = "LINKED"
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee TicketChangeType = "ASSIGNEE_CHANGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID              string
	TicketID        string
	ChangedByName   string
	ChangedByObject string
	ChangeType      TicketChangeType
	OldValue        map[string]any
	NewValue        map[string]any
	CreatedAt       time.Time
}
