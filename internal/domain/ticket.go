package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus int

const (
	TicketStatusOpen   TicketStatus = 0
	TicketStatusClosed TicketStatus = 1
)

func (s TicketStatus) String() string {
	switch s {
	case TicketStatusOpen:
		return "Open"
	case TicketStatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Ticket is the aggregate for a question escalated to the expert team.
//
// SmeCardActivityID and SmeThreadConversationID are the linkage pair: both empty until
// the SME card is delivered, both set afterwards. The assignment fields are either all
// nil or all set.
type Ticket struct {
	TicketID string
	Status   TicketStatus

	Title               string
	Description         string
	UserQuestion        string
	KnowledgeBaseAnswer string

	RequesterName           string
	RequesterObjectID       string
	RequesterConversationID string
	ServiceURL              string
	TenantID                string

	SmeCardActivityID       string
	SmeThreadConversationID string

	AssignedToName     *string
	AssignedToObjectID *string
	DateAssigned       *time.Time

	LastModifiedByName     string
	LastModifiedByObjectID string

	DateCreated time.Time
	DateClosed  *time.Time
	UpdatedAt   time.Time
}

// IsLinked reports whether the SME card for this ticket has been delivered and recorded.
func (t *Ticket) IsLinked() bool {
	return t.SmeCardActivityID != "" && t.SmeThreadConversationID != ""
}

// IsAssigned reports whether an expert has taken the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedToObjectID != nil
}

// Link records where the SME card for the ticket lives.
func (t *Ticket) Link(threadConversationID, cardActivityID string) {
	t.SmeThreadConversationID = strings.TrimSpace(threadConversationID)
	t.SmeCardActivityID = strings.TrimSpace(cardActivityID)
}

// Actor identifies the person acting on a ticket.
type Actor struct {
	Name     string
	ObjectID string
}
