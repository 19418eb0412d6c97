package dto

import (
	"time"

	"github.com/spec-kit/expert-desk/internal/domain"
)

// TicketResponse is the read model of a ticket.
type TicketResponse struct {
	TicketID                string     `json:"ticket_id"`
	Status                  string     `json:"status"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	UserQuestion            string     `json:"user_question,omitempty"`
	KnowledgeBaseAnswer     string     `json:"knowledge_base_answer,omitempty"`
	RequesterName           string     `json:"requester_name"`
	RequesterConversationID string     `json:"requester_conversation_id"`
	Linked                  bool       `json:"linked"`
	SmeThreadConversationID string     `json:"sme_thread_conversation_id,omitempty"`
	SmeCardActivityID       string     `json:"sme_card_activity_id,omitempty"`
	AssignedToName          *string    `json:"assigned_to_name"`
	DateAssigned            *time.Time `json:"date_assigned"`
	LastModifiedByName      string     `json:"last_modified_by_name,omitempty"`
	DateCreated             time.Time  `json:"date_created"`
	DateClosed              *time.Time `json:"date_closed"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID            string         `json:"id"`
	ChangeType    string         `json:"change_type"`
	ChangedByName string         `json:"changed_by_name"`
	OldValue      map[string]any `json:"old_value,omitempty"`
	NewValue      map[string]any `json:"new_value,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	Ticket  TicketResponse          `json:"ticket"`
	History []TicketHistoryResponse `json:"history"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:                t.TicketID,
		Status:                  t.Status.String(),
		Title:                   t.Title,
		Description:             t.Description,
		UserQuestion:            t.UserQuestion,
		KnowledgeBaseAnswer:     t.KnowledgeBaseAnswer,
		RequesterName:           t.RequesterName,
		RequesterConversationID: t.RequesterConversationID,
		Linked:                  t.IsLinked(),
		SmeThreadConversationID: t.SmeThreadConversationID,
		SmeCardActivityID:       t.SmeCardActivityID,
		AssignedToName:          t.AssignedToName,
		DateAssigned:            t.DateAssigned,
		LastModifiedByName:      t.LastModifiedByName,
		DateCreated:             t.DateCreated,
		DateClosed:              t.DateClosed,
		UpdatedAt:               t.UpdatedAt,
	}
}

// NewTicketHistoryResponses maps audit entries.
func NewTicketHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:            e.ID,
			ChangeType:    string(e.ChangeType),
			ChangedByName: e.ChangedByName,
			OldValue:      e.OldValue,
			NewValue:      e.NewValue,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}
