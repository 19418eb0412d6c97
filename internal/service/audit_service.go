package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/events"
	"github.com/spec-kit/expert-desk/internal/repository"
)

// AuditService records ticket events as history entries.
type AuditService struct {
	dispatcher events.Dispatcher
	history    repository.TicketHistoryRepository
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, history repository.TicketHistoryRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		history:    history,
		logger:     loggerOrNop(logger),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil || a.history == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketEscalated, a.handleTicketEscalated)
	a.dispatcher.Subscribe(events.EventTicketLinked, a.handleTicketLinked)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleTicketStatusChanged)
}

func (a *AuditService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketEscalatedPayload)
	return a.record(ctx, event, domain.ChangeTypeCreated, nil, map[string]any{
		"title":                     payload.Title,
		"requester_conversation_id": payload.RequesterConversationID,
	})
}

func (a *AuditService) handleTicketLinked(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketLinkedPayload)
	return a.record(ctx, event, domain.ChangeTypeLinked, nil, map[string]any{
		"sme_thread_conversation_id": payload.SmeThreadConversationID,
		"sme_card_activity_id":       payload.SmeCardActivityID,
		"reconciled":                 payload.Reconciled,
	})
}

func (a *AuditService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	if payload.OldStatus != payload.NewStatus {
		if err := a.record(ctx, event, domain.ChangeTypeStatus,
			map[string]any{"status": payload.OldStatus.String()},
			map[string]any{"status": payload.NewStatus.String(), "command": payload.Command}); err != nil {
			return err
		}
	}
	if !sameAssignee(payload.OldAssigneeObject, payload.NewAssigneeObject) {
		return a.record(ctx, event, domain.ChangeTypeAssignee,
			map[string]any{"assignee_object_id": deref(payload.OldAssigneeObject)},
			map[string]any{"assignee_object_id": deref(payload.NewAssigneeObject), "command": payload.Command})
	}
	return nil
}

func (a *AuditService) record(ctx context.Context, event events.Event, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	entry := &domain.TicketHistory{
		TicketID:        event.TicketID,
		ChangedByName:   event.Actor.Name,
		ChangedByObject: event.Actor.ObjectID,
		ChangeType:      change,
		OldValue:        oldValue,
		NewValue:        newValue,
		CreatedAt:       event.Timestamp,
	}
	if err := a.history.Create(ctx, entry); err != nil {
		a.logger.Warn("history entry not recorded",
			zap.String("ticket_id", event.TicketID),
			zap.String("change_type", string(change)),
			zap.Error(err))
		return err
	}
	return nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
