package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/cards"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/events"
	"github.com/spec-kit/expert-desk/internal/observability"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/transport"
)

// TicketStatusService applies expert actions from the SME ticket card.
type TicketStatusService struct {
	tickets    repository.TicketRepository
	connector  transport.Connector
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketStatusDependencies bundles collaborators for the status service.
type TicketStatusDependencies struct {
	TicketRepo repository.TicketRepository
	Connector  transport.Connector
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewTicketStatusService constructs the service.
func NewTicketStatusService(deps TicketStatusDependencies) *TicketStatusService {
	return &TicketStatusService{
		tickets:    deps.TicketRepo,
		connector:  deps.Connector,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
	}
}

// NotFoundMessage is the reply sent when a card refers to an unknown ticket.
func NotFoundMessage(ticketID string) string {
	return fmt.Sprintf("Ticket %s was not found in the data store", ticketID)
}

// ChangeStatus applies the submitted action to the ticket and persists it. It then
// refreshes the SME card in place, posts the SME notice into the conversation the
// submission came from and notifies the requester. Those three deliveries are attempted
// independently; their failures are joined into the returned error.
func (s *TicketStatusService) ChangeStatus(ctx context.Context, activity *transport.Activity, payload cards.ChangeTicketStatusPayload) error {
	logger := s.logger.With(
		zap.String("ticket_id", payload.TicketID),
		zap.String("action", payload.Action),
		zap.String("conversation_id", activity.Conversation.ID))

	current, err := s.loadTicket(ctx, payload.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordFlow(flowStatus, "not_found")
			logger.Info("ticket not found")
			reply := transport.TextActivity(NotFoundMessage(payload.TicketID)).ReplyTo(activity)
			if _, err := s.connector.Send(ctx, activity.ConversationRef(), reply); err != nil {
				return fmt.Errorf("send not found notice: %w", err)
			}
			return nil
		}
		return fmt.Errorf("load ticket: %w", err)
	}

	cmd, err := domain.ParseStatusCommand(payload.Action)
	if err != nil {
		s.metrics.RecordFlow(flowStatus, "unknown_action")
		logger.Warn("ignoring status submission", zap.Error(err))
		return nil
	}

	actor := actorOf(activity)
	next, notice, err := domain.ApplyStatusCommand(*current, cmd, actor, s.now())
	if err != nil {
		return err
	}
	if err := s.tickets.Upsert(ctx, &next); err != nil {
		s.metrics.RecordFlow(flowStatus, "store_failed")
		return fmt.Errorf("store ticket: %w", err)
	}
	logger.Info("ticket status changed",
		zap.String("status", next.Status.String()),
		zap.Bool("assigned", next.IsAssigned()))

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: next.TicketID,
		Actor:    events.ActorFrom(actor),
		Payload: events.TicketStatusChangedPayload{
			Command:           cmd.String(),
			OldStatus:         current.Status,
			NewStatus:         next.Status,
			OldAssigneeObject: current.AssignedToObjectID,
			NewAssigneeObject: next.AssignedToObjectID,
		},
	})

	var errs []error
	if !next.IsLinked() {
		logger.Warn("ticket has no sme card linkage, card not updated")
	} else if err := s.refreshSmeCard(ctx, activity, next); err != nil {
		logger.Warn("sme card not updated", zap.Error(err))
		errs = append(errs, err)
	}

	if notice.SmeText != "" {
		reply := transport.TextActivity(notice.SmeText).ReplyTo(activity)
		if _, err := s.connector.Send(ctx, activity.ConversationRef(), reply); err != nil {
			logger.Warn("sme notice not delivered", zap.Error(err))
			errs = append(errs, fmt.Errorf("send sme notice: %w", err))
		}
	}

	if notice.UserSummary != "" {
		userNotice := transport.MessageActivity(cards.Acknowledgment(next, notice.UserSummary, activity.LocalTimestamp))
		userNotice.Summary = notice.UserSummary
		ref := transport.ConversationRef{ServiceURL: activity.ServiceURL, ConversationID: next.RequesterConversationID}
		if _, err := s.connector.Send(ctx, ref, userNotice); err != nil {
			logger.Warn("requester notification not delivered", zap.Error(err))
			errs = append(errs, fmt.Errorf("notify requester: %w", err))
		}
	}

	if len(errs) > 0 {
		s.metrics.RecordFlow(flowStatus, "partial")
		return errors.Join(errs...)
	}
	s.metrics.RecordFlow(flowStatus, cmd.String())
	return nil
}

func (s *TicketStatusService) refreshSmeCard(ctx context.Context, activity *transport.Activity, ticket domain.Ticket) error {
	ref := transport.MessageRef{
		ConversationRef: transport.ConversationRef{
			ServiceURL:     activity.ServiceURL,
			ConversationID: ticket.SmeThreadConversationID,
		},
		ActivityID: ticket.SmeCardActivityID,
	}
	update := transport.MessageActivity(cards.SmeTicket(ticket, activity.LocalTimestamp))
	if _, err := s.connector.Update(ctx, ref, update); err != nil {
		return fmt.Errorf("update sme card: %w", err)
	}
	return nil
}

func (s *TicketStatusService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, repository.ErrNotFound
	}
	return s.tickets.GetByID(ctx, ticketID)
}
