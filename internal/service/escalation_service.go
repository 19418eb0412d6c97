package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/cards"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/events"
	"github.com/spec-kit/expert-desk/internal/observability"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/transport"
)

// ErrTeamNotConfigured is returned by Redeliver while no expert team is configured.
var ErrTeamNotConfigured = errors.New("expert team not configured")

// settleTimeout bounds the writes that follow a posted SME card. They run detached from
// the caller's context so an expired request deadline cannot strand a posted card
// without its linkage.
const settleTimeout = 5 * time.Second

func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// EscalationService turns a user's question into a ticket and posts it to the expert team.
type EscalationService struct {
	tickets       repository.TicketRepository
	configuration repository.ConfigurationRepository
	connector     transport.Connector
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	TicketRepo        repository.TicketRepository
	ConfigurationRepo repository.ConfigurationRepository
	Connector         transport.Connector
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
	Clock             func() time.Time
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		tickets:       deps.TicketRepo,
		configuration: deps.ConfigurationRepo,
		connector:     deps.Connector,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        loggerOrNop(deps.Logger),
		now:           clockOrDefault(deps.Clock),
	}
}

// Escalate creates a ticket from a submitted escalation form, posts the SME card into a
// new thread of the expert team and acknowledges the requester.
//
// The returned ticket is nil when nothing was created. A ticket is returned together with
// an error when it was persisted but delivery or linkage failed; such tickets are left
// pending linkage.
func (s *EscalationService) Escalate(ctx context.Context, activity *transport.Activity, payload cards.AskAnExpertPayload) (*domain.Ticket, error) {
	if strings.TrimSpace(payload.Title) == "" {
		s.metrics.RecordFlow(flowEscalation, "invalid")
		reply := transport.MessageActivity(cards.InvalidEscalationEntry(payload)).ReplyTo(activity)
		if _, err := s.connector.Send(ctx, activity.ConversationRef(), reply); err != nil {
			return nil, fmt.Errorf("send escalation form: %w", err)
		}
		return nil, nil
	}

	now := s.now()
	ticket := &domain.Ticket{
		TicketID:                uuid.NewString(),
		Status:                  domain.TicketStatusOpen,
		Title:                   strings.TrimSpace(payload.Title),
		Description:             strings.TrimSpace(payload.Description),
		UserQuestion:            strings.TrimSpace(payload.UserQuestion),
		KnowledgeBaseAnswer:     strings.TrimSpace(payload.KnowledgeBaseAnswer),
		RequesterName:           activity.From.Name,
		RequesterObjectID:       activity.From.AADObjectID,
		RequesterConversationID: activity.Conversation.ID,
		ServiceURL:              activity.ServiceURL,
		TenantID:                activity.Conversation.TenantID,
		DateCreated:             now,
		UpdatedAt:               now,
	}
	logger := s.logger.With(zap.String("ticket_id", ticket.TicketID), zap.String("conversation_id", ticket.RequesterConversationID))

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.metrics.RecordFlow(flowEscalation, "store_failed")
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	logger.Info("ticket created")
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.TicketID,
		Actor:    events.ActorFrom(actorOf(activity)),
		Payload: events.TicketEscalatedPayload{
			Title:                   ticket.Title,
			RequesterConversationID: ticket.RequesterConversationID,
		},
	})

	teamID, err := s.expertTeam(ctx)
	if err != nil {
		s.metrics.RecordFlow(flowEscalation, "pending")
		if errors.Is(err, ErrTeamNotConfigured) {
			logger.Warn("expert team not configured, ticket left pending linkage")
			return ticket, nil
		}
		logger.Error("resolve expert team", zap.Error(err))
		return ticket, err
	}

	ack := cards.Acknowledgment(*ticket, cards.SubmittedTicketUserNotification, activity.LocalTimestamp)
	if err := s.deliver(ctx, ticket, teamID, activity.LocalTimestamp, false, logger); err != nil {
		return ticket, err
	}

	ackCtx, cancel := settleContext(ctx)
	defer cancel()
	if _, err := s.connector.Send(ackCtx, activity.ConversationRef(), transport.MessageActivity(ack).ReplyTo(activity)); err != nil {
		logger.Warn("acknowledgment not delivered", zap.Error(err))
	}
	s.metrics.RecordFlow(flowEscalation, "linked")
	return ticket, nil
}

// Redeliver posts the SME card for a ticket that has no linkage yet and notifies the
// requester. It is used to reconcile tickets whose first delivery did not complete.
func (s *EscalationService) Redeliver(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	if ticket.IsLinked() {
		return &ticket, nil
	}
	logger := s.logger.With(zap.String("ticket_id", ticket.TicketID), zap.String("conversation_id", ticket.RequesterConversationID))

	teamID, err := s.expertTeam(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, &ticket, teamID, nil, true, logger); err != nil {
		return nil, err
	}

	ackCtx, cancel := settleContext(ctx)
	defer cancel()
	ack := transport.MessageActivity(cards.Acknowledgment(ticket, cards.SubmittedTicketUserNotification, nil))
	ref := transport.ConversationRef{ServiceURL: ticket.ServiceURL, ConversationID: ticket.RequesterConversationID}
	if _, err := s.connector.Send(ackCtx, ref, ack); err != nil {
		logger.Warn("acknowledgment not delivered", zap.Error(err))
	}
	s.metrics.RecordFlow(flowEscalation, "reconciled")
	return &ticket, nil
}

func (s *EscalationService) expertTeam(ctx context.Context) (string, error) {
	teamID, err := s.configuration.Get(ctx, domain.ConfigurationEntityTeamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTeamNotConfigured
		}
		return "", fmt.Errorf("resolve expert team: %w", err)
	}
	if strings.TrimSpace(teamID) == "" {
		return "", ErrTeamNotConfigured
	}
	return strings.TrimSpace(teamID), nil
}

// deliver creates the SME thread and records the linkage on ticket. Once the thread
// exists, the linkage write and its event no longer follow ctx cancellation.
func (s *EscalationService) deliver(ctx context.Context, ticket *domain.Ticket, teamID string, ts *time.Time, reconciled bool, logger *zap.Logger) error {
	smeCard := transport.MessageActivity(cards.SmeTicket(*ticket, ts))
	channel := transport.ChannelRef{ServiceURL: ticket.ServiceURL, TenantID: ticket.TenantID, ChannelID: teamID}

	thread, err := s.connector.CreateThread(ctx, channel, smeCard)
	if err != nil {
		s.metrics.RecordFlow(flowEscalation, "delivery_failed")
		logger.Error("sme card not delivered", zap.String("team_id", teamID), zap.Error(err))
		return fmt.Errorf("deliver sme card: %w", err)
	}

	settleCtx, cancel := settleContext(ctx)
	defer cancel()

	linked := *ticket
	linked.Link(thread.ConversationID, thread.ActivityID)
	linked.UpdatedAt = s.now()
	if err := s.tickets.Upsert(settleCtx, &linked); err != nil {
		s.metrics.RecordFlow(flowEscalation, "link_failed")
		logger.Error("sme card delivered but linkage not stored",
			zap.String("sme_thread_conversation_id", thread.ConversationID),
			zap.String("sme_card_activity_id", thread.ActivityID),
			zap.Error(err))
		return fmt.Errorf("record linkage: %w", err)
	}
	*ticket = linked

	publishEvent(settleCtx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketLinked,
		TicketID: ticket.TicketID,
		Actor:    events.Actor{Name: ticket.RequesterName, ObjectID: ticket.RequesterObjectID},
		Payload: events.TicketLinkedPayload{
			SmeThreadConversationID: ticket.SmeThreadConversationID,
			SmeCardActivityID:       ticket.SmeCardActivityID,
			Reconciled:              reconciled,
		},
	})
	return nil
}
