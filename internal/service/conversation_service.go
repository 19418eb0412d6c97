package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/cards"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/transport"
)

// ConversationService routes each inbound activity to the flow that handles it. It keeps
// no state between activities.
type ConversationService struct {
	connector     transport.Connector
	configuration repository.ConfigurationRepository
	escalation    *EscalationService
	status        *TicketStatusService
	answers       *AnswerService
	logger        *zap.Logger
}

// ConversationDependencies bundles collaborators for the dispatcher.
type ConversationDependencies struct {
	Connector         transport.Connector
	ConfigurationRepo repository.ConfigurationRepository
	Escalation        *EscalationService
	Status            *TicketStatusService
	Answers           *AnswerService
	Logger            *zap.Logger
}

// NewConversationService constructs the dispatcher.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		connector:     deps.Connector,
		configuration: deps.ConfigurationRepo,
		escalation:    deps.Escalation,
		status:        deps.Status,
		answers:       deps.Answers,
		logger:        loggerOrNop(deps.Logger),
	}
}

// HandleActivity processes one inbound activity. Transport failures of the selected flow
// are returned.
func (s *ConversationService) HandleActivity(ctx context.Context, activity *transport.Activity) error {
	switch activity.Type {
	case transport.ActivityTypeMessage:
		return s.handleMessage(ctx, activity)
	case transport.ActivityTypeConversationUpdate:
		s.handleConversationUpdate(ctx, activity)
		return nil
	default:
		s.logger.Debug("ignoring activity", zap.String("type", activity.Type))
		return nil
	}
}

func (s *ConversationService) handleMessage(ctx context.Context, activity *transport.Activity) error {
	logger := s.logger.With(
		zap.String("conversation_id", activity.Conversation.ID),
		zap.String("surface", activity.Conversation.ConversationType))

	event, err := DecodeEvent(activity)
	var unsupported *UnsupportedSurfaceError
	if errors.As(err, &unsupported) {
		logger.Info("dropping message from unsupported surface")
		return nil
	}
	s.sendTyping(ctx, activity)
	if err != nil {
		var unrecognized *UnrecognizedSubmissionError
		switch {
		case errors.As(err, &unrecognized):
			logger.Warn("unexpected submission", zap.Error(err))
			return nil
		default:
			return err
		}
	}

	switch e := event.(type) {
	case AskAnExpertPrefill:
		logger.Info("sending escalation form", zap.Bool("prefilled", e.Prefill != nil))
		reply := transport.MessageActivity(cards.EscalationEntry(e.Prefill)).ReplyTo(activity)
		if _, err := s.connector.Send(ctx, activity.ConversationRef(), reply); err != nil {
			return fmt.Errorf("send escalation form: %w", err)
		}
		return nil
	case AskAnExpertSubmit:
		_, err := s.escalation.Escalate(ctx, activity, e.Payload)
		return err
	case PromptFollowUp:
		return s.answers.Answer(ctx, activity, e.Text, &e.Payload)
	case ChangeStatusSubmit:
		return s.status.ChangeStatus(ctx, activity, e.Payload)
	case TextMessage:
		if e.Surface == domain.SurfaceChannel {
			logger.Info("unrecognized channel input")
			return nil
		}
		return s.answers.Answer(ctx, activity, e.Text, nil)
	default:
		logger.Warn("unhandled event", zap.String("event", fmt.Sprintf("%T", event)))
		return nil
	}
}

// handleConversationUpdate greets the user when the bot is installed in a personal chat.
func (s *ConversationService) handleConversationUpdate(ctx context.Context, activity *transport.Activity) {
	surface, ok := domain.ParseSurface(activity.Conversation.ConversationType)
	if !ok || surface != domain.SurfacePersonal {
		return
	}
	botAdded := false
	for _, member := range activity.MembersAdded {
		if member.ID == activity.Recipient.ID {
			botAdded = true
			break
		}
	}
	if !botAdded {
		return
	}

	logger := s.logger.With(zap.String("conversation_id", activity.Conversation.ID))
	logger.Info("bot added to personal chat")

	message := ""
	if s.configuration != nil {
		text, err := s.configuration.Get(ctx, domain.ConfigurationEntityWelcomeMessage)
		switch {
		case err == nil:
			message = text
		case !errors.Is(err, repository.ErrNotFound):
			logger.Warn("welcome message lookup failed", zap.Error(err))
		}
	}

	reply := transport.MessageActivity(cards.Welcome(message)).ReplyTo(activity)
	if _, err := s.connector.Send(ctx, activity.ConversationRef(), reply); err != nil {
		logger.Warn("welcome card not delivered", zap.Error(err))
	}
}

func (s *ConversationService) sendTyping(ctx context.Context, activity *transport.Activity) {
	if _, err := s.connector.Send(ctx, activity.ConversationRef(), transport.TypingActivity(activity)); err != nil {
		s.logger.Debug("typing indicator not delivered",
			zap.String("conversation_id", activity.Conversation.ID), zap.Error(err))
	}
}
