package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/cards"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/knowledgebase"
	"github.com/spec-kit/expert-desk/internal/observability"
	"github.com/spec-kit/expert-desk/internal/transport"
)

// AnswerService answers free text questions from the knowledge base.
type AnswerService struct {
	kb        knowledgebase.Client
	connector transport.Connector
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// AnswerDependencies bundles collaborators for the answer service.
type AnswerDependencies struct {
	KnowledgeBase knowledgebase.Client
	Connector     transport.Connector
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewAnswerService constructs the service.
func NewAnswerService(deps AnswerDependencies) *AnswerService {
	return &AnswerService{
		kb:        deps.KnowledgeBase,
		connector: deps.Connector,
		metrics:   deps.Metrics,
		logger:    loggerOrNop(deps.Logger),
	}
}

// Answer replies to text with the best knowledge base answer, or with the unrecognized
// input card when there is none. payload carries the previous question context of a
// follow-up prompt and may be nil.
//
// Knowledge base failures are logged and produce no reply.
func (s *AnswerService) Answer(ctx context.Context, activity *transport.Activity, text string, payload *cards.ResponseCardPayload) error {
	question := strings.ToLower(strings.TrimSpace(text))
	logger := s.logger.With(zap.String("conversation_id", activity.Conversation.ID))

	query := knowledgebase.Query{Question: question}
	var carried cards.ResponseCardPayload
	if payload != nil {
		carried = *payload
		if previous, ok := payload.PreviousQuestion(); ok {
			query.IsFollowUp = true
			query.PreviousQnAID = strconv.Itoa(previous.ID)
			if len(previous.Questions) > 0 {
				query.PreviousUserQuery = previous.Questions[0]
			}
		}
	}

	result, err := s.kb.GenerateAnswer(ctx, query)
	if err != nil {
		s.metrics.RecordFlow(flowAnswer, "kb_failed")
		logger.Error("knowledge base query failed", zap.Error(err))
		return nil
	}

	var reply *transport.Activity
	top, ok := result.Top()
	if !ok || top.IsNoMatch() {
		s.metrics.RecordFlow(flowAnswer, "no_match")
		logger.Info("no answer found")
		reply = transport.MessageActivity(cards.UnrecognizedInput(question))
	} else {
		s.metrics.RecordFlow(flowAnswer, "answered")
		logger.Debug("answer found", zap.Int("answer_id", top.ID), zap.Float64("score", top.Score))
		reply = transport.MessageActivity(cards.Response(top, parseAnswerModel(top.Answer), question, carried))
	}

	if _, err := s.connector.Send(ctx, activity.ConversationRef(), reply.ReplyTo(activity)); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	return nil
}

// parseAnswerModel reads answer text stored as a structured answer. Plain text answers
// yield nil.
func parseAnswerModel(answer string) *domain.AnswerModel {
	trimmed := strings.TrimSpace(answer)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var model domain.AnswerModel
	if err := json.Unmarshal([]byte(trimmed), &model); err != nil {
		return nil
	}
	return &model
}
