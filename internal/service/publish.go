package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/events"
	"github.com/spec-kit/expert-desk/internal/transport"
)

// Flow names used for metrics.
const (
	flowEscalation = "escalation"
	flowStatus     = "status"
	flowAnswer     = "answer"
)

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func actorOf(activity *transport.Activity) domain.Actor {
	return domain.Actor{Name: activity.From.Name, ObjectID: activity.From.AADObjectID}
}

func clockOrDefault(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
