package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expert-desk/internal/service"
	"github.com/spec-kit/expert-desk/internal/transport"
	apperrors "github.com/spec-kit/expert-desk/pkg/util/errorutil"
)

// MessagesHandler receives activities from the messaging channel.
type MessagesHandler struct {
	conversations *service.ConversationService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(conversations *service.ConversationService) *MessagesHandler {
	return &MessagesHandler{conversations: conversations}
}

// Receive handles POST /api/messages.
func (h *MessagesHandler) Receive(c *fiber.Ctx) error {
	var activity transport.Activity
	if err := c.BodyParser(&activity); err != nil {
		return apperrors.NewValidationError("invalid activity", nil)
	}
	if activity.Type == "" {
		return apperrors.NewValidationError("activity type required", nil)
	}
	if err := h.conversations.HandleActivity(c.UserContext(), &activity); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}
