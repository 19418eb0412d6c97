package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expert-desk/internal/api/dto"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/service"
	apperrors "github.com/spec-kit/expert-desk/pkg/util/errorutil"
)

// TicketsHandler exposes ticket lookups.
type TicketsHandler struct {
	service *service.TicketQueryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketQueryService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	ticket, history, err := h.service.GetTicket(c.UserContext(), ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		Ticket:  dto.NewTicketResponse(ticket),
		History: dto.NewTicketHistoryResponses(history),
	}})
}
