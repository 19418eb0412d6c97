package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expert-desk/internal/api/dto"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/service"
	apperrors "github.com/spec-kit/expert-desk/pkg/util/errorutil"
)

// ConfigurationHandler exposes bot settings.
type ConfigurationHandler struct {
	service *service.ConfigurationService
}

// NewConfigurationHandler constructs handler.
func NewConfigurationHandler(configurationService *service.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: configurationService}
}

// Get handles GET /api/configuration/:entityType.
func (h *ConfigurationHandler) Get(c *fiber.Ctx) error {
	entityType := c.Params("entityType")
	value, err := h.service.Get(c.UserContext(), entityType)
	if err != nil {
		return mapConfigurationError(err, entityType)
	}
	return c.JSON(fiber.Map{"data": dto.ConfigurationResponse{EntityType: entityType, Value: value}})
}

// Put handles PUT /api/configuration/:entityType.
func (h *ConfigurationHandler) Put(c *fiber.Ctx) error {
	entityType := c.Params("entityType")
	var req dto.SetConfigurationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.Set(c.UserContext(), entityType, req.Value); err != nil {
		return mapConfigurationError(err, entityType)
	}
	return c.JSON(fiber.Map{"data": dto.ConfigurationResponse{EntityType: entityType, Value: req.Value}})
}

func mapConfigurationError(err error, entityType string) error {
	switch {
	case errors.Is(err, service.ErrUnknownEntityType):
		return apperrors.NewValidationError("unknown entity type", map[string]any{"entity_type": entityType})
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("configuration", map[string]any{"entity_type": entityType})
	default:
		return err
	}
}
