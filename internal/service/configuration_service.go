package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/repository"
)

// ErrUnknownEntityType is returned for configuration names outside the known set.
var ErrUnknownEntityType = errors.New("unknown configuration entity type")

// ConfigurationService reads and writes bot settings.
type ConfigurationService struct {
	repo   repository.ConfigurationRepository
	logger *zap.Logger
}

// NewConfigurationService constructs the service.
func NewConfigurationService(repo repository.ConfigurationRepository, logger *zap.Logger) *ConfigurationService {
	return &ConfigurationService{repo: repo, logger: loggerOrNop(logger)}
}

// Get returns the value stored for name.
func (s *ConfigurationService) Get(ctx context.Context, name string) (string, error) {
	entityType, ok := domain.ParseConfigurationEntityType(name)
	if !ok {
		return "", ErrUnknownEntityType
	}
	return s.repo.Get(ctx, entityType)
}

// Set stores value for name.
func (s *ConfigurationService) Set(ctx context.Context, name, value string) error {
	entityType, ok := domain.ParseConfigurationEntityType(name)
	if !ok {
		return ErrUnknownEntityType
	}
	if err := s.repo.Set(ctx, entityType, strings.TrimSpace(value)); err != nil {
		return err
	}
	s.logger.Info("configuration updated", zap.String("entity_type", string(entityType)))
	return nil
}

// Seed stores value for entityType unless a value already exists. Empty values are ignored.
func (s *ConfigurationService) Seed(ctx context.Context, entityType domain.ConfigurationEntityType, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	_, err := s.repo.Get(ctx, entityType)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	if err := s.repo.Set(ctx, entityType, value); err != nil {
		return err
	}
	s.logger.Info("configuration seeded", zap.String("entity_type", string(entityType)))
	return nil
}
