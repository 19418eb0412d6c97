package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/expert-desk/internal/domain"
)

// MemoryConfigurationRepository keeps configuration values in process.
type MemoryConfigurationRepository struct {
	mu     sync.RWMutex
	values map[domain.ConfigurationEntityType]string
}

// NewMemoryConfigurationRepository creates a store seeded with values.
func NewMemoryConfigurationRepository(values map[domain.ConfigurationEntityType]string) *MemoryConfigurationRepository {
	copied := make(map[domain.ConfigurationEntityType]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MemoryConfigurationRepository{values: copied}
}

func (r *MemoryConfigurationRepository) Get(ctx context.Context, entityType domain.ConfigurationEntityType) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.values[entityType]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (r *MemoryConfigurationRepository) Set(ctx context.Context, entityType domain.ConfigurationEntityType, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[entityType] = value
	return nil
}
