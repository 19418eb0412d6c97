package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expert-desk/internal/domain"
)

const configurationPartitionKey = "ConfigurationInfo"

// ConfigurationRepository resolves named bot settings.
type ConfigurationRepository interface {
	Get(ctx context.Context, entityType domain.ConfigurationEntityType) (string, error)
	Set(ctx context.Context, entityType domain.ConfigurationEntityType, value string) error
}

type configurationRepository struct {
	pool *pgxpool.Pool
}

// NewConfigurationRepository makes sure the backing table exists and returns a ready
// handle. Call it once during startup and share the result.
func NewConfigurationRepository(ctx context.Context, pool *pgxpool.Pool) (ConfigurationRepository, error) {
	if pool == nil {
		return nil, errors.New("configuration repository requires a postgres pool")
	}
	const ddl = `
        CREATE TABLE IF NOT EXISTS configuration_info (
            partition_key TEXT NOT NULL,
            row_key       TEXT NOT NULL,
            data          TEXT NOT NULL DEFAULT '',
            updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (partition_key, row_key)
        )`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ensure configuration_info: %w", err)
	}
	return &configurationRepository{pool: pool}, nil
}

func (r *configurationRepository) Get(ctx context.Context, entityType domain.ConfigurationEntityType) (string, error) {
	const query = `SELECT data FROM configuration_info WHERE partition_key=$1 AND row_key=$2`
	var data string
	if err := r.pool.QueryRow(ctx, query, configurationPartitionKey, string(entityType)).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get configuration %s: %w", entityType, err)
	}
	return data, nil
}

func (r *configurationRepository) Set(ctx context.Context, entityType domain.ConfigurationEntityType, value string) error {
	const query = `
        INSERT INTO configuration_info (partition_key, row_key, data)
        VALUES ($1,$2,$3)
        ON CONFLICT (partition_key, row_key) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()`
	if _, err := r.pool.Exec(ctx, query, configurationPartitionKey, string(entityType), value); err != nil {
		return fmt.Errorf("set configuration %s: %w", entityType, err)
	}
	return nil
}
