package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS integration_tokens (
	integration_id   TEXT PRIMARY KEY,
	access_token     TEXT NOT NULL,
	refresh_token    TEXT NOT NULL DEFAULT '',
	token_type       TEXT NOT NULL DEFAULT 'Bearer',
	expires_at       TIMESTAMPTZ NOT NULL,
	scope            TEXT NOT NULL DEFAULT '',
	external_user_id TEXT NOT NULL DEFAULT '',
	is_active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
)`

// NewPool opens a pgx pool sized for the service and verifies it with a ping
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("PostgreSQL connected", "max_conns", config.MaxConns)
	return pool, nil
}

// PostgresStorage stores tokens in PostgreSQL
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage wraps an open pool and creates the table if needed
func NewPostgresStorage(ctx context.Context, pool *pgxpool.Pool) (*PostgresStorage, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) Get(ctx context.Context, integrationID string) (models.IntegrationToken, error) {
	var t models.IntegrationToken
	err := s.pool.QueryRow(ctx, `
		SELECT integration_id, access_token, refresh_token, token_type, expires_at, scope,
		       external_user_id, is_active, created_at, updated_at
		FROM integration_tokens WHERE integration_id = $1
	`, integrationID).Scan(&t.IntegrationID, &t.AccessToken, &t.RefreshToken, &t.TokenType, &t.ExpiresAt,
		&t.Scope, &t.ExternalUserID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IntegrationToken{}, ErrNotFound
	}
	if err != nil {
		return models.IntegrationToken{}, fmt.Errorf("failed to load token: %w", err)
	}
	return t, nil
}

func (s *PostgresStorage) Save(ctx context.Context, t models.IntegrationToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO integration_tokens (integration_id, access_token, refresh_token, token_type, expires_at,
			scope, external_user_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (integration_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			external_user_id = EXCLUDED.external_user_id,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, t.IntegrationID, t.AccessToken, t.RefreshToken, t.TokenType, t.ExpiresAt,
		t.Scope, t.ExternalUserID, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Deactivate(ctx context.Context, integrationID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE integration_tokens SET is_active = FALSE, updated_at = $2 WHERE integration_id = $1
	`, integrationID, at)
	if err != nil {
		return fmt.Errorf("failed to deactivate token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) List(ctx context.Context) ([]models.IntegrationToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT integration_id, access_token, refresh_token, token_type, expires_at, scope,
		       external_user_id, is_active, created_at, updated_at
		FROM integration_tokens ORDER BY integration_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var out []models.IntegrationToken
	for rows.Next() {
		var t models.IntegrationToken
		if err := rows.Scan(&t.IntegrationID, &t.AccessToken, &t.RefreshToken, &t.TokenType, &t.ExpiresAt,
			&t.Scope, &t.ExternalUserID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close releases the pool
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
