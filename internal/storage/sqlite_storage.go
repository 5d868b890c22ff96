package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS integration_tokens (
	integration_id   TEXT PRIMARY KEY,
	access_token     TEXT NOT NULL,
	refresh_token    TEXT NOT NULL DEFAULT '',
	token_type       TEXT NOT NULL DEFAULT 'Bearer',
	expires_at       INTEGER NOT NULL,
	scope            TEXT NOT NULL DEFAULT '',
	external_user_id TEXT NOT NULL DEFAULT '',
	is_active        INTEGER NOT NULL DEFAULT 1,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
)`

// SQLiteStorage stores tokens in a local SQLite database
type SQLiteStorage struct {
	conn *sql.DB
	path string
}

// NewSQLiteStorage opens (and migrates) the database at dbPath.
// ":memory:" gives a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStorage{conn: conn, path: dbPath}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, integrationID string) (models.IntegrationToken, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT integration_id, access_token, refresh_token, token_type, expires_at, scope,
		       external_user_id, is_active, created_at, updated_at
		FROM integration_tokens WHERE integration_id = ?`, integrationID)

	token, err := scanSQLiteToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IntegrationToken{}, ErrNotFound
	}
	if err != nil {
		return models.IntegrationToken{}, fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, t models.IntegrationToken) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO integration_tokens (integration_id, access_token, refresh_token, token_type, expires_at,
			scope, external_user_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(integration_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			external_user_id = excluded.external_user_id,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		t.IntegrationID, t.AccessToken, t.RefreshToken, t.TokenType, t.ExpiresAt.UnixMilli(),
		t.Scope, t.ExternalUserID, t.IsActive, t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Deactivate(ctx context.Context, integrationID string, at time.Time) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE integration_tokens SET is_active = 0, updated_at = ? WHERE integration_id = ?`,
		at.UnixMilli(), integrationID)
	if err != nil {
		return fmt.Errorf("failed to deactivate token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) List(ctx context.Context) ([]models.IntegrationToken, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT integration_id, access_token, refresh_token, token_type, expires_at, scope,
		       external_user_id, is_active, created_at, updated_at
		FROM integration_tokens ORDER BY integration_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var out []models.IntegrationToken
	for rows.Next() {
		token, err := scanSQLiteToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		out = append(out, token)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.conn.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteToken(row rowScanner) (models.IntegrationToken, error) {
	var (
		t                             models.IntegrationToken
		expiresAt, createdAt, updated int64
	)
	err := row.Scan(&t.IntegrationID, &t.AccessToken, &t.RefreshToken, &t.TokenType, &expiresAt,
		&t.Scope, &t.ExternalUserID, &t.IsActive, &createdAt, &updated)
	if err != nil {
		return models.IntegrationToken{}, err
	}
	t.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	return t, nil
}
