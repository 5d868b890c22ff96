package storage

import (
	"context"
	"errors"
	"time"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// ErrNotFound is returned when no token exists for an integration
var ErrNotFound = errors.New("integration token not found")

// TokenStore persists integration tokens. Tokens are never deleted;
// Deactivate flips IsActive and keeps the row.
type TokenStore interface {
	Get(ctx context.Context, integrationID string) (models.IntegrationToken, error)
	Save(ctx context.Context, token models.IntegrationToken) error
	Deactivate(ctx context.Context, integrationID string, at time.Time) error
	List(ctx context.Context) ([]models.IntegrationToken, error)
	Close() error
}

// tokenRecord is the persisted form of a token; the API model hides secrets from JSON
type tokenRecord struct {
	IntegrationID  string    `json:"integrationId"`
	AccessToken    string    `json:"accessToken"`
	RefreshToken   string    `json:"refreshToken,omitempty"`
	TokenType      string    `json:"tokenType"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Scope          string    `json:"scope,omitempty"`
	ExternalUserID string    `json:"externalUserId,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toRecord(t models.IntegrationToken) tokenRecord {
	return tokenRecord(t)
}

func (r tokenRecord) token() models.IntegrationToken {
	return models.IntegrationToken(r)
}
