package integration

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpired means the access token can no longer be used; the seller must reconnect or refresh
	ErrTokenExpired = errors.New("integration token expired")
	// ErrConcurrentRefresh is returned in reject mode when a refresh is already running
	ErrConcurrentRefresh = errors.New("a token refresh is already in progress for this integration")
	// ErrNotConnected is returned for integrations without an active token
	ErrNotConnected = errors.New("integration is not connected")
	// ErrInvalidState is returned for forged, expired or replayed OAuth state values
	ErrInvalidState = errors.New("invalid or expired authorization state")

	errNoRefreshToken = errors.New("no refresh token stored")
)

// TokenExchangeError wraps a failed authorization code exchange
type TokenExchangeError struct {
	IntegrationID string
	Err           error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed for integration %s: %v", e.IntegrationID, e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// RefreshError wraps a failed refresh; the stored token is left as it was
type RefreshError struct {
	IntegrationID string
	Err           error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for integration %s: %v", e.IntegrationID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
