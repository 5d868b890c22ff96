package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/cache"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/meli"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/storage"
)

// State is the position of an integration in its connection lifecycle
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateRefreshing   State = "refreshing"
	StateExpired      State = "expired"
)

// RefreshMode selects what a second concurrent Refresh does
type RefreshMode string

const (
	// RefreshCoalesce joins the refresh already in flight
	RefreshCoalesce RefreshMode = "coalesce"
	// RefreshReject fails fast with ErrConcurrentRefresh
	RefreshReject RefreshMode = "reject"
)

// Refresh outcomes reported to the Recorder
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeRejected  = "rejected"
	OutcomeCoalesced = "coalesced"
)

// OAuthClient is the marketplace side of the token lifecycle
type OAuthClient interface {
	AuthorizationURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*meli.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*meli.TokenResponse, error)
	Me(ctx context.Context, accessToken string) (*meli.User, error)
}

// EventPublisher receives lifecycle events
type EventPublisher interface {
	Publish(eventType, integrationID, detail string) int64
}

// Recorder receives token refresh outcomes for metrics
type Recorder interface {
	RecordTokenRefresh(ctx context.Context, outcome string)
}

// Config holds the manager settings
type Config struct {
	StateSecret        []byte
	StateTTL           time.Duration
	ExpirySkew         time.Duration
	RefreshMode        RefreshMode
	RefreshTimeout     time.Duration
	DefaultRedirectURI string
	Now                func() time.Time
}

// AuthorizationRequest is returned by InitiateAuthorization
type AuthorizationRequest struct {
	IntegrationID string    `json:"integration_id"`
	URL           string    `json:"authorization_url"`
	State         string    `json:"state"`
	ExpiresAt     time.Time `json:"state_expires_at"`
}

// ConnectionStatus is the locally known connection state
type ConnectionStatus struct {
	IntegrationID    string     `json:"integration_id"`
	Connected        bool       `json:"connected"`
	State            State      `json:"state"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	ExpiresInSeconds int64      `json:"expires_in_seconds"`
	ExternalUserID   string     `json:"external_user_id,omitempty"`
	Scope            string     `json:"scope,omitempty"`
}

// ConnectionTest is the result of probing the marketplace with the stored token
type ConnectionTest struct {
	IntegrationID string `json:"integration_id"`
	OK            bool   `json:"ok"`
	UserID        int64  `json:"user_id,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	Email         string `json:"email,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Manager owns the lifecycle of marketplace credentials
type Manager struct {
	client   OAuthClient
	store    storage.TokenStore
	events   EventPublisher
	recorder Recorder
	locks    *LockManager
	states   *stateSigner
	pending  *cache.TTLCache[string]

	refreshGroup singleflight.Group
	refreshingMu sync.Mutex
	refreshing   map[string]bool

	skew               time.Duration
	mode               RefreshMode
	refreshTimeout     time.Duration
	defaultRedirectURI string
	now                func() time.Time
}

// NewManager creates a token manager. events and recorder may be nil.
func NewManager(client OAuthClient, store storage.TokenStore, events EventPublisher, recorder Recorder, cfg Config) (*Manager, error) {
	if len(cfg.StateSecret) == 0 {
		return nil, errors.New("state secret is required")
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.ExpirySkew < 0 {
		cfg.ExpirySkew = 0
	}
	if cfg.RefreshMode != RefreshReject {
		cfg.RefreshMode = RefreshCoalesce
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{
		client:             client,
		store:              store,
		events:             events,
		recorder:           recorder,
		locks:              NewLockManager(),
		states:             newStateSigner(cfg.StateSecret, cfg.StateTTL, cfg.Now),
		pending:            cache.NewTTLCache[string](cfg.StateTTL, time.Minute),
		refreshing:         make(map[string]bool),
		skew:               cfg.ExpirySkew,
		mode:               cfg.RefreshMode,
		refreshTimeout:     cfg.RefreshTimeout,
		defaultRedirectURI: cfg.DefaultRedirectURI,
		now:                cfg.Now,
	}, nil
}

// Close releases background resources
func (m *Manager) Close() {
	m.states.stop()
	m.pending.Stop()
}

// GetLockStats reports the per-integration lock table
func (m *Manager) GetLockStats() map[string]interface{} {
	stats := m.locks.GetLockStats()
	stats["pending_authorizations"] = m.pending.ActiveSize()
	return stats
}

// InitiateAuthorization returns the consent URL for the seller and moves the
// integration to connecting until the state expires or is redeemed
func (m *Manager) InitiateAuthorization(ctx context.Context, integrationID, redirectURI string) (AuthorizationRequest, error) {
	if integrationID == "" {
		return AuthorizationRequest{}, &models.InputDataError{Field: "integration_id", Reason: "must not be empty"}
	}
	if redirectURI == "" {
		redirectURI = m.defaultRedirectURI
	}

	state, expiresAt, err := m.states.issue(integrationID, redirectURI)
	if err != nil {
		return AuthorizationRequest{}, err
	}
	m.pending.Set(integrationID, redirectURI)
	m.publish(models.EventTypeAuthorizationStarted, integrationID, "")

	slog.Info("Authorization started", "integration_id", integrationID)
	return AuthorizationRequest{
		IntegrationID: integrationID,
		URL:           m.client.AuthorizationURL(redirectURI, state),
		State:         state,
		ExpiresAt:     expiresAt,
	}, nil
}

// CompleteAuthorization redeems the state, exchanges the code and stores the new token
func (m *Manager) CompleteAuthorization(ctx context.Context, code, state string) (models.IntegrationToken, error) {
	auth, err := m.states.redeem(state)
	if err != nil {
		return models.IntegrationToken{}, err
	}
	if code == "" {
		m.pending.Delete(auth.IntegrationID)
		return models.IntegrationToken{}, &TokenExchangeError{IntegrationID: auth.IntegrationID, Err: errors.New("authorization code is empty")}
	}

	var token models.IntegrationToken
	err = m.locks.WithWriteLock(auth.IntegrationID, func() error {
		defer m.pending.Delete(auth.IntegrationID)

		resp, err := m.client.ExchangeCode(ctx, code, auth.RedirectURI)
		if err != nil {
			return &TokenExchangeError{IntegrationID: auth.IntegrationID, Err: err}
		}

		now := m.now()
		token = models.IntegrationToken{
			IntegrationID: auth.IntegrationID,
			AccessToken:   resp.AccessToken,
			RefreshToken:  resp.RefreshToken,
			TokenType:     resp.TokenType,
			ExpiresAt:     now.Add(time.Duration(resp.ExpiresIn) * time.Second),
			Scope:         resp.Scope,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if resp.UserID != 0 {
			token.ExternalUserID = strconv.FormatInt(resp.UserID, 10)
		}
		if previous, err := m.store.Get(ctx, auth.IntegrationID); err == nil {
			token.CreatedAt = previous.CreatedAt
		}

		if err := m.store.Save(ctx, token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.Warn("Authorization failed", "integration_id", auth.IntegrationID, "error", err)
		return models.IntegrationToken{}, err
	}

	m.publish(models.EventTypeConnected, token.IntegrationID, token.ExternalUserID)
	slog.Info("Integration connected",
		"integration_id", token.IntegrationID,
		"external_user_id", token.ExternalUserID,
		"expires_at", token.ExpiresAt)
	return token, nil
}

// Refresh rotates the tokens of an integration. At most one refresh per
// integration runs at a time; see RefreshMode for what concurrent callers get.
func (m *Manager) Refresh(ctx context.Context, integrationID string) (models.IntegrationToken, error) {
	if m.mode == RefreshReject {
		if !m.beginRefresh(integrationID) {
			m.record(ctx, OutcomeRejected)
			return models.IntegrationToken{}, ErrConcurrentRefresh
		}
		defer m.endRefresh(integrationID)
		return m.refreshOnce(ctx, integrationID)
	}

	// The shared call outlives any single caller; each caller only stops waiting.
	ch := m.refreshGroup.DoChan(integrationID, func() (interface{}, error) {
		m.beginRefresh(integrationID)
		defer m.endRefresh(integrationID)
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.refreshOnce(refreshCtx, integrationID)
	})

	select {
	case <-ctx.Done():
		return models.IntegrationToken{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			m.record(ctx, OutcomeCoalesced)
		}
		if res.Err != nil {
			return models.IntegrationToken{}, res.Err
		}
		return res.Val.(models.IntegrationToken), nil
	}
}

func (m *Manager) refreshOnce(ctx context.Context, integrationID string) (models.IntegrationToken, error) {
	var updated models.IntegrationToken
	err := m.locks.WithWriteLock(integrationID, func() error {
		current, err := m.activeToken(ctx, integrationID)
		if err != nil {
			return err
		}
		if current.RefreshToken == "" {
			return &RefreshError{IntegrationID: integrationID, Err: errNoRefreshToken}
		}

		resp, err := m.client.RefreshToken(ctx, current.RefreshToken)
		if err != nil {
			return &RefreshError{IntegrationID: integrationID, Err: err}
		}

		now := m.now()
		updated = current
		updated.AccessToken = resp.AccessToken
		updated.TokenType = resp.TokenType
		updated.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
		updated.UpdatedAt = now
		if resp.RefreshToken != "" {
			updated.RefreshToken = resp.RefreshToken
		}
		if resp.Scope != "" {
			updated.Scope = resp.Scope
		}

		if err := m.store.Save(ctx, updated); err != nil {
			return &RefreshError{IntegrationID: integrationID, Err: fmt.Errorf("failed to store token: %w", err)}
		}
		return nil
	})
	if err != nil {
		m.record(ctx, OutcomeFailure)
		var refreshErr *RefreshError
		if errors.As(err, &refreshErr) {
			m.publish(models.EventTypeRefreshFailed, integrationID, refreshErr.Err.Error())
		}
		slog.Warn("Token refresh failed", "integration_id", integrationID, "error", err)
		return models.IntegrationToken{}, err
	}

	m.record(ctx, OutcomeSuccess)
	m.publish(models.EventTypeTokenRefreshed, integrationID, "")
	slog.Info("Token refreshed", "integration_id", integrationID, "expires_at", updated.ExpiresAt)
	return updated, nil
}

// Disconnect deactivates the integration; its record is kept
func (m *Manager) Disconnect(ctx context.Context, integrationID string) error {
	err := m.locks.WithWriteLock(integrationID, func() error {
		m.pending.Delete(integrationID)
		err := m.store.Deactivate(ctx, integrationID, m.now())
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotConnected
		}
		return err
	})
	if err != nil {
		return err
	}

	m.publish(models.EventTypeDisconnected, integrationID, "")
	slog.Info("Integration disconnected", "integration_id", integrationID)
	return nil
}

// TestConnection probes the marketplace identity endpoint with the stored
// token. Probe failures are reported in the result, not as an error.
func (m *Manager) TestConnection(ctx context.Context, integrationID string) (ConnectionTest, error) {
	var token models.IntegrationToken
	err := m.locks.WithReadLock(integrationID, func() error {
		var err error
		token, err = m.activeToken(ctx, integrationID)
		return err
	})
	if err != nil {
		return ConnectionTest{}, err
	}

	result := ConnectionTest{IntegrationID: integrationID}
	user, err := m.client.Me(ctx, token.AccessToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ConnectionTest{}, ctxErr
		}
		result.Error = err.Error()
		return result, nil
	}

	result.OK = user.ID != 0
	result.UserID = user.ID
	result.Nickname = user.Nickname
	result.Email = user.Email
	result.FirstName = user.FirstName
	result.LastName = user.LastName
	return result, nil
}

// Status reports the locally stored connection state without network calls
func (m *Manager) Status(ctx context.Context, integrationID string) (ConnectionStatus, error) {
	status := ConnectionStatus{IntegrationID: integrationID}

	token, err := m.store.Get(ctx, integrationID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ConnectionStatus{}, err
	}
	found := err == nil

	now := m.now()
	status.State = m.stateOf(integrationID, token, found, now)
	if !found {
		return status, nil
	}

	expiresAt := token.ExpiresAt
	status.ExpiresAt = &expiresAt
	status.ExternalUserID = token.ExternalUserID
	status.Scope = token.Scope
	status.Connected = token.IsActive && !token.Expired(now)
	if status.Connected {
		status.ExpiresInSeconds = int64(token.ExpiresAt.Sub(now) / time.Second)
	}
	return status, nil
}

// State returns the lifecycle position of the integration
func (m *Manager) State(ctx context.Context, integrationID string) (State, error) {
	status, err := m.Status(ctx, integrationID)
	if err != nil {
		return "", err
	}
	return status.State, nil
}

// ValidAccessToken returns a usable access token. Tokens expiring within the
// configured skew are treated as expired.
func (m *Manager) ValidAccessToken(ctx context.Context, integrationID string) (string, error) {
	var token models.IntegrationToken
	err := m.locks.WithReadLock(integrationID, func() error {
		var err error
		token, err = m.activeToken(ctx, integrationID)
		return err
	})
	if err != nil {
		return "", err
	}
	if token.Expired(m.now().Add(m.skew)) {
		return "", ErrTokenExpired
	}
	return token.AccessToken, nil
}

func (m *Manager) activeToken(ctx context.Context, integrationID string) (models.IntegrationToken, error) {
	token, err := m.store.Get(ctx, integrationID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.IntegrationToken{}, ErrNotConnected
	}
	if err != nil {
		return models.IntegrationToken{}, err
	}
	if !token.IsActive {
		return models.IntegrationToken{}, ErrNotConnected
	}
	return token, nil
}

func (m *Manager) stateOf(integrationID string, token models.IntegrationToken, found bool, now time.Time) State {
	m.refreshingMu.Lock()
	refreshing := m.refreshing[integrationID]
	m.refreshingMu.Unlock()

	switch {
	case refreshing:
		return StateRefreshing
	case m.isPending(integrationID):
		return StateConnecting
	case !found || !token.IsActive:
		return StateDisconnected
	case token.Expired(now):
		return StateExpired
	default:
		return StateConnected
	}
}

func (m *Manager) isPending(integrationID string) bool {
	_, ok := m.pending.Get(integrationID)
	return ok
}

// beginRefresh marks a refresh in flight; false if one already is
func (m *Manager) beginRefresh(integrationID string) bool {
	m.refreshingMu.Lock()
	defer m.refreshingMu.Unlock()

	if m.refreshing[integrationID] {
		return false
	}
	m.refreshing[integrationID] = true
	return true
}

func (m *Manager) endRefresh(integrationID string) {
	m.refreshingMu.Lock()
	defer m.refreshingMu.Unlock()
	delete(m.refreshing, integrationID)
}

func (m *Manager) publish(eventType, integrationID, detail string) {
	if m.events != nil {
		m.events.Publish(eventType, integrationID, detail)
	}
}

func (m *Manager) record(ctx context.Context, outcome string) {
	if m.recorder != nil {
		m.recorder.RecordTokenRefresh(ctx, outcome)
	}
}
