package integration

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/cache"
)

const stateIssuer = "meli-integration"

// pendingAuthorization is what a verified state value resolves to
type pendingAuthorization struct {
	IntegrationID string
	RedirectURI   string
}

// stateSigner issues HMAC-signed OAuth state values. Each state carries a
// nonce that is remembered until first use, so a state is redeemable once.
type stateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	nonces *cache.TTLCache[string]
}

func newStateSigner(secret []byte, ttl time.Duration, now func() time.Time) *stateSigner {
	return &stateSigner{
		secret: secret,
		ttl:    ttl,
		now:    now,
		nonces: cache.NewTTLCache[string](ttl, time.Minute),
	}
}

func (s *stateSigner) issue(integrationID, redirectURI string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	nonce := uuid.NewString()

	claims := jwt.MapClaims{
		"iss":          stateIssuer,
		"sub":          integrationID,
		"jti":          nonce,
		"redirect_uri": redirectURI,
		"iat":          now.Unix(),
		"exp":          expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign state: %w", err)
	}

	s.nonces.Set(nonce, integrationID)
	return signed, expiresAt, nil
}

// redeem verifies the state and consumes its nonce
func (s *stateSigner) redeem(state string) (pendingAuthorization, error) {
	token, err := jwt.Parse(state, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return pendingAuthorization{}, ErrInvalidState
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return pendingAuthorization{}, ErrInvalidState
	}

	integrationID, _ := claims["sub"].(string)
	nonce, _ := claims["jti"].(string)
	redirectURI, _ := claims["redirect_uri"].(string)
	if integrationID == "" || nonce == "" {
		return pendingAuthorization{}, ErrInvalidState
	}

	owner, found := s.nonces.Take(nonce)
	if !found || owner != integrationID {
		return pendingAuthorization{}, ErrInvalidState
	}
	return pendingAuthorization{IntegrationID: integrationID, RedirectURI: redirectURI}, nil
}

func (s *stateSigner) stop() {
	s.nonces.Stop()
}
