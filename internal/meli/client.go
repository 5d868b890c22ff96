package meli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// ClientConfig holds the OAuth application and transport settings
type ClientConfig struct {
	AuthURL       string
	APIURL        string
	ClientID      string
	ClientSecret  string
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
	MaxConcurrent int
}

// Client talks to the Mercado Livre API
type Client struct {
	authURL       string
	apiURL        string
	clientID      string
	clientSecret  string
	httpClient    *http.Client
	limiter       *rate.Limiter
	maxConcurrent int
}

// NewClient creates a new marketplace client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}

	return &Client{
		authURL:      strings.TrimRight(cfg.AuthURL, "/"),
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		maxConcurrent: cfg.MaxConcurrent,
	}
}

// AuthorizationURL builds the consent page URL the seller is sent to
func (c *Client) AuthorizationURL(redirectURI, state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	return fmt.Sprintf("%s/authorization?%s", c.authURL, params.Encode())
}

// ExchangeCode trades an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return c.postToken(ctx, form)
}

// RefreshToken obtains a new access token from a refresh token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", refreshToken)
	return c.postToken(ctx, form)
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, body)
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	return &token, nil
}

// Me returns the account that owns accessToken
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.getJSON(ctx, accessToken, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// User looks up a public seller profile
func (c *Client) User(ctx context.Context, accessToken string, userID int64) (*User, error) {
	var user User
	if err := c.getJSON(ctx, accessToken, "/users/"+strconv.FormatInt(userID, 10), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CatalogCompetitors lists the offers on a catalog product, with seller
// reputation filled in. An unknown product yields an empty list.
func (c *Client) CatalogCompetitors(ctx context.Context, accessToken, catalogProductID string) ([]models.CompetitorOffer, error) {
	var page productItemsResponse
	err := c.getJSON(ctx, accessToken, "/products/"+url.PathEscape(catalogProductID)+"/items", &page)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return []models.CompetitorOffer{}, nil
		}
		return nil, err
	}

	sellers, err := c.lookupSellers(ctx, accessToken, page.Results)
	if err != nil {
		return nil, err
	}

	offers := make([]models.CompetitorOffer, 0, len(page.Results))
	for _, item := range page.Results {
		seller := models.CompetitorSeller{ID: item.SellerID, Nickname: "Vendedor"}
		if u, ok := sellers[item.SellerID]; ok {
			seller.Nickname = u.Nickname
			seller.ReputationLevelID = u.SellerReputation.LevelID
			seller.PowerSellerStatus = u.SellerReputation.PowerSellerStatus
			seller.TransactionsTotal = u.SellerReputation.Transactions.Total
		}
		offers = append(offers, models.CompetitorOffer{
			ItemID:        item.ItemID,
			Title:         item.Title,
			Price:         item.Price,
			OriginalPrice: item.OriginalPrice,
			SoldQuantity:  item.SoldQuantity,
			Seller:        seller,
			Shipping: models.CompetitorShipping{
				FreeShipping: item.Shipping.FreeShipping,
				Mode:         item.Shipping.Mode,
				LogisticType: item.Shipping.LogisticType,
				Tags:         item.Shipping.Tags,
			},
			Permalink: item.Permalink,
		})
	}
	return offers, nil
}

// lookupSellers fetches each distinct seller once. Failed lookups are
// logged and skipped; the offer keeps a placeholder seller. A canceled or
// expired ctx fails the whole lookup so partial results are not passed on.
func (c *Client) lookupSellers(ctx context.Context, accessToken string, items []productItem) (map[int64]*User, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, item := range items {
		if item.SellerID == 0 || seen[item.SellerID] {
			continue
		}
		seen[item.SellerID] = true
		ids = append(ids, item.SellerID)
	}

	results := make([]*User, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for i, id := range ids {
		g.Go(func() error {
			user, err := c.User(gctx, accessToken, id)
			if err != nil {
				slog.Warn("Seller lookup failed", "seller_id", id, "error", err)
				return nil
			}
			results[i] = user
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[int64]*User, len(ids))
	for i, id := range ids {
		if results[i] != nil {
			out[id] = results[i]
		}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
