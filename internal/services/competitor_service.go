package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/cache"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/catalog"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// Competitor fetch outcomes
const (
	FetchHit   = "hit"
	FetchMiss  = "miss"
	FetchError = "error"
)

// DefaultFetchTimeout bounds a shared competitor fetch once it is detached from its callers
const DefaultFetchTimeout = time.Minute

// TokenSource hands out a usable access token for an integration
type TokenSource interface {
	ValidAccessToken(ctx context.Context, integrationID string) (string, error)
}

// CompetitorSource lists the offers of a catalog product
type CompetitorSource interface {
	CatalogCompetitors(ctx context.Context, accessToken, catalogProductID string) ([]models.CompetitorOffer, error)
}

// CompetitorRecorder receives competitor fetch counters
type CompetitorRecorder interface {
	RecordCompetitorFetch(ctx context.Context, outcome string)
}

// CompetitorReport is the live catalog position of a listing
type CompetitorReport struct {
	IntegrationID    string                   `json:"integration_id"`
	CatalogProductID string                   `json:"catalog_product_id"`
	ProductURL       string                   `json:"product_url"`
	Cached           bool                     `json:"cached"`
	Competitors      []models.CompetitorOffer `json:"competitors"`
	Classification   catalog.Classification   `json:"classification"`
}

// CompetitorService fetches catalog competitors through a connected integration
// and caches them per integration and product
type CompetitorService struct {
	tokens   TokenSource
	source   CompetitorSource
	recorder CompetitorRecorder
	cache    *cache.TTLCache[[]models.CompetitorOffer]
	group    singleflight.Group

	fetchTimeout time.Duration
}

// NewCompetitorService creates a competitor service; recorder may be nil
func NewCompetitorService(tokens TokenSource, source CompetitorSource, ttl time.Duration, recorder CompetitorRecorder) *CompetitorService {
	return &CompetitorService{
		tokens:   tokens,
		source:   source,
		recorder: recorder,
		cache:    cache.NewTTLCache[[]models.CompetitorOffer](ttl, time.Minute),

		fetchTimeout: DefaultFetchTimeout,
	}
}

// SetFetchTimeout changes the bound of a shared fetch; call it before serving requests
func (s *CompetitorService) SetFetchTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.fetchTimeout = timeout
	}
}

// Stop stops the cache cleanup
func (s *CompetitorService) Stop() {
	s.cache.Stop()
}

// Competitors returns the offers of a catalog product and whether they came from cache.
// The token is checked first so a disconnected integration is never served from cache.
func (s *CompetitorService) Competitors(ctx context.Context, integrationID, catalogProductID string) ([]models.CompetitorOffer, bool, error) {
	if catalogProductID == "" {
		return nil, false, &models.InputDataError{Field: "catalog_product_id", Reason: "cannot be empty"}
	}

	accessToken, err := s.tokens.ValidAccessToken(ctx, integrationID)
	if err != nil {
		return nil, false, err
	}

	key := integrationID + "|" + catalogProductID
	if offers, ok := s.cache.Get(key); ok {
		s.record(ctx, FetchHit)
		return offers, true, nil
	}

	// Concurrent callers share one fetch that is not tied to any of them; a
	// caller that leaves only stops waiting. Failed fetches are not cached.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		offers, err := s.source.CatalogCompetitors(fetchCtx, accessToken, catalogProductID)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, offers)
		return offers, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		res.Err = ctx.Err()
	case res = <-ch:
	}
	if err := res.Err; err != nil {
		s.record(ctx, FetchError)
		slog.Warn("Failed to fetch catalog competitors",
			"integration_id", integrationID,
			"catalog_product_id", catalogProductID,
			"error", err)
		return nil, false, fmt.Errorf("fetch competitors of %s: %w", catalogProductID, err)
	}

	s.record(ctx, FetchMiss)
	return res.Val.([]models.CompetitorOffer), false, nil
}

// Position fetches the competitors of the listing's catalog product and classifies
// the listing among them. Offers come back ordered by price with their page URL.
func (s *CompetitorService) Position(ctx context.Context, integrationID string, listing models.Listing) (*CompetitorReport, error) {
	offers, cached, err := s.Competitors(ctx, integrationID, listing.CatalogProductID)
	if err != nil {
		return nil, err
	}

	classification, err := catalog.Classify(listing, offers)
	if err != nil {
		return nil, err
	}

	sorted := catalog.SortByPrice(offers)
	for i := range sorted {
		sorted[i].URL = catalog.EffectiveURL(sorted[i])
	}

	return &CompetitorReport{
		IntegrationID:    integrationID,
		CatalogProductID: listing.CatalogProductID,
		ProductURL:       catalog.ProductURL(listing.CatalogProductID),
		Cached:           cached,
		Competitors:      sorted,
		Classification:   classification,
	}, nil
}

// Invalidate drops the cached offers of a catalog product
func (s *CompetitorService) Invalidate(integrationID, catalogProductID string) {
	s.cache.Delete(integrationID + "|" + catalogProductID)
}

// GetCacheStats returns the competitor cache statistics
func (s *CompetitorService) GetCacheStats() map[string]interface{} {
	return s.cache.GetStats()
}

func (s *CompetitorService) record(ctx context.Context, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordCompetitorFetch(ctx, outcome)
	}
}
