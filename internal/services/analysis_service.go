package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/ads"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/advisor"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/catalog"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/pricing"
)

// DefaultAdsPeriodDays is the reporting window used when a request names none
const DefaultAdsPeriodDays = 30

// AnalysisRecorder receives analytics counters
type AnalysisRecorder interface {
	RecordAnalysis(ctx context.Context, kind string, advisoriesBySeverity map[string]int)
}

// ListingAnalysisRequest is one listing with everything known about its market
type ListingAnalysisRequest struct {
	Listing       models.Listing           `json:"listing"`
	Competitors   []models.CompetitorOffer `json:"competitors,omitempty"`
	Ads           []models.AdsMetrics      `json:"ads,omitempty"`
	AdsPeriodDays int                      `json:"adsPeriodDays,omitempty"`
}

// ListingReport is the full analysis of one listing
type ListingReport struct {
	ListingID           string                  `json:"listing_id"`
	Title               string                  `json:"title,omitempty"`
	Price               pricing.PriceResolution `json:"price"`
	Costs               pricing.CostBreakdown   `json:"costs"`
	Catalog             *catalog.Classification `json:"catalog,omitempty"`
	Ads                 *ads.Analysis           `json:"ads,omitempty"`
	AvailableAdsPeriods []int                   `json:"available_ads_periods,omitempty"`
	Advisories          []advisor.Advisory      `json:"advisories"`
}

// AnalysisService runs the analytics pipeline and records what it produced
type AnalysisService struct {
	recorder AnalysisRecorder
}

// NewAnalysisService creates an analysis service; recorder may be nil
func NewAnalysisService(recorder AnalysisRecorder) *AnalysisService {
	return &AnalysisService{recorder: recorder}
}

// AnalyzeListing resolves price and costs, classifies the catalog position
// when the listing is in a catalog or competitors were given, reads the ads of
// the requested period and renders advisories.
func (s *AnalysisService) AnalyzeListing(ctx context.Context, req ListingAnalysisRequest) (*ListingReport, error) {
	listing := req.Listing

	price, err := pricing.ResolvePrice(listing)
	if err != nil {
		return nil, err
	}
	costs, err := pricing.ComputeCostBreakdownWithFallback(listing)
	if err != nil {
		return nil, err
	}

	report := &ListingReport{
		ListingID: listing.ID,
		Title:     listing.Title,
		Price:     price,
		Costs:     costs,
	}

	if catalog.IsCatalogListing(listing) || len(req.Competitors) > 0 {
		classification, err := catalog.Classify(listing, req.Competitors)
		if err != nil {
			return nil, err
		}
		report.Catalog = &classification
	}

	if len(req.Ads) > 0 {
		analysis, periods, err := analyzeAdsPeriod(req, price.Current)
		if err != nil {
			return nil, err
		}
		report.Ads = analysis
		report.AvailableAdsPeriods = periods
	}

	report.Advisories = advisor.Build(price, costs, report.Catalog, report.Ads)
	if report.Advisories == nil {
		report.Advisories = []advisor.Advisory{}
	}

	s.record(ctx, "listing", report.Advisories)
	slog.Debug("Listing analyzed",
		"listing_id", listing.ID,
		"catalog", report.Catalog != nil,
		"ads", report.Ads != nil,
		"advisories", len(report.Advisories))

	return report, nil
}

func analyzeAdsPeriod(req ListingAnalysisRequest, currentPrice float64) (*ads.Analysis, []int, error) {
	period := req.AdsPeriodDays
	if period == 0 {
		period = DefaultAdsPeriodDays
	}
	if !ads.ValidPeriod(period) {
		return nil, nil, &models.InputDataError{
			Field:  "adsPeriodDays",
			Reason: fmt.Sprintf("unsupported period %d, expected one of %v", period, models.AdsPeriods),
		}
	}

	set := models.NewAdsMetricsSet(req.Ads...)
	metrics, ok := set.Get(period)
	if !ok {
		slog.Debug("No ads metrics for period", "listing_id", req.Listing.ID, "period_days", period)
		return nil, set.Periods(), nil
	}
	if metrics.ListingID == "" {
		metrics.ListingID = req.Listing.ID
	}

	analysis, err := ads.Analyze(metrics, currentPrice, req.Listing.AdsCostPercent.Value())
	if err != nil {
		return nil, nil, err
	}
	return &analysis, set.Periods(), nil
}

// ResolvePrice runs the price resolution alone
func (s *AnalysisService) ResolvePrice(ctx context.Context, listing models.Listing) (pricing.PriceResolution, error) {
	price, err := pricing.ResolvePrice(listing)
	if err != nil {
		return pricing.PriceResolution{}, err
	}
	s.record(ctx, "price", nil)
	return price, nil
}

// CostBreakdown computes the costs of a listing, estimating fees when the listing has none
func (s *AnalysisService) CostBreakdown(ctx context.Context, listing models.Listing) (pricing.CostBreakdown, error) {
	costs, err := pricing.ComputeCostBreakdownWithFallback(listing)
	if err != nil {
		return pricing.CostBreakdown{}, err
	}
	s.record(ctx, "costs", nil)
	return costs, nil
}

// ClassifyCatalog classifies the catalog position of a listing among competitors
func (s *AnalysisService) ClassifyCatalog(ctx context.Context, listing models.Listing, competitors []models.CompetitorOffer) (catalog.Classification, error) {
	classification, err := catalog.Classify(listing, competitors)
	if err != nil {
		return catalog.Classification{}, err
	}
	s.record(ctx, "catalog", nil)
	return classification, nil
}

// AnalyzeAds reads one ads snapshot against the listing price and planned ads cost
func (s *AnalysisService) AnalyzeAds(ctx context.Context, metrics models.AdsMetrics, listingPrice, adsCostPercent float64) (ads.Analysis, error) {
	analysis, err := ads.Analyze(metrics, listingPrice, adsCostPercent)
	if err != nil {
		return ads.Analysis{}, err
	}
	s.record(ctx, "ads", nil)
	return analysis, nil
}

func (s *AnalysisService) record(ctx context.Context, kind string, advisories []advisor.Advisory) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordAnalysis(ctx, kind, countBySeverity(advisories))
}

func countBySeverity(advisories []advisor.Advisory) map[string]int {
	if len(advisories) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, a := range advisories {
		counts[string(a.Severity)]++
	}
	return counts
}
