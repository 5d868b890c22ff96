package handlers

import (
	"log/slog"
	"net/http"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/services"
)

// CatalogRequest is the body of POST /v1/analysis/catalog
type CatalogRequest struct {
	Listing     models.Listing           `json:"listing"`
	Competitors []models.CompetitorOffer `json:"competitors"`
}

// AdsRequest is the body of POST /v1/analysis/ads
type AdsRequest struct {
	Metrics        models.AdsMetrics `json:"metrics"`
	ListingPrice   float64           `json:"listing_price"`
	AdsCostPercent models.Amount     `json:"ads_cost_percent"`
}

// AnalysisHandler handles the analytics endpoints
type AnalysisHandler struct {
	analysisService *services.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// AnalyzeListing handles POST /v1/analysis/listing - Full listing report
func (h *AnalysisHandler) AnalyzeListing(w http.ResponseWriter, r *http.Request) {
	var req services.ListingAnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.analysisService.AnalyzeListing(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Listing analysis completed",
		"listing_id", report.ListingID,
		"advisories", len(report.Advisories),
		"remote_addr", r.RemoteAddr)
	writeJSONResponse(w, http.StatusOK, report)
}

// ResolvePrice handles POST /v1/analysis/price
func (h *AnalysisHandler) ResolvePrice(w http.ResponseWriter, r *http.Request) {
	var listing models.Listing
	if !decodeJSON(w, r, &listing) {
		return
	}

	price, err := h.analysisService.ResolvePrice(r.Context(), listing)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, price)
}

// CostBreakdown handles POST /v1/analysis/costs
func (h *AnalysisHandler) CostBreakdown(w http.ResponseWriter, r *http.Request) {
	var listing models.Listing
	if !decodeJSON(w, r, &listing) {
		return
	}

	costs, err := h.analysisService.CostBreakdown(r.Context(), listing)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, costs)
}

// ClassifyCatalog handles POST /v1/analysis/catalog
func (h *AnalysisHandler) ClassifyCatalog(w http.ResponseWriter, r *http.Request) {
	var req CatalogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	classification, err := h.analysisService.ClassifyCatalog(r.Context(), req.Listing, req.Competitors)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, classification)
}

// AnalyzeAds handles POST /v1/analysis/ads
func (h *AnalysisHandler) AnalyzeAds(w http.ResponseWriter, r *http.Request) {
	var req AdsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	analysis, err := h.analysisService.AnalyzeAds(r.Context(), req.Metrics, req.ListingPrice, req.AdsCostPercent.Value())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, analysis)
}
