package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/integration"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/services"
)

// IntegrationHandler handles the marketplace connection endpoints
type IntegrationHandler struct {
	manager     *integration.Manager
	competitors *services.CompetitorService
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(manager *integration.Manager, competitors *services.CompetitorService) *IntegrationHandler {
	return &IntegrationHandler{
		manager:     manager,
		competitors: competitors,
	}
}

// AuthorizationURL handles GET /v1/integrations/{id}/authorization-url
func (h *IntegrationHandler) AuthorizationURL(w http.ResponseWriter, r *http.Request) {
	integrationID := mux.Vars(r)["id"]

	req, err := h.manager.InitiateAuthorization(r.Context(), integrationID, r.URL.Query().Get("redirect_uri"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, req)
}

// Callback handles GET /v1/integrations/callback - OAuth redirect target.
// It is reached by the seller's browser, so it is not behind API key auth.
func (h *IntegrationHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if denied := query.Get("error"); denied != "" {
		slog.Warn("Authorization denied by seller", "error", denied, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "authorization_denied", "The seller did not grant access",
			[]models.ErrorDetail{{Field: denied, Issue: query.Get("error_description")}})
		return
	}

	state := query.Get("state")
	if state == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "state is required",
			[]models.ErrorDetail{{Field: "state", Issue: "cannot be empty"}})
		return
	}

	token, err := h.manager.CompleteAuthorization(r.Context(), query.Get("code"), state)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, token)
}

// Refresh handles POST /v1/integrations/{id}/refresh
func (h *IntegrationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.manager.Refresh(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, token)
}

// Disconnect handles DELETE /v1/integrations/{id}
func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	integrationID := mux.Vars(r)["id"]

	if err := h.manager.Disconnect(r.Context(), integrationID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"integration_id": integrationID,
		"disconnected":   true,
	})
}

// TestConnection handles GET /v1/integrations/{id}/test-connection. A failed
// probe is still a 200; the result carries ok=false and the error.
func (h *IntegrationHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.TestConnection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// Status handles GET /v1/integrations/{id}/status
func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.manager.Status(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, status)
}

// Competitors handles GET /v1/integrations/{id}/competitors/{catalogProductId}.
// The own offer is described by the query: item_id, price, free_shipping,
// logistic_type, catalog_status.
func (h *IntegrationHandler) Competitors(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	query := r.URL.Query()

	listing := models.Listing{
		ID:               query.Get("item_id"),
		CatalogListing:   true,
		CatalogProductID: vars["catalogProductId"],
		CatalogStatus:    models.ParseCatalogStatus(query.Get("catalog_status")),
		LogisticType:     query.Get("logistic_type"),
	}

	var details []models.ErrorDetail
	if raw := query.Get("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			details = append(details, models.ErrorDetail{Field: "price", Issue: "must be a number"})
		}
		listing.Price = price
	}
	if raw := query.Get("free_shipping"); raw != "" {
		free, err := strconv.ParseBool(raw)
		if err != nil {
			details = append(details, models.ErrorDetail{Field: "free_shipping", Issue: "must be a boolean"})
		}
		listing.FreeShipping = free
	}
	if len(details) > 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid query parameters", details)
		return
	}

	report, err := h.competitors.Position(r.Context(), vars["id"], listing)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Debug("Catalog competitors served",
		"integration_id", report.IntegrationID,
		"catalog_product_id", report.CatalogProductID,
		"competitors", len(report.Competitors),
		"cached", report.Cached)
	writeJSONResponse(w, http.StatusOK, report)
}
