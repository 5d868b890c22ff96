package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/integration"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/meli"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

const maxRequestBody = 1 << 20

// writeJSONResponse is a helper function to write JSON responses
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details []models.ErrorDetail) {
	writeJSONResponse(w, statusCode, models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// decodeJSON reads a bounded JSON body into v and answers 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Invalid JSON in request body", "error", err, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON in request body",
			[]models.ErrorDetail{{Field: "body", Issue: err.Error()}})
		return false
	}
	return true
}

// writeServiceError maps domain errors onto the error envelope
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		inputErr    *models.InputDataError
		exchangeErr *integration.TokenExchangeError
		refreshErr  *integration.RefreshError
		apiErr      *meli.APIError
	)

	switch {
	case errors.As(err, &inputErr):
		writeErrorResponse(w, http.StatusUnprocessableEntity, "invalid_input", "Input data is invalid",
			[]models.ErrorDetail{{Field: inputErr.Field, Issue: inputErr.Reason}})

	case errors.Is(err, integration.ErrInvalidState):
		writeErrorResponse(w, http.StatusBadRequest, "invalid_state", "Authorization state is invalid or expired",
			[]models.ErrorDetail{{Field: "state", Issue: "start the authorization again"}})

	case errors.Is(err, integration.ErrTokenExpired):
		writeErrorResponse(w, http.StatusUnauthorized, "reconnect_required", "Integration token expired, refresh or reconnect", nil)

	case errors.Is(err, integration.ErrNotConnected):
		writeErrorResponse(w, http.StatusNotFound, "not_connected", "Integration is not connected", nil)

	case errors.Is(err, integration.ErrConcurrentRefresh):
		writeErrorResponse(w, http.StatusConflict, "refresh_in_progress", "A token refresh is already in progress", nil)

	case errors.Is(err, context.Canceled):
		slog.Debug("Request canceled by client", "path", r.URL.Path)
		writeErrorResponse(w, http.StatusServiceUnavailable, "request_canceled", "Request was canceled", nil)

	case errors.Is(err, context.DeadlineExceeded):
		writeErrorResponse(w, http.StatusGatewayTimeout, "upstream_timeout", "Marketplace did not answer in time", nil)

	case errors.As(err, &exchangeErr):
		writeErrorResponse(w, http.StatusBadGateway, "token_exchange_failed", "Marketplace rejected the authorization code", upstreamDetails(err))

	case errors.As(err, &refreshErr):
		writeErrorResponse(w, http.StatusBadGateway, "token_refresh_failed", "Marketplace rejected the token refresh", upstreamDetails(err))

	case errors.As(err, &apiErr):
		writeErrorResponse(w, http.StatusBadGateway, "upstream_error", "Marketplace request failed", upstreamDetails(err))

	default:
		slog.Error("Request failed", "error", err, "path", r.URL.Path, "method", r.Method)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

func upstreamDetails(err error) []models.ErrorDetail {
	var apiErr *meli.APIError
	if !errors.As(err, &apiErr) {
		return []models.ErrorDetail{{Field: "upstream", Issue: err.Error()}}
	}
	return []models.ErrorDetail{
		{Field: "upstream_status", Issue: strconv.Itoa(apiErr.StatusCode)},
		{Field: "upstream_body", Issue: apiErr.Body},
	}
}
