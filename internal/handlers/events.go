package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/events"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
	maxWaitSeconds     = 60
)

// EventsHandler serves the integration audit log
type EventsHandler struct {
	log    *events.Log
	logger *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(log *events.Log, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		log:    log,
		logger: logger,
	}
}

// GetEvents handles GET /v1/integrations/events?offset=&limit=&wait=
func (h *EventsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	offsetStr := query.Get("offset")
	if offsetStr == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "offset parameter is required",
			[]models.ErrorDetail{{Field: "offset", Issue: "cannot be empty"}})
		return
	}
	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil || offset < 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid offset parameter",
			[]models.ErrorDetail{{Field: "offset", Issue: "must be a non-negative integer"}})
		return
	}

	limit := defaultEventsLimit
	if parsed, err := strconv.Atoi(query.Get("limit")); err == nil && parsed > 0 && parsed <= maxEventsLimit {
		limit = parsed
	}

	waitSeconds := 0
	if parsed, err := strconv.Atoi(query.Get("wait")); err == nil && parsed >= 0 && parsed <= maxWaitSeconds {
		waitSeconds = parsed
	}

	h.logger.Debug("Events request received",
		"offset", offset,
		"limit", limit,
		"wait", waitSeconds,
		"remote_addr", r.RemoteAddr)

	evts, nextOffset, hasMore := h.log.GetEvents(offset, limit)

	if len(evts) == 0 && waitSeconds > 0 {
		select {
		case <-h.log.WaitForEvents(offset, time.Duration(waitSeconds)*time.Second):
			evts, nextOffset, hasMore = h.log.GetEvents(offset, limit)
		case <-r.Context().Done():
			h.logger.Debug("Client disconnected during long polling", "offset", offset)
			return
		}
	}

	if evts == nil {
		evts = []models.Event{}
	}
	writeJSONResponse(w, http.StatusOK, models.EventsResponse{
		Events:     evts,
		NextOffset: nextOffset,
		HasMore:    hasMore,
		Count:      len(evts),
	})
}
