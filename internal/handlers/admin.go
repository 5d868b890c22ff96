package handlers

import (
	"net/http"
	"time"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/events"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/integration"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/services"
)

// AdminHandler exposes runtime statistics for operators
type AdminHandler struct {
	manager     *integration.Manager
	competitors *services.CompetitorService
	log         *events.Log
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(manager *integration.Manager, competitors *services.CompetitorService, log *events.Log) *AdminHandler {
	return &AdminHandler{
		manager:     manager,
		competitors: competitors,
		log:         log,
	}
}

// GetStats handles GET /v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"integration_locks": h.manager.GetLockStats(),
		"competitor_cache":  h.competitors.GetCacheStats(),
		"event_log_offset":  h.log.CurrentOffset(),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}
