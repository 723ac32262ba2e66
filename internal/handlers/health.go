package handlers

import (
	"net/http"
	"time"

	"inventory-dashboard/internal/models"
)

// ServiceName is reported by the health endpoint
const ServiceName = "inventory-dashboard"

// Version is overridden at build time
var Version = "dev"

// HealthHandler handles health check requests
type HealthHandler struct {
	apiBaseURL string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(apiBaseURL string) *HealthHandler {
	return &HealthHandler{apiBaseURL: apiBaseURL}
}

// Health handles GET /health - Health check endpoint
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:     "healthy",
		Service:    ServiceName,
		Version:    Version,
		APIBaseURL: h.apiBaseURL,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}
