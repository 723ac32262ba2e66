package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"inventory-dashboard/internal/analytics"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/services"
)

// DashboardReader is the read side of the dashboard service
type DashboardReader interface {
	Inventory(ctx context.Context, force bool) ([]models.InventoryItem, services.ReadState)
	Orders(ctx context.Context, force bool) ([]models.Order, services.ReadState)
	Summary(ctx context.Context) models.AnalyticsSummary
	CategoryBreakdown(ctx context.Context) ([]analytics.CategoryPoint, services.ReadState)
	DailyOrders(ctx context.Context) ([]analytics.DailyOrdersPoint, services.ReadState)
	Trends(ctx context.Context) ([]analytics.TrendPoint, services.ReadState)
	LowStock(ctx context.Context) ([]models.InventoryItem, services.ReadState)
	Status() services.Status
}

// DashboardHandler serves cached dashboard data
type DashboardHandler struct {
	service DashboardReader
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardReader) *DashboardHandler {
	return &DashboardHandler{
		service: service,
	}
}

// GetInventory handles GET /api/dashboard/inventory
func (h *DashboardHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	force, err := parseRefresh(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "refresh must be a boolean", nil)
		return
	}

	items, state := h.service.Inventory(r.Context(), force)

	slog.Debug("Inventory served", "items", len(items), "forced", force, "error", state.Error)
	writeDataResponse(w, items, state)
}

// GetOrders handles GET /api/dashboard/orders
func (h *DashboardHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	force, err := parseRefresh(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "refresh must be a boolean", nil)
		return
	}

	orders, state := h.service.Orders(r.Context(), force)

	slog.Debug("Orders served", "orders", len(orders), "forced", force, "error", state.Error)
	writeDataResponse(w, orders, state)
}

// GetSummary handles GET /api/dashboard/analytics/summary.
// An unavailable summary is served as zeros, never as an error.
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.service.Summary(r.Context()))
}

// GetCategories handles GET /api/dashboard/analytics/categories
func (h *DashboardHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	points, state := h.service.CategoryBreakdown(r.Context())
	writeDataResponse(w, points, state)
}

// GetDailyOrders handles GET /api/dashboard/analytics/daily-orders
func (h *DashboardHandler) GetDailyOrders(w http.ResponseWriter, r *http.Request) {
	points, state := h.service.DailyOrders(r.Context())
	writeDataResponse(w, points, state)
}

// GetTrends handles GET /api/dashboard/analytics/trends
func (h *DashboardHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	points, state := h.service.Trends(r.Context())
	writeDataResponse(w, points, state)
}

// GetLowStock handles GET /api/dashboard/analytics/low-stock
func (h *DashboardHandler) GetLowStock(w http.ResponseWriter, r *http.Request) {
	items, state := h.service.LowStock(r.Context())
	writeDataResponse(w, items, state)
}

// GetStatus handles GET /api/dashboard/status
func (h *DashboardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.service.Status())
}
