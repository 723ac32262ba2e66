package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/services"
)

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

// writeDataResponse wraps data with the refresh state of the read that produced it
func writeDataResponse(w http.ResponseWriter, data interface{}, state services.ReadState) {
	writeJSONResponse(w, http.StatusOK, models.DataResponse{
		Data:       data,
		Refreshing: state.Refreshing,
		Error:      state.Error,
	})
}

// parseRefresh reads the optional refresh query flag
func parseRefresh(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("refresh")
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
