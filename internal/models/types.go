package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Resource identifies one of the cached read resources
type Resource string

const (
	ResourceInventory Resource = "inventory"
	ResourceOrders    Resource = "orders"
)

// Resources lists every cached resource kind
var Resources = []Resource{ResourceInventory, ResourceOrders}

// ParseResource maps a path segment onto a known resource
func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case ResourceInventory:
		return ResourceInventory, nil
	case ResourceOrders:
		return ResourceOrders, nil
	default:
		return "", fmt.Errorf("unknown resource: %q", s)
	}
}

// InventoryItem is one part tracked by the backend, keyed by PartNumber
type InventoryItem struct {
	ID          int    `json:"id"`
	PartNumber  string `json:"part_number"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	InStock     int    `json:"in_stock"`
	MinRequired int    `json:"min_required"`
	OnOrder     int    `json:"on_order"`
	LastUpdated string `json:"last_updated"`
}

// Order status values the dashboard understands; any other string is tolerated
const (
	OrderStatusPending   = "Pending"
	OrderStatusCompleted = "Completed"
)

// Order references an InventoryItem through PartNumber (not enforced)
type Order struct {
	ID               int    `json:"id"`
	OrderNumber      string `json:"order_number"`
	PartNumber       string `json:"part_number"`
	PartName         string `json:"part_name,omitempty"`
	Quantity         int    `json:"quantity"`
	Status           string `json:"status"`
	OrderDate        string `json:"order_date"`
	ExpectedDelivery string `json:"expected_delivery"`
	Supplier         string `json:"supplier"`
}

// AnalyticsSummary is the aggregate returned by the summary endpoint
type AnalyticsSummary struct {
	TotalParts int `json:"total_parts"`

	// TotalValue is written as a JSON number, see MarshalJSON
	TotalValue   decimal.Decimal `json:"total_value"`
	LowStock     int             `json:"low_stock"`
	Backorders   int             `json:"backorders"`
	TurnoverRate float64         `json:"turnover_rate"`
	AccuracyRate float64         `json:"accuracy_rate"`
}

// MarshalJSON writes total_value as a plain number, which is what the renderer reads.
// Other decimals keep the library's quoted encoding.
func (s AnalyticsSummary) MarshalJSON() ([]byte, error) {
	type plain AnalyticsSummary
	return json.Marshal(struct {
		plain
		TotalValue json.Number `json:"total_value"`
	}{
		plain:      plain(s),
		TotalValue: json.Number(s.TotalValue.String()),
	})
}

// UploadAck is the backend acknowledgment for a file upload.
// The backend reports some failures with a 2xx status and Error set.
type UploadAck struct {
	Message string         `json:"message,omitempty"`
	Count   int            `json:"count,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details *UploadDetails `json:"details,omitempty"`
}

type UploadDetails struct {
	Type string `json:"type"`
}

// DataResponse wraps data served to the dashboard together with the refresh state
type DataResponse struct {
	Data       interface{} `json:"data"`
	Refreshing bool        `json:"refreshing"`
	Error      string      `json:"error,omitempty"`
}

// HealthResponse represents the health endpoint payload
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	APIBaseURL string `json:"apiBaseUrl"`
	Timestamp  string `json:"timestamp"`
}
