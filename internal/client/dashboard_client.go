package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"inventory-dashboard/internal/models"
)

// Backend routes, relative to the configured base URL
const (
	PathInventory        = "/api/inventory"
	PathOrders           = "/api/orders"
	PathAnalyticsSummary = "/api/analytics/summary"
	PathUploadInventory  = "/api/upload/inventory"
	PathUploadOrders     = "/api/upload/orders"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 32 << 20
	maxErrorSnippet  = 256
	uploadFormField  = "file"
)

// Recorder receives observations about backend traffic
type Recorder interface {
	RecordBackendRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
	RecordSwallowedError(ctx context.Context, endpoint, kind string)
	RecordUpload(ctx context.Context, resource string, success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordBackendRequest(context.Context, string, int, time.Duration) {}
func (nopRecorder) RecordSwallowedError(context.Context, string, string) {}
func (nopRecorder) RecordUpload(context.Context, string, bool) {}

// ClientConfig holds configuration for the dashboard client
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Recorder   Recorder
	Logger     *slog.Logger
}

// DashboardClient is the single point of network I/O towards the inventory backend
type DashboardClient struct {
	baseURL    string
	httpClient *http.Client
	recorder   Recorder
	logger     *slog.Logger
}

// NewDashboardClient creates a new dashboard client.
// The default http.Client has no cookie jar and the client never sets
// Authorization, so no credentials leave the process.
func NewDashboardClient(cfg ClientConfig) *DashboardClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DashboardClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		recorder:   recorder,
		logger:     logger,
	}
}

// BaseURL returns the backend base URL requests are sent to
func (c *DashboardClient) BaseURL() string {
	return c.baseURL
}

// ListInventory retrieves all inventory items, reporting any failure
func (c *DashboardClient) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	return getList[models.InventoryItem](ctx, c, PathInventory)
}

// ListOrders retrieves all orders, reporting any failure
func (c *DashboardClient) ListOrders(ctx context.Context) ([]models.Order, error) {
	return getList[models.Order](ctx, c, PathOrders)
}

// GetAnalyticsSummary retrieves the analytics summary, reporting any failure
func (c *DashboardClient) GetAnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	body, err := c.get(ctx, PathAnalyticsSummary)
	if err != nil {
		return nil, err
	}

	summary, err := decodeObject[models.AnalyticsSummary](body)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformed, Endpoint: PathAnalyticsSummary, Err: err}
	}
	return &summary, nil
}

// FetchInventory returns the inventory, or an empty slice if the backend could not be read
func (c *DashboardClient) FetchInventory(ctx context.Context) []models.InventoryItem {
	items, err := c.ListInventory(ctx)
	if err != nil {
		c.swallow(ctx, PathInventory, err)
		return []models.InventoryItem{}
	}
	return items
}

// FetchOrders returns the orders, or an empty slice if the backend could not be read
func (c *DashboardClient) FetchOrders(ctx context.Context) []models.Order {
	orders, err := c.ListOrders(ctx)
	if err != nil {
		c.swallow(ctx, PathOrders, err)
		return []models.Order{}
	}
	return orders
}

// FetchAnalyticsSummary returns the summary, or a zero-valued summary if the
// backend could not be read. Zero means "not available yet", not an error.
func (c *DashboardClient) FetchAnalyticsSummary(ctx context.Context) models.AnalyticsSummary {
	summary, err := c.GetAnalyticsSummary(ctx)
	if err != nil {
		c.swallow(ctx, PathAnalyticsSummary, err)
		return models.AnalyticsSummary{}
	}
	return *summary
}

// UploadInventoryFile sends an inventory file (csv or excel) to the backend
func (c *DashboardClient) UploadInventoryFile(ctx context.Context, filename string, content io.Reader) (*models.UploadAck, error) {
	return c.upload(ctx, models.ResourceInventory, PathUploadInventory, filename, content)
}

// UploadOrdersFile sends an orders file (csv or excel) to the backend
func (c *DashboardClient) UploadOrdersFile(ctx context.Context, filename string, content io.Reader) (*models.UploadAck, error) {
	return c.upload(ctx, models.ResourceOrders, PathUploadOrders, filename, content)
}

func getList[T any](ctx context.Context, c *DashboardClient, path string) ([]T, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	items, err := decodeList[T](body)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformed, Endpoint: path, Err: err}
	}
	return items, nil
}

// get performs a JSON GET and returns the body of a 2xx response
func (c *DashboardClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Endpoint: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.RecordBackendRequest(ctx, path, 0, time.Since(start))
		return nil, &FetchError{Kind: KindTransport, Endpoint: path, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.recorder.RecordBackendRequest(ctx, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &FetchError{
			Kind:       KindHTTPStatus,
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request failed: %s", responseMessage(body)),
		}
	}

	return body, nil
}

func (c *DashboardClient) swallow(ctx context.Context, endpoint string, err error) {
	kind := kindOf(err)
	c.logger.Warn("Backend read failed, serving empty value",
		"endpoint", endpoint,
		"error_kind", kind,
		"error", err)
	c.recorder.RecordSwallowedError(ctx, endpoint, string(kind))
}

func (c *DashboardClient) upload(ctx context.Context, resource models.Resource, path, filename string, content io.Reader) (*models.UploadAck, error) {
	if filename == "" {
		filename = string(resource) + ".csv"
	}

	ack, err := c.sendUpload(ctx, resource, path, filename, content)
	c.recorder.RecordUpload(ctx, string(resource), err == nil)
	if err != nil {
		c.logger.Error("Upload failed", "resource", resource, "filename", filename, "error", err)
		return nil, err
	}

	c.logger.Info("Upload accepted", "resource", resource, "filename", filename, "count", ack.Count, "message", ack.Message)
	return ack, nil
}

func (c *DashboardClient) sendUpload(ctx context.Context, resource models.Resource, path, filename string, content io.Reader) (*models.UploadAck, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(uploadFormField, filename)
	if err != nil {
		return nil, &UploadError{Resource: resource, Err: fmt.Errorf("failed to create form file: %w", err)}
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &UploadError{Resource: resource, Err: fmt.Errorf("failed to read file content: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &UploadError{Resource: resource, Err: fmt.Errorf("failed to finalize form: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, &UploadError{Resource: resource, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.RecordBackendRequest(ctx, path, 0, time.Since(start))
		return nil, &UploadError{Resource: resource, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.recorder.RecordBackendRequest(ctx, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &UploadError{Resource: resource, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &UploadError{Resource: resource, StatusCode: resp.StatusCode, Message: responseMessage(body)}
	}

	var ack models.UploadAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, &UploadError{Resource: resource, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode acknowledgment: %w", err)}
	}

	if ack.Error != "" {
		return nil, &UploadError{Resource: resource, StatusCode: resp.StatusCode, Message: ack.Error}
	}

	return &ack, nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// responseMessage extracts a readable message from an error body
func responseMessage(body []byte) string {
	var fields struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		if fields.Error != "" {
			return fields.Error
		}
		if fields.Detail != "" {
			return fields.Detail
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorSnippet {
		msg = msg[:maxErrorSnippet] + "..."
	}
	return msg
}
