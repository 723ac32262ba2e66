package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"inventory-dashboard/internal/models"

	"golang.org/x/sync/singleflight"
)

// DefaultFreshnessWindow is how long a cached read is served without revalidation
const DefaultFreshnessWindow = 30 * time.Second

// Fetcher performs the uncached reads
type Fetcher interface {
	ListInventory(ctx context.Context) ([]models.InventoryItem, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
}

// Recorder receives cache observations
type Recorder interface {
	RecordCacheLookup(ctx context.Context, resource string, hit bool)
	RecordRefreshFailure(ctx context.Context, resource string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(context.Context, string, bool) {}
func (nopRecorder) RecordRefreshFailure(context.Context, string) {}

// Config holds configuration for the refresh cache
type Config struct {
	FreshnessWindow time.Duration
	Recorder        Recorder

	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time
}

// EntryStatus describes one cache slot
type EntryStatus struct {
	Cached     bool  `json:"cached"`
	CapturedAt int64 `json:"capturedAt,omitempty"`
	AgeMillis  int64 `json:"ageMs,omitempty"`
	Fresh      bool  `json:"fresh"`
	Items      int   `json:"items"`
}

// Status is a snapshot of the cache state visible to consumers
type Status struct {
	Refreshing      bool                            `json:"refreshing"`
	Error           string                          `json:"error,omitempty"`
	FreshnessWindow string                          `json:"freshnessWindow"`
	Resources       map[models.Resource]EntryStatus `json:"resources"`
}

// RefreshCache keeps one time-boxed entry per resource in front of a Fetcher.
// Payloads are shared between callers and must be treated as read-only.
type RefreshCache struct {
	fetcher  Fetcher
	window   time.Duration
	now      func() time.Time
	recorder Recorder
	group    singleflight.Group
	inFlight atomic.Int32

	mu        sync.RWMutex
	inventory *Entry[[]models.InventoryItem]
	orders    *Entry[[]models.Order]
	lastError string
}

// NewRefreshCache creates a cache in front of fetcher
func NewRefreshCache(fetcher Fetcher, cfg Config) *RefreshCache {
	window := cfg.FreshnessWindow
	if window <= 0 {
		window = DefaultFreshnessWindow
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	slog.Info("Refresh cache initialized", "freshness_window", window.String())

	return &RefreshCache{
		fetcher:  fetcher,
		window:   window,
		now:      now,
		recorder: recorder,
	}
}

// RefreshInventory returns the inventory, from cache when fresh and not forced.
// The boolean is false when the underlying read failed; see LastError.
func (c *RefreshCache) RefreshInventory(ctx context.Context, force bool) ([]models.InventoryItem, bool) {
	return refresh(ctx, c, models.ResourceInventory, &c.inventory, force, c.fetcher.ListInventory)
}

// RefreshOrders returns the orders, from cache when fresh and not forced
func (c *RefreshCache) RefreshOrders(ctx context.Context, force bool) ([]models.Order, bool) {
	return refresh(ctx, c, models.ResourceOrders, &c.orders, force, c.fetcher.ListOrders)
}

// Refresh dispatches on resource; unknown resources yield nil, false
func (c *RefreshCache) Refresh(ctx context.Context, resource models.Resource, force bool) (interface{}, bool) {
	switch resource {
	case models.ResourceInventory:
		return c.RefreshInventory(ctx, force)
	case models.ResourceOrders:
		return c.RefreshOrders(ctx, force)
	default:
		slog.Warn("Refresh requested for unknown resource", "resource", resource)
		return nil, false
	}
}

// IsRefreshing reports whether any refresh is waiting on the network
func (c *RefreshCache) IsRefreshing() bool {
	return c.inFlight.Load() > 0
}

// LastError returns the message of the most recent failed refresh, if any
func (c *RefreshCache) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// FreshnessWindow returns the configured time-to-live
func (c *RefreshCache) FreshnessWindow() time.Duration {
	return c.window
}

// Status returns a snapshot of the cache state
func (c *RefreshCache) Status() Status {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	return Status{
		Refreshing:      c.IsRefreshing(),
		Error:           c.lastError,
		FreshnessWindow: c.window.String(),
		Resources: map[models.Resource]EntryStatus{
			models.ResourceInventory: entryStatus(c.inventory, now, c.window, func(p []models.InventoryItem) int { return len(p) }),
			models.ResourceOrders:    entryStatus(c.orders, now, c.window, func(p []models.Order) int { return len(p) }),
		},
	}
}

func entryStatus[T any](e *Entry[T], now time.Time, window time.Duration, size func(T) int) EntryStatus {
	if e == nil {
		return EntryStatus{}
	}
	return EntryStatus{
		Cached:     true,
		CapturedAt: e.TimestampMillis(),
		AgeMillis:  e.Age(now).Milliseconds(),
		Fresh:      e.Fresh(now, window),
		Items:      size(e.Payload),
	}
}

func (c *RefreshCache) setError(msg string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
}

func refresh[T any](
	ctx context.Context,
	c *RefreshCache,
	resource models.Resource,
	slot **Entry[T],
	force bool,
	fetch func(context.Context) (T, error),
) (T, bool) {
	if !force {
		c.mu.RLock()
		entry := *slot
		c.mu.RUnlock()

		now := c.now()
		if entry != nil && entry.Fresh(now, c.window) {
			c.recorder.RecordCacheLookup(ctx, string(resource), true)
			slog.Debug("Cache hit", "resource", resource, "age", entry.Age(now).String())
			return entry.Payload, true
		}
		c.recorder.RecordCacheLookup(ctx, string(resource), false)
	}

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	// load runs to completion even if the caller stops waiting.
	load := func() (T, error) {
		c.setError("")

		payload, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			c.setError(fmt.Sprintf("Failed to refresh %s data", resource))
			c.recorder.RecordRefreshFailure(ctx, string(resource))
			slog.Error("Refresh error", "resource", resource, "forced", force, "error", err)
			return payload, err
		}

		c.mu.Lock()
		*slot = &Entry[T]{Payload: payload, Timestamp: c.now()}
		c.mu.Unlock()

		slog.Debug("Cache entry stored", "resource", resource, "forced", force)
		return payload, nil
	}

	var zero T

	// A forced read always goes to the network on its own.
	if force {
		payload, err := load()
		if err != nil {
			return zero, false
		}
		return payload, true
	}

	v, err, shared := c.group.Do(string(resource), func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return zero, false
	}
	if shared {
		slog.Debug("Joined in-flight refresh", "resource", resource)
	}
	return v.(T), true
}
