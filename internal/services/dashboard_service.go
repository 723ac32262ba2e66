package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"inventory-dashboard/internal/analytics"
	"inventory-dashboard/internal/cache"
	"inventory-dashboard/internal/events"
	"inventory-dashboard/internal/models"
)

// ErrUnknownResource is returned for a resource the dashboard does not serve
var ErrUnknownResource = errors.New("unknown resource")

// Backend is the uncached part of the API client used by the service
type Backend interface {
	FetchAnalyticsSummary(ctx context.Context) models.AnalyticsSummary
	UploadInventoryFile(ctx context.Context, filename string, content io.Reader) (*models.UploadAck, error)
	UploadOrdersFile(ctx context.Context, filename string, content io.Reader) (*models.UploadAck, error)
}

// Cache is the refresh cache in front of the list endpoints
type Cache interface {
	RefreshInventory(ctx context.Context, force bool) ([]models.InventoryItem, bool)
	RefreshOrders(ctx context.Context, force bool) ([]models.Order, bool)
	IsRefreshing() bool
	LastError() string
	Status() cache.Status
}

// Bus is the signal bus the service publishes to and listens on
type Bus interface {
	events.Publisher
	events.Subscriber
}

// ReadState is the out-of-band state that accompanies every read
type ReadState struct {
	Refreshing bool
	Error      string
}

// Status describes the service for diagnostics
type Status struct {
	cache.Status
	Origin       string            `json:"origin"`
	PendingForce []models.Resource `json:"pendingForce"`
}

// DashboardServiceConfig holds the collaborators of the dashboard service
type DashboardServiceConfig struct {
	Backend Backend
	Cache   Cache
	Bus     Bus
	// Publisher overrides Bus for outgoing signals, e.g. to fan out through Kafka
	Publisher events.Publisher
	Origin    string
	Logger    *slog.Logger
}

// DashboardService combines the API client, refresh cache and signal bus
type DashboardService struct {
	backend   Backend
	cache     Cache
	bus       Bus
	publisher events.Publisher
	origin    string
	logger    *slog.Logger

	mu        sync.Mutex
	forceNext map[models.Resource]bool

	sub  *events.Subscription
	done chan struct{}
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(cfg DashboardServiceConfig) *DashboardService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = cfg.Bus
	}

	return &DashboardService{
		backend:   cfg.Backend,
		cache:     cfg.Cache,
		bus:       cfg.Bus,
		publisher: publisher,
		origin:    cfg.Origin,
		logger:    logger,
		forceNext: make(map[models.Resource]bool),
	}
}

// Start listens for change signals until Stop is called
func (s *DashboardService) Start() {
	if s.sub != nil {
		return
	}

	s.sub = s.bus.Subscribe(events.TopicInventoryUpdated, events.TopicOrdersUpdated)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for signal := range s.sub.C {
			s.logger.Debug("Change signal received",
				"signal_id", signal.ID,
				"resource", signal.Resource,
				"origin", signal.Origin,
			)
			// Uploads from this instance invalidated synchronously already
			if signal.Origin == s.origin {
				continue
			}
			s.invalidate(signal.Resource)
		}
	}()

	s.logger.Info("Dashboard service listening for change signals")
}

// Stop detaches from the bus and waits for the listener to exit
func (s *DashboardService) Stop() {
	if s.sub == nil {
		return
	}
	s.sub.Unsubscribe()
	<-s.done
	s.sub = nil
	s.logger.Info("Dashboard service stopped")
}

// Subscribe exposes change signals to outer consumers
func (s *DashboardService) Subscribe(topics ...events.Topic) *events.Subscription {
	return s.bus.Subscribe(topics...)
}

// Inventory returns the inventory, forcing a network read when requested or
// when a change signal arrived since the last read
func (s *DashboardService) Inventory(ctx context.Context, force bool) ([]models.InventoryItem, ReadState) {
	force = s.consumeForce(models.ResourceInventory) || force

	items, ok := s.cache.RefreshInventory(ctx, force)
	if !ok {
		s.rearm(models.ResourceInventory, force)
		items = []models.InventoryItem{}
	}
	return items, s.state()
}

// Orders returns the orders, with the same forcing rules as Inventory
func (s *DashboardService) Orders(ctx context.Context, force bool) ([]models.Order, ReadState) {
	force = s.consumeForce(models.ResourceOrders) || force

	orders, ok := s.cache.RefreshOrders(ctx, force)
	if !ok {
		s.rearm(models.ResourceOrders, force)
		orders = []models.Order{}
	}
	return orders, s.state()
}

// Summary returns the analytics summary; zero-valued when unavailable
func (s *DashboardService) Summary(ctx context.Context) models.AnalyticsSummary {
	return s.backend.FetchAnalyticsSummary(ctx)
}

// CategoryBreakdown returns supply and demand per category
func (s *DashboardService) CategoryBreakdown(ctx context.Context) ([]analytics.CategoryPoint, ReadState) {
	inventory, orders, state := s.both(ctx)
	return analytics.CategoryBreakdown(inventory, orders), state
}

// DailyOrders returns order counts per day
func (s *DashboardService) DailyOrders(ctx context.Context) ([]analytics.DailyOrdersPoint, ReadState) {
	orders, state := s.Orders(ctx, false)
	return analytics.DailyOrders(orders), state
}

// Trends returns the monthly inventory trend
func (s *DashboardService) Trends(ctx context.Context) ([]analytics.TrendPoint, ReadState) {
	inventory, orders, state := s.both(ctx)
	return analytics.MonthlyTrend(inventory, orders), state
}

// LowStock returns items at or below their minimum
func (s *DashboardService) LowStock(ctx context.Context) ([]models.InventoryItem, ReadState) {
	inventory, state := s.Inventory(ctx, false)
	return analytics.LowStock(inventory), state
}

// Upload sends a file to the backend. Only a successful upload invalidates
// cached reads and emits a change signal.
func (s *DashboardService) Upload(ctx context.Context, resource models.Resource, filename string, content io.Reader) (*models.UploadAck, error) {
	var (
		ack *models.UploadAck
		err error
	)

	switch resource {
	case models.ResourceInventory:
		ack, err = s.backend.UploadInventoryFile(ctx, filename, content)
	case models.ResourceOrders:
		ack, err = s.backend.UploadOrdersFile(ctx, filename, content)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(resource)

	signal, err := events.NewSignal(resource, ack.Count, s.origin)
	if err != nil {
		s.logger.Error("Failed to build change signal", "resource", resource, "error", err)
		return ack, nil
	}
	if err := s.publisher.Publish(ctx, signal); err != nil {
		s.logger.Warn("Failed to publish change signal",
			"signal_id", signal.ID,
			"resource", resource,
			"error", err,
		)
	}

	return ack, nil
}

// Status returns cache and invalidation state
func (s *DashboardService) Status() Status {
	s.mu.Lock()
	pending := make([]models.Resource, 0, len(s.forceNext))
	for resource, armed := range s.forceNext {
		if armed {
			pending = append(pending, resource)
		}
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	return Status{
		Status:       s.cache.Status(),
		Origin:       s.origin,
		PendingForce: pending,
	}
}

// both reads inventory and orders concurrently
func (s *DashboardService) both(ctx context.Context) ([]models.InventoryItem, []models.Order, ReadState) {
	var (
		inventory []models.InventoryItem
		orders    []models.Order
		wg        sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		inventory, _ = s.Inventory(ctx, false)
	}()
	go func() {
		defer wg.Done()
		orders, _ = s.Orders(ctx, false)
	}()
	wg.Wait()

	return inventory, orders, s.state()
}

func (s *DashboardService) state() ReadState {
	return ReadState{
		Refreshing: s.cache.IsRefreshing(),
		Error:      s.cache.LastError(),
	}
}

func (s *DashboardService) invalidate(resource models.Resource) {
	s.mu.Lock()
	s.forceNext[resource] = true
	s.mu.Unlock()
}

func (s *DashboardService) consumeForce(resource models.Resource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	armed := s.forceNext[resource]
	delete(s.forceNext, resource)
	return armed
}

// rearm keeps a pending invalidation alive when the forced read failed
func (s *DashboardService) rearm(resource models.Resource, forced bool) {
	if forced {
		s.invalidate(resource)
	}
}
