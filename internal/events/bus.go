package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inventory-dashboard/internal/models"

	"github.com/google/uuid"
)

// Topic names a broadcast channel
type Topic string

const (
	TopicInventoryUpdated Topic = "inventoryUpdated"
	TopicOrdersUpdated    Topic = "ordersUpdated"
)

const defaultBufferSize = 16

// ErrBusClosed is returned when publishing to a closed bus
var ErrBusClosed = errors.New("event bus is closed")

// TopicFor returns the topic announcing changes to resource
func TopicFor(resource models.Resource) (Topic, error) {
	switch resource {
	case models.ResourceInventory:
		return TopicInventoryUpdated, nil
	case models.ResourceOrders:
		return TopicOrdersUpdated, nil
	default:
		return "", fmt.Errorf("no topic for resource %q", resource)
	}
}

// Signal tells subscribers that cached data for Resource is stale
type Signal struct {
	ID        uuid.UUID       `json:"id"`
	Topic     Topic           `json:"topic"`
	Resource  models.Resource `json:"resource"`
	Count     int             `json:"count,omitempty"`
	Origin    string          `json:"origin"`
	EmittedAt time.Time       `json:"emittedAt"`
}

// NewSignal builds the change signal for resource
func NewSignal(resource models.Resource, count int, origin string) (Signal, error) {
	topic, err := TopicFor(resource)
	if err != nil {
		return Signal{}, err
	}

	return Signal{
		ID:        uuid.New(),
		Topic:     topic,
		Resource:  resource,
		Count:     count,
		Origin:    origin,
		EmittedAt: time.Now().UTC(),
	}, nil
}

// Publisher emits signals
type Publisher interface {
	Publish(ctx context.Context, signal Signal) error
}

// Subscriber hands out subscriptions to one or more topics
type Subscriber interface {
	Subscribe(topics ...Topic) *Subscription
}

// Recorder receives delivery observations
type Recorder interface {
	RecordSignal(ctx context.Context, topic string, delivered, dropped int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSignal(context.Context, string, int, int) {}

// Subscription receives signals on C until Unsubscribe is called or the bus closes
type Subscription struct {
	C <-chan Signal

	ch     chan Signal
	topics map[Topic]struct{}
	bus    *Bus
	once   sync.Once
}

// Unsubscribe detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

func (s *Subscription) wants(topic Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// BusConfig holds configuration for the in-process bus
type BusConfig struct {
	// BufferSize is the per-subscriber channel capacity
	BufferSize int
	Logger     *slog.Logger
	Recorder   Recorder
}

// Bus is an in-process fan-out of signals. Delivery never blocks the publisher:
// a subscriber whose buffer is full misses the signal.
type Bus struct {
	mu       sync.RWMutex
	subs     map[*Subscription]struct{}
	closed   bool
	buffer   int
	logger   *slog.Logger
	recorder Recorder
}

// NewBus creates an empty bus
func NewBus(cfg BusConfig) *Bus {
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Bus{
		subs:     make(map[*Subscription]struct{}),
		buffer:   buffer,
		logger:   logger,
		recorder: recorder,
	}
}

// Subscribe registers for the given topics, or for every topic when none are given
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	ch := make(chan Signal, b.buffer)
	sub := &Subscription{
		C:      ch,
		ch:     ch,
		topics: make(map[Topic]struct{}, len(topics)),
		bus:    b,
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return sub
	}

	b.subs[sub] = struct{}{}
	b.logger.Debug("Subscriber added", "topics", topics, "subscribers", len(b.subs))
	return sub
}

// Publish delivers signal to every matching subscriber without blocking
func (b *Bus) Publish(ctx context.Context, signal Signal) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	delivered, dropped := 0, 0
	for sub := range b.subs {
		if !sub.wants(signal.Topic) {
			continue
		}
		select {
		case sub.ch <- signal:
			delivered++
		default:
			dropped++
		}
	}

	if dropped > 0 {
		b.logger.Warn("Subscriber buffer full, dropping signal",
			"signal_id", signal.ID,
			"topic", signal.Topic,
			"dropped", dropped,
		)
	}

	b.logger.Debug("Signal published",
		"signal_id", signal.ID,
		"topic", signal.Topic,
		"origin", signal.Origin,
		"delivered", delivered,
	)
	b.recorder.RecordSignal(ctx, string(signal.Topic), delivered, dropped)
	return nil
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close detaches every subscriber and rejects further publishes
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
	b.logger.Info("Event bus closed")
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}
