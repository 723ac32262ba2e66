package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"inventory-dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu        sync.Mutex
	delivered map[string]int
	dropped   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{delivered: map[string]int{}, dropped: map[string]int{}}
}

func (r *countingRecorder) RecordSignal(_ context.Context, topic string, delivered, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered[topic] += delivered
	r.dropped[topic] += dropped
}

func mustSignal(t *testing.T, resource models.Resource) Signal {
	t.Helper()
	sig, err := NewSignal(resource, 3, "test-origin")
	require.NoError(t, err)
	return sig
}

func receive(t *testing.T, sub *Subscription) Signal {
	t.Helper()
	select {
	case sig, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return sig
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for signal")
		return Signal{}
	}
}

func assertNothingPending(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case sig := <-sub.C:
		t.Fatalf("unexpected signal %+v", sig)
	default:
	}
}

func TestNewSignal(t *testing.T) {
	sig, err := NewSignal(models.ResourceOrders, 4, "origin-a")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sig.ID)
	assert.Equal(t, TopicOrdersUpdated, sig.Topic)
	assert.Equal(t, models.ResourceOrders, sig.Resource)
	assert.Equal(t, 4, sig.Count)
	assert.Equal(t, "origin-a", sig.Origin)
	assert.WithinDuration(t, time.Now(), sig.EmittedAt, 5*time.Second)

	_, err = NewSignal(models.Resource("suppliers"), 0, "origin-a")
	assert.Error(t, err)
}

func TestTopicFor(t *testing.T) {
	topic, err := TopicFor(models.ResourceInventory)
	require.NoError(t, err)
	assert.Equal(t, TopicInventoryUpdated, topic)

	topic, err = TopicFor(models.ResourceOrders)
	require.NoError(t, err)
	assert.Equal(t, TopicOrdersUpdated, topic)
}

func TestBus_DeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus(BusConfig{})
	ctx := context.Background()

	inventoryOnly := bus.Subscribe(TopicInventoryUpdated)
	ordersOnly := bus.Subscribe(TopicOrdersUpdated)
	everything := bus.Subscribe()

	sig := mustSignal(t, models.ResourceInventory)
	require.NoError(t, bus.Publish(ctx, sig))

	assert.Equal(t, sig, receive(t, inventoryOnly))
	assert.Equal(t, sig, receive(t, everything))
	assertNothingPending(t, ordersOnly)
}

func TestBus_FullSubscriberDropsWithoutBlocking(t *testing.T) {
	recorder := newCountingRecorder()
	bus := NewBus(BusConfig{BufferSize: 1, Recorder: recorder})
	ctx := context.Background()

	slow := bus.Subscribe(TopicOrdersUpdated)

	first := mustSignal(t, models.ResourceOrders)
	second := mustSignal(t, models.ResourceOrders)
	require.NoError(t, bus.Publish(ctx, first))
	require.NoError(t, bus.Publish(ctx, second))

	assert.Equal(t, first, receive(t, slow))
	assertNothingPending(t, slow)

	assert.Equal(t, 1, recorder.delivered[string(TopicOrdersUpdated)])
	assert.Equal(t, 1, recorder.dropped[string(TopicOrdersUpdated)])
}

func TestSubscription_Unsubscribe(t *testing.T) {
	bus := NewBus(BusConfig{})
	sub := bus.Subscribe(TopicInventoryUpdated)
	require.Equal(t, 1, bus.SubscriberCount())

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 0, bus.SubscriberCount())
	_, open := <-sub.C
	assert.False(t, open)

	require.NoError(t, bus.Publish(context.Background(), mustSignal(t, models.ResourceInventory)))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(BusConfig{})
	sub := bus.Subscribe()

	bus.Close()
	bus.Close()

	_, open := <-sub.C
	assert.False(t, open)
	assert.ErrorIs(t, bus.Publish(context.Background(), mustSignal(t, models.ResourceOrders)), ErrBusClosed)

	late := bus.Subscribe()
	_, open = <-late.C
	assert.False(t, open)
	late.Unsubscribe()
}

func TestBus_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	bus := NewBus(BusConfig{BufferSize: 4})
	ctx := context.Background()

	sig := mustSignal(t, models.ResourceInventory)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		sub := bus.Subscribe()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = bus.Publish(ctx, sig)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Unsubscribe()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, bus.SubscriberCount())
}
