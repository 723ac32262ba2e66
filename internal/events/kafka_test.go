package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"inventory-dashboard/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// fakeReader serves queued messages, then blocks until the context ends
type fakeReader struct {
	messages chan kafka.Message
	failures int
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.failures > 0 {
		r.failures--
		return kafka.Message{}, errors.New("broker unavailable")
	}
	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error { return nil }

func encode(t *testing.T, sig Signal) kafka.Message {
	t.Helper()
	value, err := json.Marshal(sig)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(sig.ID.String()), Value: value}
}

func TestKafkaPublisher_PublishesLocallyThenForwards(t *testing.T) {
	bus := NewBus(BusConfig{})
	sub := bus.Subscribe()
	writer := &fakeWriter{}
	publisher := newKafkaPublisher(bus, writer, KafkaConfig{Topic: "dashboard-signals"})

	sig := mustSignal(t, models.ResourceInventory)
	require.NoError(t, publisher.Publish(context.Background(), sig))

	assert.Equal(t, sig, receive(t, sub))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, sig.ID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "test-origin", string(msg.Headers[0].Value))

	var decoded Signal
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, sig.ID, decoded.ID)
	assert.Equal(t, sig.Topic, decoded.Topic)
}

func TestKafkaPublisher_WriteFailureKeepsLocalDelivery(t *testing.T) {
	bus := NewBus(BusConfig{})
	sub := bus.Subscribe()
	writer := &fakeWriter{err: errors.New("leader not available")}
	publisher := newKafkaPublisher(bus, writer, KafkaConfig{Topic: "dashboard-signals"})

	sig := mustSignal(t, models.ResourceOrders)
	err := publisher.Publish(context.Background(), sig)

	assert.ErrorContains(t, err, "leader not available")
	assert.Equal(t, sig, receive(t, sub))

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaRelay_HandleMessage(t *testing.T) {
	bus := NewBus(BusConfig{})
	sub := bus.Subscribe()
	relay := newKafkaRelay(bus, &fakeReader{}, KafkaConfig{Origin: "local"})
	ctx := context.Background()

	remote, err := NewSignal(models.ResourceOrders, 1, "remote")
	require.NoError(t, err)
	require.NoError(t, relay.handleMessage(ctx, encode(t, remote)))
	assert.Equal(t, remote.ID, receive(t, sub).ID)

	own, err := NewSignal(models.ResourceOrders, 1, "local")
	require.NoError(t, err)
	require.NoError(t, relay.handleMessage(ctx, encode(t, own)))
	assertNothingPending(t, sub)

	assert.Error(t, relay.handleMessage(ctx, kafka.Message{Value: []byte("not json")}))

	mismatched := remote
	mismatched.Topic = TopicInventoryUpdated
	assert.Error(t, relay.handleMessage(ctx, encode(t, mismatched)))

	unknown := remote
	unknown.Resource = models.Resource("suppliers")
	assert.Error(t, relay.handleMessage(ctx, encode(t, unknown)))
	assertNothingPending(t, sub)
}

func TestKafkaRelay_RunRetriesAndStops(t *testing.T) {
	bus := NewBus(BusConfig{})
	sub := bus.Subscribe(TopicInventoryUpdated)
	reader := &fakeReader{messages: make(chan kafka.Message, 1), failures: 1}
	relay := newKafkaRelay(bus, reader, KafkaConfig{Origin: "local"})
	relay.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	remote, err := NewSignal(models.ResourceInventory, 2, "remote")
	require.NoError(t, err)
	reader.messages <- encode(t, remote)

	assert.Equal(t, remote.ID, receive(t, sub).ID)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
