package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultRetryDelay = 5 * time.Second
	originHeader      = "origin"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig holds the broker settings shared by publisher and relay
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// Origin identifies this process so the relay can skip its own signals
	Origin string
	Logger *slog.Logger
}

func (c KafkaConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// KafkaPublisher publishes signals locally and then to a Kafka topic for other instances
type KafkaPublisher struct {
	local  Publisher
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher wraps local with a Kafka writer
func NewKafkaPublisher(local Publisher, cfg KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	cfg.logger().Info("Initialized Kafka signal publisher", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return newKafkaPublisher(local, writer, cfg)
}

func newKafkaPublisher(local Publisher, writer messageWriter, cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		local:  local,
		writer: writer,
		topic:  cfg.Topic,
		logger: cfg.logger(),
	}
}

// Publish delivers to local subscribers first. A Kafka failure is returned
// but does not undo the local delivery.
func (p *KafkaPublisher) Publish(ctx context.Context, signal Signal) error {
	if err := p.local.Publish(ctx, signal); err != nil {
		return err
	}

	value, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to encode signal: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(signal.ID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: originHeader, Value: []byte(signal.Origin)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to forward signal to Kafka",
			"signal_id", signal.ID,
			"topic", p.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write signal to kafka: %w", err)
	}

	p.logger.Debug("Signal forwarded to Kafka", "signal_id", signal.ID, "topic", p.topic)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka signal publisher")
	return p.writer.Close()
}

// KafkaRelay republishes signals from other instances onto the local bus
type KafkaRelay struct {
	reader     messageReader
	local      Publisher
	origin     string
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewKafkaRelay creates a consumer-group reader for the signal topic
func NewKafkaRelay(local Publisher, cfg KafkaConfig) *KafkaRelay {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})

	cfg.logger().Info("Initialized Kafka signal relay",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"group_id", cfg.GroupID,
	)
	return newKafkaRelay(local, reader, cfg)
}

func newKafkaRelay(local Publisher, reader messageReader, cfg KafkaConfig) *KafkaRelay {
	return &KafkaRelay{
		reader:     reader,
		local:      local,
		origin:     cfg.Origin,
		retryDelay: defaultRetryDelay,
		logger:     cfg.logger(),
	}
}

// Run consumes until ctx is cancelled
func (r *KafkaRelay) Run(ctx context.Context) {
	r.logger.Info("Kafka signal relay started")

	for {
		m, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("Kafka signal relay stopping")
				return
			}
			r.logger.Error("Error reading signal from Kafka", "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(r.retryDelay):
			}
			continue
		}

		if err := r.handleMessage(ctx, m); err != nil {
			r.logger.Warn("Discarding Kafka message",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

func (r *KafkaRelay) handleMessage(ctx context.Context, m kafka.Message) error {
	var signal Signal
	if err := json.Unmarshal(m.Value, &signal); err != nil {
		return fmt.Errorf("failed to decode signal: %w", err)
	}

	topic, err := TopicFor(signal.Resource)
	if err != nil {
		return err
	}
	if signal.Topic != topic {
		return fmt.Errorf("topic %q does not match resource %q", signal.Topic, signal.Resource)
	}

	if signal.Origin == r.origin {
		r.logger.Debug("Skipping own signal", "signal_id", signal.ID)
		return nil
	}

	r.logger.Debug("Relaying remote signal",
		"signal_id", signal.ID,
		"topic", signal.Topic,
		"origin", signal.Origin,
	)
	return r.local.Publish(ctx, signal)
}

// Close closes the reader
func (r *KafkaRelay) Close() error {
	r.logger.Info("Closing Kafka signal relay")
	return r.reader.Close()
}
