package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/gamevault-settlement/internal/config"
)

// CallbackProducer forwards verified gateway results to the settlement worker. Writes are
// synchronous so the webhook only acknowledges the gateway once the broker has the message.
type CallbackProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewCallbackProducer ensures the callback topic exists and returns a producer for it
func NewCallbackProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*CallbackProducer, error) {
	if cfg.CallbackTopic == "" {
		return nil, fmt.Errorf("kafka callback topic is not configured")
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.CallbackTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure callback topic %s exists: %w", cfg.CallbackTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.CallbackTopic,
		Balancer:     &kafka.Hash{}, // Same reference, same partition
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return NewCallbackProducerWithWriter(logger, writer, cfg.CallbackTopic), nil
}

// NewCallbackProducerWithWriter wraps an existing writer
func NewCallbackProducerWithWriter(logger *slog.Logger, writer KafkaWriter, topic string) *CallbackProducer {
	return &CallbackProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish writes value as JSON keyed by key
func (p *CallbackProducer) Publish(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal callback message: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		p.logger.Error("Failed to publish callback message", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published callback message", "topic", p.topic, "key", key)
	return nil
}

// Close flushes and closes the writer
func (p *CallbackProducer) Close() error {
	p.logger.Info("Closing callback producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
