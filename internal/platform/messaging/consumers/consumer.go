package consumers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gamevault-settlement/internal/config"
)

// MessageHandler processes one message. A nil return commits the offset.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// messageReader is the part of *kafka.Reader the consumer relies on
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the callback topic within a consumer group
type KafkaConsumer struct {
	reader     messageReader
	logger     *slog.Logger
	topic      string
	groupID    string
	retryDelay time.Duration
	maxDelay   time.Duration
	done       chan struct{}
}

func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.CallbackTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	})

	return newKafkaConsumer(logger, reader, cfg.CallbackTopic, cfg.ConsumerGroup)
}

func newKafkaConsumer(logger *slog.Logger, reader messageReader, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		logger:     logger,
		topic:      topic,
		groupID:    groupID,
		retryDelay: time.Second,
		maxDelay:   30 * time.Second,
		done:       make(chan struct{}),
	}
}

// Subscribe starts the fetch loop in the background. A message whose handler fails is
// handled again in place before the next one is fetched, so a later commit never moves the
// group offset past it. On shutdown it stays uncommitted and is redelivered on restart.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return errors.New("message handler is required")
	}

	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)

	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
					return
				}
				if errors.Is(err, io.EOF) {
					c.logger.Info("Kafka reader closed, stopping consumer", "topic", c.topic)
					return
				}
				c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.retryDelay):
				}
				continue
			}

			if !c.deliver(ctx, handler, msg) {
				return
			}
		}
	}()

	return nil
}

// deliver runs handler on msg until it succeeds, backing off exponentially between
// attempts, and then commits it. It returns false when ctx ends first.
func (c *KafkaConsumer) deliver(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
	log.Debug("Received message from Kafka")

	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		log.Error("Failed to process message, retrying before fetching the next one",
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			log.Warn("Consumer stopping, message left uncommitted")
			return false
		case <-time.After(delay):
		}
		delay = min(delay*2, c.maxDelay)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message after successful processing", "error", err)
	}
	return true
}

// Done is closed when the fetch loop exits
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
