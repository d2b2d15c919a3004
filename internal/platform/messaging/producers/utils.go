package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	partitionReadAttempts = 5
	partitionReadDelay    = 2 * time.Second
)

// ensureTopic creates topicName unless the broker already reports partitions for it
func ensureTopic(admin topicAdmin, topicName string, numPartitions, replicationFactor int, delay time.Duration, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)

	for attempt := 1; attempt <= partitionReadAttempts; attempt++ {
		partitions, err = admin.ReadPartitions(topicName)
		if err == nil {
			break
		}
		log.Warn("Failed to read topic partitions", "topic", topicName, "attempt", attempt, "error", err)
		if attempt < partitionReadAttempts {
			time.Sleep(delay)
		}
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName, "partitions", len(partitions))
		return nil
	}

	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", topicName, "partitions", numPartitions, "replication_factor", replicationFactor)
	if err := admin.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}

	return nil
}

// dialAndEnsureTopic connects to the first broker and provisions topicName
func dialAndEnsureTopic(brokers, topicName string, numPartitions, replicationFactor int, log *slog.Logger) error {
	conn, err := kafka.Dial("tcp", brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopic(conn, topicName, numPartitions, replicationFactor, partitionReadDelay, log)
}
