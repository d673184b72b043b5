package kafka_client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

type KafkaCommitHandler struct {
	consumer *kafka.Consumer
}

func NewCommitHandler(consumer *kafka.Consumer) *KafkaCommitHandler {
	return &KafkaCommitHandler{consumer: consumer}
}

// Commit commits past the highest offset seen per partition in msgs,
// retrying until ctx is done.
func (ch *KafkaCommitHandler) Commit(ctx context.Context, msgs []*kafka.Message) error {
	if ch.consumer == nil {
		return errors.New("[KafkaCommitHandler] Kafka consumer has not been initialized")
	}
	offsets := NextOffsets(msgs)
	if len(offsets) == 0 {
		return nil
	}

	for i := 0; i < MAX_RETRIES; i++ {
		_, err := ch.consumer.CommitOffsets(offsets)
		if err == nil {
			slog.Debug("[KafkaCommitHandler] Committed offsets",
				slog.Int("partitions", len(offsets)),
				slog.Int("messages", len(msgs)))
			return nil
		}

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrAllBrokersDown {
			slog.Error("[KafkaCommitHandler] All Kafka brokers are down. Aborting commit")
			return err
		}

		slog.Warn("[KafkaCommitHandler] Failed to commit offsets, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			slog.Warn("[KafkaCommitHandler] Context canceled, stopping commit")
			return ctx.Err()
		case <-time.After(RETRY_DELAY):
		}
	}

	return fmt.Errorf("[KafkaCommitHandler] Failed to commit offsets after %d retries", MAX_RETRIES)
}

// NextOffsets returns, for every topic partition in msgs, the offset after the
// highest one seen. That is the offset Kafka expects to be committed.
func NextOffsets(msgs []*kafka.Message) []kafka.TopicPartition {
	type partitionKey struct {
		topic     string
		partition int32
	}

	highest := map[partitionKey]kafka.Offset{}
	var order []partitionKey
	for _, m := range msgs {
		if m == nil || m.TopicPartition.Topic == nil {
			continue
		}
		k := partitionKey{topic: *m.TopicPartition.Topic, partition: m.TopicPartition.Partition}
		current, ok := highest[k]
		if !ok {
			order = append(order, k)
		}
		if !ok || m.TopicPartition.Offset > current {
			highest[k] = m.TopicPartition.Offset
		}
	}

	offsets := make([]kafka.TopicPartition, 0, len(order))
	for _, k := range order {
		topic := k.topic
		offsets = append(offsets, kafka.TopicPartition{
			Topic:     &topic,
			Partition: k.partition,
			Offset:    highest[k] + 1,
		})
	}
	return offsets
}
