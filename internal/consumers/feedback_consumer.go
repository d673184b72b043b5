package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/analytics"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/clients/kafka_client"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/utils"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

var ErrEmptyFeedback = errors.New("feedback message is empty")

type MessageSource interface {
	Next() (*kafka.Message, error)
}

type OffsetCommitter interface {
	Commit(ctx context.Context, msgs []*kafka.Message) error
}

type Publisher interface {
	PublishJSON(topic, key string, value interface{}) error
}

// FeedbackWriter is satisfied by db.FeedbackStore.
type FeedbackWriter interface {
	NewStoredFeedback(id, source string, feedback models.Feedback) models.StoredFeedback
	BatchPutFeedback(ctx context.Context, records []models.StoredFeedback) error
}

// pendingFeedback pairs a consumed message with what it produced. record is
// nil for messages that were skipped but still need their offset committed.
type pendingFeedback struct {
	msg    *kafka.Message
	record *models.StoredFeedback
}

type FeedbackConsumer struct {
	analyzer  analytics.TextAnalyzer
	fallback  analytics.TextAnalyzer
	store     FeedbackWriter
	publisher Publisher
	committer OffsetCommitter
	buffer    *utils.BatchBuffer[pendingFeedback]

	batchTimeout time.Duration
	retryDelay   time.Duration
}

// NewFeedbackConsumer wires the pipeline. fallback may be nil.
func NewFeedbackConsumer(analyzer, fallback analytics.TextAnalyzer, store FeedbackWriter, publisher Publisher, committer OffsetCommitter) *FeedbackConsumer {
	return &FeedbackConsumer{
		analyzer:     analyzer,
		fallback:     fallback,
		store:        store,
		publisher:    publisher,
		committer:    committer,
		buffer:       utils.NewBatchBuffer[pendingFeedback](kafka_client.BATCH_SIZE),
		batchTimeout: kafka_client.BATCH_TIMEOUT,
		retryDelay:   kafka_client.RETRY_DELAY,
	}
}

// DecodeSubmission parses a feedback-submitted message. When the storefront
// sent no id, one is derived from the message position so a redelivered
// message maps to the same record.
func DecodeSubmission(msg *kafka.Message) (models.FeedbackSubmission, error) {
	var submission models.FeedbackSubmission
	if err := json.Unmarshal(msg.Value, &submission); err != nil {
		return submission, fmt.Errorf("failed to decode submission: %w", err)
	}
	if strings.TrimSpace(submission.Message) == "" {
		return submission, ErrEmptyFeedback
	}
	if submission.FeedbackID == "" {
		submission.FeedbackID = positionID(msg.TopicPartition)
	}
	return submission, nil
}

func positionID(tp kafka.TopicPartition) string {
	topic := ""
	if tp.Topic != nil {
		topic = *tp.Topic
	}
	name := fmt.Sprintf("kafka://%s/%d/%d", topic, tp.Partition, tp.Offset)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Handle analyzes one message and buffers the result. It reports whether the
// buffer is full and should be flushed.
func (c *FeedbackConsumer) Handle(ctx context.Context, msg *kafka.Message) (bool, error) {
	submission, err := DecodeSubmission(msg)
	if err != nil {
		slog.Warn("[FeedbackConsumer] Skipping message",
			slog.String("error", err.Error()))
		return c.buffer.Add(pendingFeedback{msg: msg}), nil
	}

	feedback, source, err := analytics.AnalyzeWithFallback(ctx, c.analyzer, c.fallback, submission.Message)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Error("[FeedbackConsumer] Analysis failed, storing feedback without it",
			slog.String("feedback_id", submission.FeedbackID),
			slog.String("error", err.Error()))
		feedback = models.Feedback{Message: submission.Message, KeyPhrases: []string{}}
		source = models.AnalysisSourceNone
	}

	record := c.store.NewStoredFeedback(submission.FeedbackID, source, feedback)
	return c.buffer.Add(pendingFeedback{msg: msg, record: &record}), nil
}

// Flush stores the buffered feedback, publishes it and commits the offsets.
// On a store failure the batch is put back so the next flush retries it.
// Commit retries are bound to ctx.
func (c *FeedbackConsumer) Flush(ctx context.Context) error {
	batch := c.buffer.Drain()
	if len(batch) == 0 {
		return nil
	}

	records := make([]models.StoredFeedback, 0, len(batch))
	msgs := make([]*kafka.Message, 0, len(batch))
	for _, p := range batch {
		msgs = append(msgs, p.msg)
		if p.record != nil {
			records = append(records, *p.record)
		}
	}

	if len(records) > 0 {
		if err := c.store.BatchPutFeedback(ctx, records); err != nil {
			for _, p := range batch {
				c.buffer.Add(p)
			}
			return fmt.Errorf("[FeedbackConsumer] failed to store batch: %w", err)
		}
	}

	for _, record := range records {
		if err := c.publisher.PublishJSON(kafka_client.KAFKA_TOPIC_FEEDBACK_ANALYZED, record.FeedbackID, record); err != nil {
			slog.Warn("[FeedbackConsumer] Failed to publish analyzed feedback",
				slog.String("feedback_id", record.FeedbackID),
				slog.String("error", err.Error()))
		}
	}

	if err := c.committer.Commit(ctx, msgs); err != nil {
		return fmt.Errorf("[FeedbackConsumer] failed to commit batch: %w", err)
	}

	slog.Info("[FeedbackConsumer] Flushed feedback batch",
		slog.Int("stored", len(records)),
		slog.Int("messages", len(msgs)))
	return nil
}

// Run consumes until ctx is cancelled, flushing whenever the buffer fills or
// the batch timeout passes.
func (c *FeedbackConsumer) Run(ctx context.Context, source MessageSource) {
	lastFlush := time.Now()

	flush := func(ctx context.Context) {
		if err := c.Flush(ctx); err != nil {
			slog.Error("[FeedbackConsumer] Flush failed",
				slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
		}
		lastFlush = time.Now()
	}

	for {
		if ctx.Err() != nil {
			slog.Warn("[FeedbackConsumer] Consumer shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			flush(shutdownCtx)
			cancel()
			return
		}

		msg, err := source.Next()
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("[FeedbackConsumer] Failed to read message",
					slog.String("error", err.Error()))
				select {
				case <-ctx.Done():
				case <-time.After(c.retryDelay):
				}
			}
			continue
		}

		if msg != nil {
			full, err := c.Handle(ctx, msg)
			if err != nil {
				continue
			}
			if full {
				flush(ctx)
				continue
			}
		}

		if c.buffer.Size() > 0 && time.Since(lastFlush) >= c.batchTimeout {
			flush(ctx)
		}
	}
}
