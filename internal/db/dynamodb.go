package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	maxBatchSize     = 25
	maxBatchRetries  = 3
	initialBatchWait = 500 * time.Millisecond
)

// DynamoDBAPI is the subset of *dynamodb.Client the store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

type FeedbackStore struct {
	client    DynamoDBAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
	backoff   time.Duration
}

func NewFeedbackStore(client DynamoDBAPI, tableName string, ttl time.Duration) *FeedbackStore {
	return &FeedbackStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		now:       time.Now,
		backoff:   initialBatchWait,
	}
}

// NewStoredFeedback stamps a feedback record with its id, source and timestamps.
func (s *FeedbackStore) NewStoredFeedback(id, source string, feedback models.Feedback) models.StoredFeedback {
	now := s.now().UTC()
	return models.StoredFeedback{
		FeedbackID: id,
		Feedback:   feedback,
		Source:     source,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
}

func (s *FeedbackStore) PutFeedback(ctx context.Context, feedback models.StoredFeedback) error {
	item, err := attributevalue.MarshalMap(feedback)
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal feedback %s: %w", feedback.FeedbackID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to put feedback %s: %w", feedback.FeedbackID, err)
	}

	slog.Info("[DynamoDB] Stored feedback",
		slog.String("feedback_id", feedback.FeedbackID))
	return nil
}

func (s *FeedbackStore) GetFeedback(ctx context.Context, id string) (models.StoredFeedback, bool, error) {
	var feedback models.StoredFeedback

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"feedback_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return feedback, false, fmt.Errorf("[DynamoDB] Failed to get feedback %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return feedback, false, nil
	}

	if err := attributevalue.UnmarshalMap(out.Item, &feedback); err != nil {
		return feedback, false, fmt.Errorf("[DynamoDB] Failed to unmarshal feedback %s: %w", id, err)
	}
	return feedback, true, nil
}

// BatchPutFeedback writes records in chunks of 25, retrying unprocessed items
// with a doubling backoff.
func (s *FeedbackStore) BatchPutFeedback(ctx context.Context, records []models.StoredFeedback) error {
	for i := 0; i < len(records); i += maxBatchSize {
		select {
		case <-ctx.Done():
			slog.Warn("[DynamoDB] context canceled")
			return ctx.Err()
		default:
		}

		end := i + maxBatchSize
		if end > len(records) {
			end = len(records)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, record := range records[i:end] {
			item, err := attributevalue.MarshalMap(record)
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to marshal feedback %s: %w", record.FeedbackID, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := s.batchWrite(ctx, writeRequests); err != nil {
			return err
		}
	}

	slog.Info("[DynamoDB] Successfully stored feedback batch",
		slog.Int("count", len(records)))
	return nil
}

func (s *FeedbackStore) batchWrite(ctx context.Context, writeRequests []types.WriteRequest) error {
	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			s.tableName: writeRequests,
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write feedback: %w", err)
	}

	retryCount := 0
	backoff := s.backoff
	for len(out.UnprocessedItems) > 0 && retryCount < maxBatchRetries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		slog.Warn("[DynamoDB] Retrying unprocessed feedback items...",
			slog.Int("attempt", retryCount+1),
			slog.Int("remaining", len(out.UnprocessedItems[s.tableName])))

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Retry error: %w", err)
		}
		retryCount++
	}

	if remaining := len(out.UnprocessedItems[s.tableName]); remaining > 0 {
		slog.Error("[DynamoDB] Some feedback items were not written even after retries",
			slog.Int("remaining", remaining))
		return fmt.Errorf("[DynamoDB] %d feedback items left unprocessed", remaining)
	}
	return nil
}
