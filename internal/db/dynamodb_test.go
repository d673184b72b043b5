package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamoDB struct {
	items       map[string]map[string]types.AttributeValue
	batchCalls  int
	batchSizes  []int
	unprocessed int // leave the last request of this many calls unprocessed
	putErr      error
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(item map[string]types.AttributeValue) string {
	return item["feedback_id"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[keyOf(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(params.Key)]}, nil
}

func (f *fakeDynamoDB) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchCalls++
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, reqs := range params.RequestItems {
		f.batchSizes = append(f.batchSizes, len(reqs))
		for i, req := range reqs {
			if f.unprocessed > 0 && i == len(reqs)-1 {
				f.unprocessed--
				out.UnprocessedItems[table] = append(out.UnprocessedItems[table], req)
				continue
			}
			f.items[keyOf(req.PutRequest.Item)] = req.PutRequest.Item
		}
	}
	if len(out.UnprocessedItems) == 0 {
		out.UnprocessedItems = nil
	}
	return out, nil
}

func newTestStore(client DynamoDBAPI) *FeedbackStore {
	store := NewFeedbackStore(client, "Feedback", time.Hour)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	store.backoff = time.Millisecond
	return store
}

func sampleFeedback(id string) models.StoredFeedback {
	store := newTestStore(nil)
	return store.NewStoredFeedback(id, models.AnalysisSourceRemote, models.Feedback{
		Message:    "the brake pad warranty was honoured",
		Score:      0.91,
		KeyPhrases: []string{"brake pad", "warranty"},
	})
}

func TestNewStoredFeedback_Timestamps(t *testing.T) {
	fb := sampleFeedback("fb-1")

	assert.Equal(t, "fb-1", fb.FeedbackID)
	assert.Equal(t, models.AnalysisSourceRemote, fb.Source)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), fb.CreatedAt)
	assert.Equal(t, time.Hour, fb.ExpiresAt.Sub(fb.CreatedAt))
}

func TestPutAndGetFeedback(t *testing.T) {
	fake := newFakeDynamoDB()
	store := newTestStore(fake)
	ctx := context.Background()

	want := sampleFeedback("fb-1")
	require.NoError(t, store.PutFeedback(ctx, want))

	item := fake.items["fb-1"]
	require.NotNil(t, item)
	assert.Contains(t, item, "message")
	assert.Contains(t, item, "key_phrases")
	assert.Contains(t, item, "expires_at")

	got, found, err := store.GetFeedback(ctx, "fb-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.Feedback, got.Feedback)
	assert.Equal(t, want.Source, got.Source)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestGetFeedback_Missing(t *testing.T) {
	store := newTestStore(newFakeDynamoDB())

	_, found, err := store.GetFeedback(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutFeedback_PropagatesError(t *testing.T) {
	fake := newFakeDynamoDB()
	fake.putErr = errors.New("throttled")
	store := newTestStore(fake)

	err := store.PutFeedback(context.Background(), sampleFeedback("fb-1"))
	assert.ErrorContains(t, err, "throttled")
}

func TestBatchPutFeedback_ChunksBy25(t *testing.T) {
	fake := newFakeDynamoDB()
	store := newTestStore(fake)

	records := make([]models.StoredFeedback, 0, 60)
	for i := 0; i < 60; i++ {
		records = append(records, sampleFeedback(fmt.Sprintf("fb-%d", i)))
	}

	require.NoError(t, store.BatchPutFeedback(context.Background(), records))
	assert.Equal(t, []int{25, 25, 10}, fake.batchSizes)
	assert.Len(t, fake.items, 60)
}

func TestBatchPutFeedback_RetriesUnprocessed(t *testing.T) {
	fake := newFakeDynamoDB()
	fake.unprocessed = 2
	store := newTestStore(fake)

	records := []models.StoredFeedback{sampleFeedback("a"), sampleFeedback("b")}
	require.NoError(t, store.BatchPutFeedback(context.Background(), records))

	assert.Equal(t, 3, fake.batchCalls)
	assert.Len(t, fake.items, 2)
}

func TestBatchPutFeedback_GivesUpAfterRetries(t *testing.T) {
	fake := newFakeDynamoDB()
	fake.unprocessed = 100
	store := newTestStore(fake)

	err := store.BatchPutFeedback(context.Background(), []models.StoredFeedback{sampleFeedback("a")})
	assert.ErrorContains(t, err, "unprocessed")
	assert.Equal(t, 1+maxBatchRetries, fake.batchCalls)
}

func TestBatchPutFeedback_CancelledContext(t *testing.T) {
	store := newTestStore(newFakeDynamoDB())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.BatchPutFeedback(ctx, []models.StoredFeedback{sampleFeedback("a")})
	assert.ErrorIs(t, err, context.Canceled)
}
