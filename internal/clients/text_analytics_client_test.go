package clients

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/config"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *TextAnalyticsClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewTextAnalyticsClient(config.TextAnalyticsConfig{
		AccountKey: "test-key",
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNewTextAnalyticsClient_RejectsBlankKey(t *testing.T) {
	for _, key := range []string{"", " ", "\t\n"} {
		client, err := NewTextAnalyticsClient(config.TextAnalyticsConfig{AccountKey: key})
		assert.Nil(t, client)
		assert.ErrorIs(t, err, ErrInvalidArgument, "key %q", key)
	}
}

func TestNewTextAnalyticsClient_AcceptsAnyNonBlankKey(t *testing.T) {
	for _, key := range []string{"k", "abc123", " padded "} {
		client, err := NewTextAnalyticsClient(config.TextAnalyticsConfig{AccountKey: key})
		require.NoError(t, err)
		assert.Equal(t, config.DefaultTextAnalyticsBaseURL, client.baseURL)
		assert.Equal(t, config.DefaultTextAnalyticsTimeout, client.Client.Timeout)
	}
}

func TestGetSentiment_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/"+TEXT_ANALYTICS_PATH+OP_GET_SENTIMENT, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("AccountKey:test-key"))
		assert.Equal(t, want, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Score":0.87}`))
	})

	result, err := client.GetSentiment(context.Background(), "love these brakes")
	require.NoError(t, err)
	assert.Equal(t, 0.87, result.Score)
}

func TestGetKeyPhrases_PreservesOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+TEXT_ANALYTICS_PATH+OP_GET_KEY_PHRASES, r.URL.Path)
		_, _ = w.Write([]byte(`{"KeyPhrases":["brake pad","warranty"]}`))
	})

	result, err := client.GetKeyPhrases(context.Background(), "the brake pad warranty")
	require.NoError(t, err)
	assert.Equal(t, []string{"brake pad", "warranty"}, result.KeyPhrases)
}

func TestOperations_ServerErrorIsRemoteServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInternalServerError)
	})
	ctx := context.Background()

	sentiment, err := client.GetSentiment(ctx, "text")
	assert.ErrorIs(t, err, ErrRemoteService)
	assert.Equal(t, models.SentimentResult{}, sentiment)

	var remoteErr *RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
	assert.Equal(t, OP_GET_SENTIMENT, remoteErr.Operation)
	assert.Equal(t, "quota exceeded", remoteErr.Body)

	phrases, err := client.GetKeyPhrases(ctx, "text")
	assert.ErrorIs(t, err, ErrRemoteService)
	assert.Nil(t, phrases.KeyPhrases)
}

func TestOperations_RemoteErrorBodyIsBounded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 4*maxErrorBody)))
	})

	_, err := client.GetSentiment(context.Background(), "text")
	var remoteErr *RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Len(t, remoteErr.Body, maxErrorBody)
}

func TestOperations_MalformedJSONIsSerializationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Score": not-a-number`))
	})
	ctx := context.Background()

	_, err := client.GetSentiment(ctx, "text")
	assert.ErrorIs(t, err, ErrSerialization)
	assert.NotErrorIs(t, err, ErrRemoteService)

	_, err = client.GetKeyPhrases(ctx, "text")
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestOperations_WrongShapeIsSerializationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"KeyPhrases":"brake pad"}`))
	})

	_, err := client.GetKeyPhrases(context.Background(), "text")
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestOperations_ConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := NewTextAnalyticsClient(config.TextAnalyticsConfig{AccountKey: "k", BaseURL: baseURL})
	require.NoError(t, err)

	_, err = client.GetSentiment(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestOperations_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Score":0.5}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSentiment(ctx, "text")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOperations_TextIsEncodedOnce(t *testing.T) {
	inputs := []string{
		"brake pads & rotors = 100% great",
		"what?#fragment/path+plus",
		"naïve café, ünïcode",
		"  leading and trailing spaces  ",
	}

	var mu sync.Mutex
	var received []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		received = append(received, r.URL.Query().Get(textAnalyticsTextParam))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"Score":0.5}`))
	})

	for _, in := range inputs {
		_, err := client.GetSentiment(context.Background(), in)
		require.NoError(t, err)
	}
	assert.Equal(t, inputs, received)
}

func TestRemoteServiceError_Message(t *testing.T) {
	err := &RemoteServiceError{Operation: OP_GET_KEY_PHRASES, StatusCode: 503}
	assert.Equal(t, "remote service error: GetKeyPhrases returned status 503", err.Error())
}
