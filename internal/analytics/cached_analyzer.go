package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
)

const cacheKeyPrefix = "text-analytics:"

// Cache is satisfied by clients.ValkeyClient.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedAnalyzer serves repeated texts from cache. Cache errors are logged and
// otherwise ignored.
type CachedAnalyzer struct {
	next  TextAnalyzer
	cache Cache
	ttl   time.Duration
}

func NewCachedAnalyzer(next TextAnalyzer, cache Cache, ttl time.Duration) *CachedAnalyzer {
	return &CachedAnalyzer{next: next, cache: cache, ttl: ttl}
}

func (c *CachedAnalyzer) GetSentiment(ctx context.Context, text string) (models.SentimentResult, error) {
	var result models.SentimentResult
	key := cacheKey("sentiment", text)
	if c.lookup(ctx, key, &result) {
		return result, nil
	}

	result, err := c.next.GetSentiment(ctx, text)
	if err != nil {
		return result, err
	}
	c.store(ctx, key, result)
	return result, nil
}

func (c *CachedAnalyzer) GetKeyPhrases(ctx context.Context, text string) (models.KeyPhraseResult, error) {
	var result models.KeyPhraseResult
	key := cacheKey("keyphrases", text)
	if c.lookup(ctx, key, &result) {
		return result, nil
	}

	result, err := c.next.GetKeyPhrases(ctx, text)
	if err != nil {
		return result, err
	}
	c.store(ctx, key, result)
	return result, nil
}

func (c *CachedAnalyzer) lookup(ctx context.Context, key string, output interface{}) bool {
	raw, found, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("[CachedAnalyzer] Cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), output); err != nil {
		slog.Warn("[CachedAnalyzer] Discarding unreadable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func (c *CachedAnalyzer) store(ctx context.Context, key string, value interface{}) {
	body, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(body), c.ttl); err != nil {
		slog.Warn("[CachedAnalyzer] Cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func cacheKey(operation, text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + operation + ":" + hex.EncodeToString(sum[:])
}
