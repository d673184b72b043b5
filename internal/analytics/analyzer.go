package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
)

// TextAnalyzer scores the sentiment of a piece of text and extracts its key
// phrases. Implementations must be safe for concurrent use.
type TextAnalyzer interface {
	GetSentiment(ctx context.Context, text string) (models.SentimentResult, error)
	GetKeyPhrases(ctx context.Context, text string) (models.KeyPhraseResult, error)
}

// BuildFeedback runs both analyses of message concurrently and combines them.
// If either fails no Feedback is returned.
func BuildFeedback(ctx context.Context, analyzer TextAnalyzer, message string) (models.Feedback, error) {
	start := time.Now()

	var (
		wg           sync.WaitGroup
		sentiment    models.SentimentResult
		keyPhrases   models.KeyPhraseResult
		sentimentErr error
		phrasesErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sentiment, sentimentErr = analyzer.GetSentiment(ctx, message)
	}()
	go func() {
		defer wg.Done()
		keyPhrases, phrasesErr = analyzer.GetKeyPhrases(ctx, message)
	}()
	wg.Wait()

	if sentimentErr != nil {
		return models.Feedback{}, fmt.Errorf("sentiment: %w", sentimentErr)
	}
	if phrasesErr != nil {
		return models.Feedback{}, fmt.Errorf("key phrases: %w", phrasesErr)
	}

	slog.Debug("[Analytics] Feedback analyzed",
		slog.Float64("score", sentiment.Score),
		slog.Int("key_phrases", len(keyPhrases.KeyPhrases)),
		slog.Duration("elapsed", time.Since(start)))

	return models.NewFeedback(message, sentiment, keyPhrases), nil
}
