package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/config"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
)

const (
	TEXT_ANALYTICS_PATH    = "data.ashx/amla/text-analytics/v1/"
	OP_GET_SENTIMENT       = "GetSentiment"
	OP_GET_KEY_PHRASES     = "GetKeyPhrases"
	maxErrorBody           = 512
	accountKeyAuthUser     = "AccountKey"
	textAnalyticsTextParam = "Text"
)

// TextAnalyticsClient talks to the DataMarket text analytics API. It is safe
// for concurrent use.
type TextAnalyticsClient struct {
	Client     *http.Client
	baseURL    string
	accountKey string
}

func NewTextAnalyticsClient(cfg config.TextAnalyticsConfig) (*TextAnalyticsClient, error) {
	if strings.TrimSpace(cfg.AccountKey) == "" {
		return nil, fmt.Errorf("%w: text analytics account key is required", ErrInvalidArgument)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultTextAnalyticsBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: bad base url %q: %v", ErrInvalidArgument, baseURL, err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTextAnalyticsTimeout
	}

	slog.Info("[TextAnalyticsClient] Initializing Client",
		slog.String("base_url", baseURL),
		slog.Duration("timeout", timeout))

	return &TextAnalyticsClient{
		Client:     &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		accountKey: cfg.AccountKey,
	}, nil
}

func (c *TextAnalyticsClient) GetSentiment(ctx context.Context, text string) (models.SentimentResult, error) {
	var result models.SentimentResult
	if err := c.getJSON(ctx, OP_GET_SENTIMENT, text, &result); err != nil {
		return models.SentimentResult{}, err
	}
	return result, nil
}

func (c *TextAnalyticsClient) GetKeyPhrases(ctx context.Context, text string) (models.KeyPhraseResult, error) {
	var result models.KeyPhraseResult
	if err := c.getJSON(ctx, OP_GET_KEY_PHRASES, text, &result); err != nil {
		return models.KeyPhraseResult{}, err
	}
	return result, nil
}

func (c *TextAnalyticsClient) requestURL(operation, text string) string {
	query := url.Values{}
	query.Set(textAnalyticsTextParam, text)
	return c.baseURL + TEXT_ANALYTICS_PATH + operation + "?" + query.Encode()
}

// getJSON issues a single GET for operation and decodes the body into output.
// There is no retry; callers decide whether to try again.
func (c *TextAnalyticsClient) getJSON(ctx context.Context, operation, text string, output interface{}) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(operation, text), nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.SetBasicAuth(accountKeyAuthUser, c.accountKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := c.Client.Do(req)
	if err != nil {
		slog.Error("[TextAnalyticsClient] Request failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %w", ErrNetwork, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Error("[TextAnalyticsClient] Non-success status",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return &RemoteServiceError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(preview)),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s response: %w", ErrNetwork, operation, err)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[TextAnalyticsClient] Failed to unmarshal response",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("%w: %s: %w", ErrSerialization, operation, err)
	}

	slog.Debug("[TextAnalyticsClient] Request successful",
		slog.String("operation", operation),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}
