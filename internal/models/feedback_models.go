package models

import "time"

// Feedback is one customer comment together with its analysis.
type Feedback struct {
	Message    string   `json:"message" dynamodbav:"message"`
	Score      float64  `json:"score" dynamodbav:"score"`
	KeyPhrases []string `json:"key_phrases" dynamodbav:"key_phrases"`
}

func NewFeedback(message string, sentiment SentimentResult, keyPhrases KeyPhraseResult) Feedback {
	return Feedback{
		Message:    message,
		Score:      sentiment.Score,
		KeyPhrases: keyPhrases.KeyPhrases,
	}
}

const (
	AnalysisSourceRemote = "remote"
	AnalysisSourceLocal  = "local"
	AnalysisSourceNone   = "none"
)

// FeedbackSubmission is what the storefront publishes when a customer leaves
// feedback.
type FeedbackSubmission struct {
	FeedbackID  string    `json:"feedback_id"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type StoredFeedback struct {
	FeedbackID string `json:"feedback_id" dynamodbav:"feedback_id"`
	Feedback
	Source    string    `json:"source" dynamodbav:"source"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at,unixtime"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at,unixtime"`
}
