package models

// Wire shapes of the DataMarket text analytics responses. The provider also
// sends an odata.metadata field which is ignored.

type SentimentResult struct {
	Score float64 `json:"Score"`
}

type KeyPhraseResult struct {
	KeyPhrases []string `json:"KeyPhrases"`
}
