package config

import "time"

const (
	DefaultTextAnalyticsBaseURL = "https://api.datamarket.azure.com/"
	DefaultTextAnalyticsTimeout = 30 * time.Second
	DefaultCacheTTL             = 24 * time.Hour
	DefaultFeedbackTTL          = 30 * 24 * time.Hour
)

// TextAnalyticsConfig is everything the text analytics client needs. It is
// captured once at construction and never mutated afterwards.
type TextAnalyticsConfig struct {
	AccountKey string
	BaseURL    string
	Timeout    time.Duration
}

type ValkeyConfig struct {
	Address  string
	Password string
	UseTLS   bool
	CacheTTL time.Duration
}

// Enabled reports whether a cache address was configured.
func (c ValkeyConfig) Enabled() bool {
	return c.Address != ""
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
	TTL       time.Duration
}

type KafkaConfig struct {
	Broker  string
	GroupID string
}

func GetTextAnalyticsConfig() TextAnalyticsConfig {
	return TextAnalyticsConfig{
		AccountKey: getEnv("TEXT_ANALYTICS_ACCOUNT_KEY", ""),
		BaseURL:    getEnv("TEXT_ANALYTICS_BASE_URL", DefaultTextAnalyticsBaseURL),
		Timeout:    getDurationEnv("TEXT_ANALYTICS_TIMEOUT", DefaultTextAnalyticsTimeout),
	}
}

func GetValkeyConfig() ValkeyConfig {
	return ValkeyConfig{
		Address:  getEnv("VALKEY_INIT_ADDRESS", ""),
		Password: getEnv("VALKEY_PASSWORD", ""),
		UseTLS:   getEnv("VALKEY_TLS", "false") == "true",
		CacheTTL: getDurationEnv("ANALYTICS_CACHE_TTL", DefaultCacheTTL),
	}
}

func GetDynamoDBConfig() DynamoDBConfig {
	return DynamoDBConfig{
		Endpoint:  getEnv("AWS_ENDPOINT", "http://localhost:8000"),
		Region:    getEnv("AWS_REGION", "us-west-2"),
		TableName: getEnv("FEEDBACK_TABLE_NAME", "Feedback"),
		TTL:       getDurationEnv("FEEDBACK_TTL", DefaultFeedbackTTL),
	}
}

func GetKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Broker:  getEnv("KAFKA_BROKER", "localhost:29092"),
		GroupID: getEnv("KAFKA_CONSUMER_GROUP_ID", "feedback-analytics-group"),
	}
}
