package kafka_client

import "time"

const (
	KAFKA_TOPIC_FEEDBACK_SUBMITTED = "feedback-submitted" // raw customer feedback from the storefront
	KAFKA_TOPIC_FEEDBACK_ANALYZED  = "feedback-analyzed"  // feedback with sentiment and key phrases
)

const (
	BATCH_SIZE    = 25
	BATCH_TIMEOUT = 5 * time.Second
	MAX_RETRIES   = 5
	RETRY_DELAY   = 2 * time.Second
	READ_TIMEOUT  = time.Second
)
