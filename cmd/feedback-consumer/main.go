package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/config"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/clients"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/clients/kafka_client"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/consumers"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/db"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/logging"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/sentiment"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/setup"
)

func main() {
	config.LoadEnv(config.AppEnv())
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, closeAnalyzer, err := setup.RemoteAnalyzer(config.GetTextAnalyticsConfig(), config.GetValkeyConfig())
	if err != nil {
		slog.Error("[Main] Failed to create text analytics client",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeAnalyzer()

	dbCfg := config.GetDynamoDBConfig()
	dynamoClient, err := clients.GetDynamoDBClient(ctx, dbCfg)
	if err != nil {
		slog.Error("[Main] Failed to create DynamoDB client",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	store := db.NewFeedbackStore(dynamoClient, dbCfg.TableName, dbCfg.TTL)

	kafkaCfg := config.GetKafkaConfig()
	var producer *kafka_client.Producer
	for {
		producer, err = kafka_client.NewProducer(kafkaCfg)
		if err == nil {
			break
		}
		slog.Warn("[Main] Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	defer producer.Close()

	consumer, err := kafka_client.NewConsumer(kafkaCfg, []string{kafka_client.KAFKA_TOPIC_FEEDBACK_SUBMITTED})
	if err != nil {
		slog.Error("[Main] Failed to start consumer",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	feedbackConsumer := consumers.NewFeedbackConsumer(
		analyzer,
		sentiment.NewLocalAnalyzer(),
		store,
		producer,
		kafka_client.NewCommitHandler(consumer),
	)

	slog.Info("[Main] Feedback consumer running",
		slog.String("topic", kafka_client.KAFKA_TOPIC_FEEDBACK_SUBMITTED))
	feedbackConsumer.Run(ctx, kafka_client.NewKafkaMessageIterator(ctx, consumer))
	slog.Info("[Main] Feedback consumer stopped")
}
