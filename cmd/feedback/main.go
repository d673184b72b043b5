package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/config"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/analytics"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/clients"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/clients/kafka_client"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/db"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/logging"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/sentiment"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/setup"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	storeResult bool
	useFallback bool
)

var rootCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Analyze PartsUnlimited customer feedback",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnv(config.AppEnv())
		logging.InitLogger()
	},
	SilenceUsage: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text...>",
	Short: "Score the sentiment and extract the key phrases of a piece of feedback",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), strings.Join(args, " "))
	},
}

var getCmd = &cobra.Command{
	Use:   "get <feedback-id>",
	Short: "Print a stored feedback record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd.Context(), args[0])
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <text...>",
	Short: "Publish feedback to the analysis pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(strings.Join(args, " "))
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&storeResult, "store", false, "also write the result to DynamoDB")
	analyzeCmd.Flags().BoolVar(&useFallback, "fallback", false, "score locally when the remote service fails")

	rootCmd.AddCommand(analyzeCmd, getCmd, submitCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(ctx context.Context, text string) error {
	analyzer, closeAnalyzer, err := setup.RemoteAnalyzer(config.GetTextAnalyticsConfig(), config.GetValkeyConfig())
	if err != nil {
		return err
	}
	defer closeAnalyzer()

	var fallback analytics.TextAnalyzer
	if useFallback {
		fallback = sentiment.NewLocalAnalyzer()
	}

	feedback, source, err := analytics.AnalyzeWithFallback(ctx, analyzer, fallback, text)
	if err != nil {
		var remoteErr *clients.RemoteServiceError
		if errors.As(err, &remoteErr) {
			slog.Error("[Feedback] Text analytics rejected the request",
				slog.Int("status", remoteErr.StatusCode),
				slog.String("body", remoteErr.Body))
		}
		return err
	}

	if !storeResult {
		return printJSON(feedback)
	}

	store, err := newStore(ctx)
	if err != nil {
		return err
	}
	record := store.NewStoredFeedback(uuid.NewString(), source, feedback)
	if err := store.PutFeedback(ctx, record); err != nil {
		return err
	}
	return printJSON(record)
}

func runGet(ctx context.Context, id string) error {
	store, err := newStore(ctx)
	if err != nil {
		return err
	}

	record, found, err := store.GetFeedback(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("feedback %s not found", id)
	}
	return printJSON(record)
}

func runSubmit(text string) error {
	producer, err := kafka_client.NewProducer(config.GetKafkaConfig())
	if err != nil {
		return err
	}
	defer producer.Close()

	submission := models.FeedbackSubmission{
		FeedbackID:  uuid.NewString(),
		Message:     text,
		SubmittedAt: time.Now().UTC(),
	}
	if err := producer.PublishJSON(kafka_client.KAFKA_TOPIC_FEEDBACK_SUBMITTED, submission.FeedbackID, submission); err != nil {
		return err
	}
	return printJSON(submission)
}

func newStore(ctx context.Context) (*db.FeedbackStore, error) {
	dbCfg := config.GetDynamoDBConfig()
	client, err := clients.GetDynamoDBClient(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	return db.NewFeedbackStore(client, dbCfg.TableName, dbCfg.TTL), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
