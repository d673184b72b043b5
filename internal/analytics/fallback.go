package analytics

import (
	"context"
	"log/slog"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/models"
)

// AnalyzeWithFallback builds feedback with primary and, if that fails and a
// fallback is configured, with fallback. The returned source names the
// analyzer that produced the result.
func AnalyzeWithFallback(ctx context.Context, primary, fallback TextAnalyzer, message string) (models.Feedback, string, error) {
	feedback, err := BuildFeedback(ctx, primary, message)
	if err == nil {
		return feedback, models.AnalysisSourceRemote, nil
	}
	if fallback == nil || ctx.Err() != nil {
		return models.Feedback{}, "", err
	}

	slog.Warn("[Analytics] Remote analysis failed, using local analyzer",
		slog.String("error", err.Error()))

	feedback, localErr := BuildFeedback(ctx, fallback, message)
	if localErr != nil {
		return models.Feedback{}, "", localErr
	}
	return feedback, models.AnalysisSourceLocal, nil
}
