package setup

import (
	"log/slog"

	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/config"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/analytics"
	"github.com/Microsoft-Build-2016/CodeLabs-Data-sub001/internal/clients"
)

// RemoteAnalyzer builds the text analytics client, fronted by the Valkey cache
// when one is configured. The returned close func is never nil.
func RemoteAnalyzer(taCfg config.TextAnalyticsConfig, vkCfg config.ValkeyConfig) (analytics.TextAnalyzer, func(), error) {
	client, err := clients.NewTextAnalyticsClient(taCfg)
	if err != nil {
		return nil, func() {}, err
	}

	if !vkCfg.Enabled() {
		slog.Info("[Setup] No Valkey address configured, analytics results will not be cached")
		return client, func() {}, nil
	}

	cache, err := clients.NewValkeyClient(vkCfg)
	if err != nil {
		slog.Warn("[Setup] Valkey unavailable, continuing without cache",
			slog.String("error", err.Error()))
		return client, func() {}, nil
	}

	return analytics.NewCachedAnalyzer(client, cache, vkCfg.CacheTTL), cache.Close, nil
}
