package engine

import (
	"context"

	"github.com/publictransport/timetables/pkg/accessor"
	"github.com/publictransport/timetables/pkg/config"
	"github.com/publictransport/timetables/pkg/filter"
	"github.com/publictransport/timetables/pkg/metrics"
	"github.com/publictransport/timetables/pkg/redis_client"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Setup builds an engine from the configuration and loads all providers. Without a redis
// address the caches stay in memory.
func Setup(ctx context.Context, cfg *config.Config, collector *metrics.Collector) (*Engine, error) {
	var redisClient *redis.Client
	if cfg.UseRedis() {
		if redis_client.Client == nil {
			if err := redis_client.Connect(cfg); err != nil {
				return nil, err
			}
		}
		redisClient = redis_client.Client
	} else {
		log.Warn().Msg("No redis configured, caching in memory")
	}

	filters, err := filter.LoadSettingsFile(cfg.FiltersFile)
	if err != nil {
		return nil, err
	}

	timetableEngine := New(Options{
		MaxDepartures: cfg.MaxDepartures,
		Downloader:    accessor.NewHTTPDownloader(cfg.HTTPTimeout),
		RedisClient:   redisClient,
		Metrics:       collector,
		Filters:       filters,
	})

	if err := timetableEngine.LoadProviders(ctx, cfg.ProvidersDir); err != nil {
		return nil, err
	}

	return timetableEngine, nil
}
