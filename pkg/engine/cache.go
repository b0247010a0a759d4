package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type localResult struct {
	expires time.Time
	source  *Source
}

// ResultCache keeps answered sources until the provider's minimum fetch wait has passed. With a
// redis client the results are shared between processes, otherwise they are kept in memory.
type ResultCache struct {
	Cache *cache.Cache[string]

	// Now is the clock for local expiry
	Now func() time.Time

	mutex sync.Mutex
	local map[string]localResult
}

func NewResultCache(redisClient *redis.Client) *ResultCache {
	resultCache := &ResultCache{Now: time.Now, local: map[string]localResult{}}

	if redisClient != nil {
		resultCache.Cache = cache.New[string](redisstore.NewRedis(redisClient))
	}

	return resultCache
}

func resultKey(sourceName string) string {
	return "timetable-source:" + sourceName
}

func (c *ResultCache) Get(ctx context.Context, sourceName string) (*Source, bool) {
	if c.Cache != nil {
		value, err := c.Cache.Get(ctx, resultKey(sourceName))
		if err != nil {
			return nil, false
		}

		var source *Source
		if err := json.Unmarshal([]byte(value), &source); err != nil || source == nil {
			log.Debug().Err(err).Str("source", sourceName).Msg("Ignoring undecodable cached result")
			return nil, false
		}
		return source, true
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached, exists := c.local[sourceName]
	if !exists {
		return nil, false
	}
	if !c.Now().Before(cached.expires) {
		delete(c.local, sourceName)
		return nil, false
	}
	return cached.source, true
}

// Set stores a result for ttl. Nothing is stored for a ttl of zero.
func (c *ResultCache) Set(ctx context.Context, sourceName string, source *Source, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	if c.Cache != nil {
		sourceJSON, err := json.Marshal(source)
		if err != nil {
			log.Warn().Err(err).Str("source", sourceName).Msg("Failed to encode result for cache")
			return
		}

		if err := c.Cache.Set(ctx, resultKey(sourceName), string(sourceJSON), store.WithExpiration(ttl)); err != nil {
			log.Warn().Err(err).Str("source", sourceName).Msg("Failed to cache result")
		}
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.local[sourceName] = localResult{expires: c.Now().Add(ttl), source: source}
}

// Invalidate forgets a cached result so the next query downloads again
func (c *ResultCache) Invalidate(ctx context.Context, sourceName string) {
	if c.Cache != nil {
		if err := c.Cache.Delete(ctx, resultKey(sourceName)); err != nil {
			log.Debug().Err(err).Str("source", sourceName).Msg("Failed to delete cached result")
		}
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.local, sourceName)
}
