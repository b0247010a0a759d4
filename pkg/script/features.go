package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/exp/slices"
)

// Features is what a script offers, found by running its chunk once
type Features struct {
	Functions        []string `json:"functions"`
	UsedInformations []string `json:"used_informations"`
}

func (f *Features) Has(function string) bool {
	return slices.Contains(f.Functions, function)
}

func (f *Features) Informations() []timetable.Information {
	var informations []timetable.Information
	for _, name := range f.UsedInformations {
		if info := timetable.ParseInformation(name); info != timetable.Nothing {
			informations = append(informations, info)
		}
	}
	return informations
}

// Inspect compiles and runs the script chunk and reports which entry points it defines. A
// script that does not compile or fails while running its chunk is an error.
func Inspect(ctx context.Context, providerID string, path string) (*Features, error) {
	proto, err := compileFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptHasErrors, err)
	}

	collector := &collector{now: time.Now()}
	state := newState(providerID, collector)
	defer state.Close()
	state.SetContext(ctx)

	state.Push(state.NewFunctionFromProto(proto))
	if err := state.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptHasErrors, err)
	}

	features := &Features{}
	for _, function := range entryPoints {
		if state.GetGlobal(function).Type() == lua.LTFunction {
			features.Functions = append(features.Functions, function)
		}
	}

	if features.Has(FunctionUsedInformations) {
		err := state.CallByParam(lua.P{Fn: state.GetGlobal(FunctionUsedInformations), NRet: 1, Protect: true})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScriptHasErrors, err)
		}

		if table, ok := state.Get(-1).(*lua.LTable); ok {
			table.ForEach(func(_ lua.LValue, value lua.LValue) {
				features.UsedInformations = append(features.UsedInformations, lua.LVAsString(value))
			})
		}
		state.Pop(1)
	}

	return features, nil
}

type localFeatures struct {
	modTime  time.Time
	features *Features
}

// FeatureCache remembers script features per provider and script modification time. With a
// redis client the features are shared between processes.
type FeatureCache struct {
	Cache *cache.Cache[string]

	mutex sync.RWMutex
	local map[string]localFeatures
}

func NewFeatureCache(redisClient *redis.Client) *FeatureCache {
	featureCache := &FeatureCache{local: map[string]localFeatures{}}

	if redisClient != nil {
		redisStore := redisstore.NewRedis(redisClient, store.WithExpiration(7*24*time.Hour))
		featureCache.Cache = cache.New[string](redisStore)
	}

	return featureCache
}

func featureKey(providerID string, modTime time.Time) string {
	return fmt.Sprintf("script-features:%s:%d", providerID, modTime.UnixNano())
}

// Get returns the features of the script at path, inspecting it when the cache has nothing for
// its current modification time
func (c *FeatureCache) Get(ctx context.Context, providerID string, path string) (*Features, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptHasErrors, err)
	}
	modTime := stat.ModTime()

	if features, found := c.lookup(ctx, providerID, modTime); found {
		return features, nil
	}

	features, err := Inspect(ctx, providerID, path)
	if err != nil {
		return nil, err
	}

	c.store(ctx, providerID, modTime, features)
	return features, nil
}

func (c *FeatureCache) lookup(ctx context.Context, providerID string, modTime time.Time) (*Features, bool) {
	if c.Cache != nil {
		value, err := c.Cache.Get(ctx, featureKey(providerID, modTime))
		if err != nil {
			return nil, false
		}

		var features *Features
		if err := json.Unmarshal([]byte(value), &features); err != nil || features == nil {
			return nil, false
		}
		return features, true
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	cached, exists := c.local[providerID]
	if !exists || !cached.modTime.Equal(modTime) {
		return nil, false
	}
	return cached.features, true
}

func (c *FeatureCache) store(ctx context.Context, providerID string, modTime time.Time, features *Features) {
	if c.Cache != nil {
		featuresJSON, _ := json.Marshal(features)
		if err := c.Cache.Set(ctx, featureKey(providerID, modTime), string(featuresJSON)); err != nil {
			log.Warn().Err(err).Str("provider", providerID).Msg("Failed to cache script features")
		}
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.local[providerID] = localFeatures{modTime: modTime, features: features}
}

// Register prepares the Host of a script provider. Failing to inspect the script is fatal for
// the provider.
func Register(ctx context.Context, featureCache *FeatureCache, providerID string, path string) (*Script, error) {
	features, err := featureCache.Get(ctx, providerID, path)
	if err != nil {
		return nil, err
	}

	return New(providerID, path, features), nil
}
