package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/publictransport/timetables/pkg/accessor"
	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/colorgroups"
	"github.com/publictransport/timetables/pkg/filter"
	"github.com/publictransport/timetables/pkg/metrics"
	"github.com/publictransport/timetables/pkg/script"
	"github.com/publictransport/timetables/pkg/sourcename"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrUnknownSource   = errors.New("source has not been requested")
)

// DefaultMaxDepartures caps the departures held per source
const DefaultMaxDepartures = 200

const loadConcurrency = 8

type Options struct {
	MaxDepartures int
	Downloader    accessor.Downloader
	RedisClient   *redis.Client
	Metrics       *metrics.Collector
	Filters       filter.SettingsList
}

type waiter chan *Source

// Engine answers source names with the accessors of all loaded providers and holds the
// resulting lists
type Engine struct {
	options      Options
	metrics      *metrics.Collector
	featureCache *script.FeatureCache
	cache        *ResultCache

	// Now is the clock for merging and filtering, tests replace it
	Now func() time.Time

	providerMutex sync.RWMutex
	accessors     map[string]*accessor.Accessor

	mutex      sync.Mutex
	filters    filter.SettingsList
	sources    map[string]*Source
	waiters    map[string][]waiter
	runContext context.Context
}

func New(options Options) *Engine {
	if options.MaxDepartures <= 0 {
		options.MaxDepartures = DefaultMaxDepartures
	}
	if options.Metrics == nil {
		options.Metrics = metrics.NewCollector()
	}

	return &Engine{
		options:      options,
		metrics:      options.Metrics,
		featureCache: script.NewFeatureCache(options.RedisClient),
		cache:        NewResultCache(options.RedisClient),
		Now:          time.Now,
		accessors:    map[string]*accessor.Accessor{},
		filters:      options.Filters,
		sources:      map[string]*Source{},
		waiters:      map[string][]waiter{},
		runContext:   context.Background(),
	}
}

// LoadProviders creates the accessors for every provider definition in dir. The accessors run
// until ctx is done. Providers that cannot be used are logged and left out.
func (e *Engine) LoadProviders(ctx context.Context, dir string) error {
	infos, err := accessorinfo.LoadDirectory(dir)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	e.runContext = ctx
	e.mutex.Unlock()

	loadPool := pool.New().WithMaxGoroutines(loadConcurrency)
	for _, info := range infos {
		loadPool.Go(func() {
			if err := e.AddProvider(ctx, info); err != nil {
				log.Error().Err(err).Str("provider", info.ID).Msg("Failed to load provider")
			}
		})
	}
	loadPool.Wait()

	log.Info().Int("providers", len(e.Providers())).Int("definitions", len(infos)).Msg("Loaded providers")
	return nil
}

// AddProvider creates the accessor of one provider definition and starts it
func (e *Engine) AddProvider(ctx context.Context, info *accessorinfo.AccessorInfo) error {
	providerAccessor, err := accessor.New(ctx, info, accessor.Options{
		Downloader:   e.options.Downloader,
		Receiver:     e,
		Metrics:      e.metrics,
		FeatureCache: e.featureCache,
	})
	if err != nil {
		return err
	}

	providerAccessor.Now = func() time.Time { return e.Now() }

	e.providerMutex.Lock()
	e.accessors[info.ID] = providerAccessor
	loaded := len(e.accessors)
	e.providerMutex.Unlock()

	e.metrics.ProvidersLoaded.Set(float64(loaded))

	go providerAccessor.Run(ctx)
	return nil
}

// Providers lists the loaded provider definitions ordered by ID
func (e *Engine) Providers() []*accessorinfo.AccessorInfo {
	e.providerMutex.RLock()
	defer e.providerMutex.RUnlock()

	infos := make([]*accessorinfo.AccessorInfo, 0, len(e.accessors))
	for _, providerAccessor := range e.accessors {
		infos = append(infos, providerAccessor.Info)
	}
	slices.SortFunc(infos, func(a, b *accessorinfo.AccessorInfo) int {
		return strings.Compare(a.ID, b.ID)
	})

	return infos
}

func (e *Engine) Provider(id string) (*accessorinfo.AccessorInfo, bool) {
	providerAccessor, exists := e.accessor(id)
	if !exists {
		return nil, false
	}
	return providerAccessor.Info, true
}

func (e *Engine) accessor(id string) (*accessor.Accessor, bool) {
	e.providerMutex.RLock()
	defer e.providerMutex.RUnlock()

	providerAccessor, exists := e.accessors[id]
	return providerAccessor, exists
}

// SetFilters replaces the filter settings used for new updates
func (e *Engine) SetFilters(settings filter.SettingsList) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.filters = settings
}

// Query answers a source name. A result younger than the provider's minimum fetch wait is
// served from the cache, otherwise the provider is asked and Query waits for its answer.
// stopIndex selects the filter settings applied to the returned copy.
func (e *Engine) Query(ctx context.Context, source string, stopIndex int) (*Source, error) {
	name, err := sourcename.Parse(source)
	if err != nil {
		return nil, err
	}

	providerAccessor, exists := e.accessor(name.Provider)
	if !exists {
		return nil, fmt.Errorf("%w %q", ErrUnknownProvider, name.Provider)
	}

	key := name.String()
	if cached, found := e.cache.Get(ctx, key); found {
		e.metrics.CacheHits.Inc()
		return e.filtered(cached, stopIndex), nil
	}
	e.metrics.CacheMisses.Inc()

	wait := make(waiter, 1)

	e.mutex.Lock()
	e.waiters[key] = append(e.waiters[key], wait)
	e.mutex.Unlock()

	if _, err := e.request(providerAccessor, name.ToRequest(e.Now())); err != nil {
		e.removeWaiter(key, wait)
		return nil, err
	}

	select {
	case result := <-wait:
		return e.filtered(result, stopIndex), nil
	case <-ctx.Done():
		e.removeWaiter(key, wait)
		return nil, ctx.Err()
	}
}

func (e *Engine) request(providerAccessor *accessor.Accessor, request accessor.Request) (accessor.JobHandle, error) {
	switch typed := request.(type) {
	case *accessor.DepartureRequest:
		return providerAccessor.RequestDepartures(typed)
	case *accessor.JourneyRequest:
		return providerAccessor.RequestJourneys(typed)
	case *accessor.StopSuggestionRequest:
		return providerAccessor.RequestStopSuggestions(typed)
	case *accessor.AdditionalDataRequest:
		return providerAccessor.RequestAdditionalData(typed)
	}

	return "", accessor.ErrNotSupported
}

func (e *Engine) removeWaiter(key string, wait waiter) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.waiters[key] = slices.DeleteFunc(e.waiters[key], func(w waiter) bool { return w == wait })
	if len(e.waiters[key]) == 0 {
		delete(e.waiters, key)
	}
}

// Source returns the data currently held for a source name without requesting anything,
// filtered for stopIndex
func (e *Engine) Source(source string, stopIndex int) (*Source, error) {
	name, err := sourcename.Parse(source)
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	held, exists := e.sources[name.String()]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	return e.view(held, stopIndex), nil
}

// view copies source and applies the filters of stopIndex to the copy. Runs with the engine
// mutex held.
func (e *Engine) view(source *Source, stopIndex int) *Source {
	copied := source.snapshot()
	copied.applyFilters(e.filters, stopIndex)
	return copied
}

func (e *Engine) filtered(source *Source, stopIndex int) *Source {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.view(source, stopIndex)
}

// Receive merges a result into its source and wakes the queries waiting for it. Results of
// additional journey round trips arrive here too and extend the list.
func (e *Engine) Receive(result *accessor.Result) {
	key := result.Request.Info().SourceName
	now := e.Now()

	e.mutex.Lock()
	source := e.update(key, result, now)
	snapshot := source.snapshot()
	waiting := e.waiters[key]
	delete(e.waiters, key)
	ctx := e.runContext
	e.mutex.Unlock()

	if !result.IsError() {
		ttl := time.Duration(0)
		if providerAccessor, exists := e.accessor(result.Provider); exists {
			ttl = providerAccessor.Info.MinFetchWait
		}
		e.cache.Set(ctx, key, snapshot, ttl)
	}

	for _, wait := range waiting {
		wait <- snapshot
	}
}

// update runs with the engine mutex held
func (e *Engine) update(key string, result *accessor.Result, now time.Time) *Source {
	source, exists := e.sources[key]
	if !exists {
		source = &Source{Name: key, Provider: result.Provider}
		if name, err := sourcename.Parse(key); err == nil {
			source.Type = name.Type
		}
		e.sources[key] = source
	}

	source.Updated = now
	source.Code = result.Code
	source.Error = result.ErrorString()
	if result.IsError() {
		return source
	}

	switch result.ParseMode {
	case timetable.ParseStopSuggestions:
		source.Stops = result.Stops
	case timetable.ParseJourneys:
		source.Journeys = mergeJourneys(source.Journeys, result.Journeys, e.options.MaxDepartures)
	default:
		if expired := e.filters.RemoveExpired(now); expired > 0 {
			log.Info().Int("filters", expired).Msg("Removed expired one-time filters")
		}

		source.Departures = mergeDepartures(source.Departures, result.Departures, e.options.MaxDepartures, now)
		source.refreshColorGroups()
	}

	return source
}

// ToggleColorGroup flips whether departures of a color group of the source are hidden. The
// next query of the source sees the change.
func (e *Engine) ToggleColorGroup(source string, hexColor string) error {
	name, err := sourcename.Parse(source)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	held, exists := e.sources[name.String()]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	for _, group := range held.ColorGroups {
		if strings.EqualFold(colorgroups.Hex(group.Color), hexColor) {
			held.ColorGroups.ToggleFilterOut(group.Color)
			e.cache.Invalidate(e.runContext, name.String())
			return nil
		}
	}

	return fmt.Errorf("source %s has no color group %s", source, hexColor)
}
