package accessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/extraction"
	"github.com/publictransport/timetables/pkg/metrics"
	"github.com/publictransport/timetables/pkg/script"
	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
)

// MaxJourneyRoundTrips caps the additional requests made to collect more journeys
const MaxJourneyRoundTrips = 2

var (
	ErrStopped           = errors.New("accessor is not running")
	ErrDepartureNotFound = errors.New("departure is not part of the additional data document")
)

type jobInfo struct {
	url     string
	request Request
	started time.Time
	cancel  context.CancelFunc
}

type Options struct {
	Downloader   Downloader
	Receiver     Receiver
	Metrics      *metrics.Collector
	FeatureCache *script.FeatureCache
}

// Accessor runs the requests of one provider. Requests may be made from any goroutine, the job
// table is only touched by the goroutine executing Run. Results are emitted from that goroutine
// too, in the order jobs finish.
type Accessor struct {
	Info     *accessorinfo.AccessorInfo
	Strategy Strategy

	downloader Downloader
	receiver   Receiver
	metrics    *metrics.Collector

	// Now is the clock for URL building and parsing, tests replace it
	Now func() time.Time

	events  chan func()
	stopped chan struct{}
	ctx     context.Context

	jobs map[JobHandle]*jobInfo
}

// New creates the accessor of a provider. An unusable provider definition is an error, no
// accessor is returned for it.
func New(ctx context.Context, info *accessorinfo.AccessorInfo, options Options) (*Accessor, error) {
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("provider %s: %w", info.ID, err)
	}

	if options.Downloader == nil {
		options.Downloader = NewHTTPDownloader(30 * time.Second)
	}
	if options.FeatureCache == nil {
		options.FeatureCache = script.NewFeatureCache(nil)
	}

	strategy, err := NewStrategy(ctx, info, options.FeatureCache, options.Downloader)
	if err != nil {
		return nil, err
	}

	return NewWithStrategy(info, strategy, options), nil
}

// NewWithStrategy creates an accessor around a strategy that has already been set up
func NewWithStrategy(info *accessorinfo.AccessorInfo, strategy Strategy, options Options) *Accessor {
	if options.Metrics == nil {
		options.Metrics = metrics.NewCollector()
	}
	if options.Receiver == nil {
		options.Receiver = ReceiverFunc(func(*Result) {})
	}

	return &Accessor{
		Info:       info,
		Strategy:   strategy,
		downloader: options.Downloader,
		receiver:   options.Receiver,
		metrics:    options.Metrics,
		Now:        time.Now,
		events:     make(chan func(), 64),
		stopped:    make(chan struct{}),
		ctx:        context.Background(),
		jobs:       map[JobHandle]*jobInfo{},
	}
}

// Run executes the dispatcher until ctx is done. Jobs still running are cancelled and their
// results dropped.
func (a *Accessor) Run(ctx context.Context) {
	a.ctx = ctx
	defer close(a.stopped)

	for {
		select {
		case <-ctx.Done():
			for handle, job := range a.jobs {
				job.cancel()
				delete(a.jobs, handle)
			}
			return
		case event := <-a.events:
			event()
		}
	}
}

func (a *Accessor) post(event func()) error {
	select {
	case a.events <- event:
		return nil
	case <-a.stopped:
		return ErrStopped
	}
}

// wait posts an event and blocks until the dispatcher has executed it
func (a *Accessor) wait(event func()) error {
	done := make(chan struct{})
	if err := a.post(func() {
		event()
		close(done)
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-a.stopped:
		return ErrStopped
	}
}

func (a *Accessor) RequestDepartures(request *DepartureRequest) (JobHandle, error) {
	request = request.Clone().(*DepartureRequest)
	request.ParseMode = timetable.ParseDepartures
	if request.Arrivals {
		request.ParseMode = timetable.ParseArrivals
	}

	return a.request(request)
}

func (a *Accessor) RequestJourneys(request *JourneyRequest) (JobHandle, error) {
	if !a.Info.SupportsJourneys() {
		return "", ErrNotSupported
	}

	request = request.Clone().(*JourneyRequest)
	request.ParseMode = timetable.ParseJourneys

	return a.request(request)
}

func (a *Accessor) RequestStopSuggestions(request *StopSuggestionRequest) (JobHandle, error) {
	if !a.Info.SupportsStopSuggestions() {
		return "", ErrNotSupported
	}

	request = request.Clone().(*StopSuggestionRequest)
	request.ParseMode = timetable.ParseStopSuggestions

	return a.request(request)
}

// RequestAdditionalData downloads the details of one known departure. The result holds that
// departure only, with IncludesAdditionalData set.
func (a *Accessor) RequestAdditionalData(request *AdditionalDataRequest) (JobHandle, error) {
	request = request.Clone().(*AdditionalDataRequest)
	request.ParseMode = timetable.ParseDepartures

	return a.request(request)
}

func (a *Accessor) request(request Request) (JobHandle, error) {
	url := ""
	if _, local := a.Strategy.(LocalStrategy); !local {
		var err error
		if url, err = a.Strategy.BuildURL(request, a.Now()); err != nil {
			return "", err
		}
	}

	handle := NewJobHandle()
	if err := a.post(func() { a.start(handle, url, request) }); err != nil {
		return "", err
	}

	return handle, nil
}

// start registers the job and hands it to a worker. Runs on the dispatcher.
func (a *Accessor) start(handle JobHandle, url string, request Request) {
	jobContext, cancel := context.WithCancel(a.ctx)
	a.jobs[handle] = &jobInfo{url: url, request: request, started: a.Now(), cancel: cancel}

	a.metrics.RequestsStarted.WithLabelValues(a.Info.ID, request.Info().ParseMode.String()).Inc()
	log.Debug().Str("provider", a.Info.ID).Str("job", string(handle)).Str("url", url).Msg("Starting job")

	go a.work(jobContext, handle, url, request)
}

// work downloads and parses one job. Runs on its own goroutine and reports back to the
// dispatcher.
func (a *Accessor) work(ctx context.Context, handle JobHandle, url string, request Request) {
	result := &Result{
		Job:       handle,
		Provider:  a.Info.ID,
		Request:   request,
		URL:       url,
		ParseMode: request.Info().ParseMode,
	}

	var document []byte
	if url != "" {
		var err error
		if document, err = a.downloader.Download(ctx, url); err != nil {
			result.Code = ErrorNetwork
			result.Err = err
		}
	}

	if !result.IsError() {
		a.parse(ctx, document, result)
	}

	if err := a.post(func() { a.finish(handle, result) }); err != nil {
		log.Debug().Str("provider", a.Info.ID).Str("job", string(handle)).Msg("Dropping result of stopped accessor")
	}
}

func (a *Accessor) parse(ctx context.Context, document []byte, result *Result) {
	now := a.Now()

	var err error
	switch request := result.Request.(type) {
	case *DepartureRequest:
		result.Departures, err = a.Strategy.ParseDocument(ctx, document, request, now)
	case *AdditionalDataRequest:
		var departures []*timetable.DepartureInfo
		if departures, err = a.Strategy.ParseDocument(ctx, document, request, now); err == nil {
			result.Departures, err = selectAdditionalData(departures, request)
		}
	case *JourneyRequest:
		result.Journeys, err = a.Strategy.ParseJourneys(ctx, document, request, now)
		if continuation, ok := a.Strategy.(ContinuationStrategy); ok && err == nil {
			result.LaterJourneysURL, result.DetailedJourneysURL = continuation.ContinuationURLs(ctx, document)
		}
	case *StopSuggestionRequest:
		result.Stops, err = a.Strategy.ParseStopSuggestions(ctx, document, request, now)
	default:
		err = ErrNotSupported
	}

	if err != nil {
		var providerError *extraction.ProviderError
		if errors.As(err, &providerError) && providerError.Fatal {
			result.Code = ErrorProviderFatal
		} else {
			result.Code = ErrorParsing
		}
		result.Err = err
		result.Departures, result.Journeys, result.Stops = nil, nil, nil
		return
	}

	for _, departure := range result.Departures {
		departure.DataSource = result.Request.Info().SourceName
	}
	for _, journey := range result.Journeys {
		journey.DataSource = result.Request.Info().SourceName
	}

	a.metrics.RecordsExtracted.WithLabelValues(a.Info.ID, result.ParseMode.String()).Add(float64(result.Len()))
}

func selectAdditionalData(departures []*timetable.DepartureInfo, request *AdditionalDataRequest) ([]*timetable.DepartureInfo, error) {
	hash := request.Hash
	if hash == "" {
		hash = timetable.GenerateHash(request.TransportLine, request.Target, request.DepartureTime)
	}

	for _, departure := range departures {
		if departure.MatchesHash(hash) {
			departure.IncludesAdditionalData = true
			return []*timetable.DepartureInfo{departure}, nil
		}
	}

	return nil, ErrDepartureNotFound
}

// finish looks the job up and removes it. Results of jobs that are no longer known were
// cancelled and are dropped. Runs on the dispatcher.
func (a *Accessor) finish(handle JobHandle, result *Result) {
	job, exists := a.jobs[handle]
	if !exists {
		a.metrics.JobsDropped.WithLabelValues(a.Info.ID).Inc()
		log.Debug().Str("provider", a.Info.ID).Str("job", string(handle)).Msg("Dropping result of cancelled job")
		return
	}
	delete(a.jobs, handle)
	job.cancel()

	outcome := result.Code.String()
	if !result.IsError() {
		outcome = "success"
		if result.Len() == 0 {
			outcome = "empty"
		}
	}
	a.metrics.JobsFinished.WithLabelValues(a.Info.ID, outcome).Inc()
	a.metrics.JobDuration.WithLabelValues(a.Info.ID).Observe(a.Now().Sub(job.started).Seconds())

	if result.IsError() {
		log.Warn().Err(result.Err).Str("provider", a.Info.ID).Str("job", string(handle)).Str("code", result.Code.String()).Msg("Job failed")
	}

	a.receiver.Receive(result)

	a.continueJourneys(result)
}

// continueJourneys issues another journey request when the provider has more results and the
// request got fewer than it asked for. Runs on the dispatcher.
func (a *Accessor) continueJourneys(result *Result) {
	request, isJourney := result.Request.(*JourneyRequest)
	if !isJourney || result.IsError() || result.LaterJourneysURL == "" {
		return
	}
	if request.RoundTrips >= MaxJourneyRoundTrips || len(result.Journeys) >= request.MaxCount {
		return
	}

	next := request.Clone().(*JourneyRequest)
	next.RoundTrips++
	next.URLToUse = result.LaterJourneysURL
	next.MaxCount = request.MaxCount - len(result.Journeys)

	a.metrics.RoundTrips.WithLabelValues(a.Info.ID).Inc()
	a.start(NewJobHandle(), next.URLToUse, next)
}

// CancelJob forgets a job, a result arriving for it later is dropped without any event
func (a *Accessor) CancelJob(handle JobHandle) error {
	return a.wait(func() {
		if job, exists := a.jobs[handle]; exists {
			job.cancel()
			delete(a.jobs, handle)
		}
	})
}

// CancelSource forgets all jobs requested for a source name
func (a *Accessor) CancelSource(sourceName string) (int, error) {
	cancelled := 0
	err := a.wait(func() {
		for handle, job := range a.jobs {
			if job.request.Info().SourceName == sourceName {
				job.cancel()
				delete(a.jobs, handle)
				cancelled++
			}
		}
	})
	return cancelled, err
}

// PendingJobs is the number of jobs in the job table
func (a *Accessor) PendingJobs() int {
	pending := 0
	if err := a.wait(func() { pending = len(a.jobs) }); err != nil {
		return 0
	}
	return pending
}
